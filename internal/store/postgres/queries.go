package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alfredjeanlab/configmonkey/internal/model"
	"github.com/alfredjeanlab/configmonkey/internal/store"
)

const (
	domainColumns  = `id, slug, created_at`
	configColumns  = `id, domain_id, key, created_at`
	versionColumns = `id, config_id, idx, value, value_type, created_at`
)

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryCreateDomain(ctx context.Context, db executor, d *model.Domain) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO domains (id, slug, created_at) VALUES ($1, $2, $3)`,
		d.ID, d.Slug, d.CreatedAt,
	)
	return classify("create domain", err, store.ErrNotFound)
}

func queryGetDomainBySlug(ctx context.Context, db executor, slug string) (*model.Domain, error) {
	row := db.QueryRowContext(ctx, `SELECT `+domainColumns+` FROM domains WHERE slug = $1`, slug)
	d, err := scanDomain(row)
	if err != nil {
		return nil, classify("get domain", err, store.ErrNotFound)
	}
	return d, nil
}

func queryListDomains(ctx context.Context, db executor, limit, offset int) ([]*model.Domain, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+domainColumns+` FROM domains ORDER BY created_at, id LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}
	defer rows.Close()

	domains := []*model.Domain{}
	for rows.Next() {
		d, err := scanDomain(rows)
		if err != nil {
			return nil, fmt.Errorf("list domains: scan: %w", err)
		}
		domains = append(domains, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list domains: rows: %w", err)
	}
	return domains, nil
}

// queryDeleteDomain relies on the configs foreign key to refuse deleting a
// domain that still has configs.
func queryDeleteDomain(ctx context.Context, db executor, slug string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM domains WHERE slug = $1`, slug)
	if err != nil {
		return classify("delete domain", err, store.ErrNotEmpty)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete domain: rows affected: %w", err)
	}
	if n == 0 {
		return classify("delete domain", sql.ErrNoRows, store.ErrNotEmpty)
	}
	return nil
}

func queryCreateConfig(ctx context.Context, db executor, c *model.Config) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO configs (id, domain_id, key, created_at) VALUES ($1, $2, $3, $4)`,
		c.ID, c.DomainID, c.Key, c.CreatedAt,
	)
	return classify("create config", err, store.ErrNotFound)
}

func queryGetConfig(ctx context.Context, db executor, domainID, key string) (*model.Config, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+configColumns+` FROM configs WHERE domain_id = $1 AND key = $2`,
		domainID, key,
	)
	c, err := scanConfig(row)
	if err != nil {
		return nil, classify("get config", err, store.ErrNotFound)
	}
	return c, nil
}

func queryListConfigs(ctx context.Context, db executor, domainID string, limit, offset int) ([]*model.Config, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+configColumns+` FROM configs WHERE domain_id = $1 ORDER BY created_at, id LIMIT $2 OFFSET $3`,
		domainID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list configs: %w", err)
	}
	defer rows.Close()

	configs := []*model.Config{}
	for rows.Next() {
		c, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("list configs: scan: %w", err)
		}
		configs = append(configs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list configs: rows: %w", err)
	}
	return configs, nil
}

// queryDeleteConfig removes a config; its versions go with it through
// ON DELETE CASCADE.
func queryDeleteConfig(ctx context.Context, db executor, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM configs WHERE id = $1`, id)
	if err != nil {
		return classify("delete config", err, store.ErrNotEmpty)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete config: rows affected: %w", err)
	}
	if n == 0 {
		return classify("delete config", sql.ErrNoRows, store.ErrNotEmpty)
	}
	return nil
}

// queryCreateVersion must run inside a transaction. It locks the parent
// config row so concurrent appends to the same config serialize, then
// computes the next index and inserts in one statement.
func queryCreateVersion(ctx context.Context, db executor, v *model.Version) error {
	var locked string
	err := db.QueryRowContext(ctx, `SELECT id FROM configs WHERE id = $1 FOR UPDATE`, v.ConfigID).Scan(&locked)
	if err != nil {
		return classify("create version: lock config", err, store.ErrNotFound)
	}

	text, typ := v.Value.Encode()
	err = db.QueryRowContext(ctx, `
		INSERT INTO versions (id, config_id, idx, value, value_type, created_at)
		SELECT $1, $2, COALESCE(MAX(idx), 0) + 1, $3, $4, $5
		FROM versions WHERE config_id = $2
		RETURNING idx`,
		v.ID, v.ConfigID, text, string(typ), v.CreatedAt,
	).Scan(&v.Index)
	return classify("create version", err, store.ErrNotFound)
}

func queryGetVersion(ctx context.Context, db executor, configID string, index int64) (*model.Version, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+versionColumns+` FROM versions WHERE config_id = $1 AND idx = $2`,
		configID, index,
	)
	v, err := scanVersion(row)
	if err != nil {
		return nil, classify("get version", err, store.ErrNotFound)
	}
	return v, nil
}

func queryGetCurrentVersion(ctx context.Context, db executor, configID string) (*model.Version, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+versionColumns+` FROM versions WHERE config_id = $1 ORDER BY idx DESC LIMIT 1`,
		configID,
	)
	v, err := scanVersion(row)
	if err != nil {
		return nil, classify("get current version", err, store.ErrNotFound)
	}
	return v, nil
}

func queryListVersions(ctx context.Context, db executor, configID string, limit, offset int) ([]*model.Version, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+versionColumns+` FROM versions WHERE config_id = $1 ORDER BY idx DESC LIMIT $2 OFFSET $3`,
		configID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	versions := []*model.Version{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("list versions: scan: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list versions: rows: %w", err)
	}
	return versions, nil
}
