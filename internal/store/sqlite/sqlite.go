// Package sqlite implements the store.Store interface on an embedded SQLite
// database, for single-node installs and tests.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/alfredjeanlab/configmonkey/internal/model"
	"github.com/alfredjeanlab/configmonkey/internal/store"
)

//go:embed schema.sql
var schema string

// SQLiteStore implements store.Store backed by a SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// Compile-time check that SQLiteStore implements store.Store.
var _ store.Store = (*SQLiteStore)(nil)

// New opens (creating if needed) the database at path and applies the schema.
func New(path string) (*SQLiteStore, error) {
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateDomain(ctx context.Context, d *model.Domain) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO domains (id, slug, created_at) VALUES (?, ?, ?)`,
		d.ID, d.Slug, d.CreatedAt.UnixNano(),
	)
	return classify("create domain", err, store.ErrNotFound)
}

func (s *SQLiteStore) GetDomainBySlug(ctx context.Context, slug string) (*model.Domain, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, slug, created_at FROM domains WHERE slug = ?`, slug)
	d, err := scanDomain(row)
	if err != nil {
		return nil, classify("get domain", err, store.ErrNotFound)
	}
	return d, nil
}

func (s *SQLiteStore) ListDomains(ctx context.Context, limit, offset int) ([]*model.Domain, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, slug, created_at FROM domains ORDER BY created_at, id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}
	return collect(rows, scanDomain, "list domains")
}

func (s *SQLiteStore) DeleteDomain(ctx context.Context, slug string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM domains WHERE slug = ?`, slug)
	return deleted("delete domain", res, err)
}

func (s *SQLiteStore) CreateConfig(ctx context.Context, c *model.Config) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO configs (id, domain_id, key, created_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.DomainID, c.Key, c.CreatedAt.UnixNano(),
	)
	return classify("create config", err, store.ErrNotFound)
}

func (s *SQLiteStore) GetConfig(ctx context.Context, domainID, key string) (*model.Config, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, domain_id, key, created_at FROM configs WHERE domain_id = ? AND key = ?`,
		domainID, key,
	)
	c, err := scanConfig(row)
	if err != nil {
		return nil, classify("get config", err, store.ErrNotFound)
	}
	return c, nil
}

func (s *SQLiteStore) ListConfigs(ctx context.Context, domainID string, limit, offset int) ([]*model.Config, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, domain_id, key, created_at FROM configs WHERE domain_id = ? ORDER BY created_at, id LIMIT ? OFFSET ?`,
		domainID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list configs: %w", err)
	}
	return collect(rows, scanConfig, "list configs")
}

func (s *SQLiteStore) DeleteConfig(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM configs WHERE id = ?`, id)
	return deleted("delete config", res, err)
}

// CreateVersion computes the next index and inserts in a single statement.
// Selecting from configs makes a missing parent produce no row rather than
// a dangling insert.
func (s *SQLiteStore) CreateVersion(ctx context.Context, v *model.Version) error {
	err := s.insertVersion(ctx, v)
	if errors.Is(err, store.ErrAlreadyExists) {
		err = s.insertVersion(ctx, v)
	}
	return err
}

func (s *SQLiteStore) insertVersion(ctx context.Context, v *model.Version) error {
	text, typ := v.Value.Encode()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO versions (id, config_id, idx, value, value_type, created_at)
		SELECT ?1, c.id, COALESCE((SELECT MAX(idx) FROM versions WHERE config_id = c.id), 0) + 1, ?3, ?4, ?5
		FROM configs c WHERE c.id = ?2
		RETURNING idx`,
		v.ID, v.ConfigID, text, string(typ), v.CreatedAt.UnixNano(),
	).Scan(&v.Index)
	return classify("create version", err, store.ErrNotFound)
}

func (s *SQLiteStore) GetVersion(ctx context.Context, configID string, index int64) (*model.Version, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+versionColumns+` FROM versions WHERE config_id = ? AND idx = ?`,
		configID, index,
	)
	v, err := scanVersion(row)
	if err != nil {
		return nil, classify("get version", err, store.ErrNotFound)
	}
	return v, nil
}

func (s *SQLiteStore) GetCurrentVersion(ctx context.Context, configID string) (*model.Version, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+versionColumns+` FROM versions WHERE config_id = ? ORDER BY idx DESC LIMIT 1`,
		configID,
	)
	v, err := scanVersion(row)
	if err != nil {
		return nil, classify("get current version", err, store.ErrNotFound)
	}
	return v, nil
}

func (s *SQLiteStore) ListVersions(ctx context.Context, configID string, limit, offset int) ([]*model.Version, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+versionColumns+` FROM versions WHERE config_id = ? ORDER BY idx DESC LIMIT ? OFFSET ?`,
		configID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return collect(rows, scanVersion, "list versions")
}

// deleted turns the result of a DELETE into ErrNotFound when nothing matched
// and ErrNotEmpty when children still reference the row.
func deleted(op string, res sql.Result, err error) error {
	if err != nil {
		return classify(op, err, store.ErrNotEmpty)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}
	return nil
}

func fromUnixNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
