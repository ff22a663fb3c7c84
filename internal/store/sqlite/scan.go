package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/alfredjeanlab/configmonkey/internal/model"
)

const versionColumns = `id, config_id, idx, value, value_type, created_at`

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

func scanDomain(row scannable) (*model.Domain, error) {
	var (
		d       model.Domain
		created int64
	)
	if err := row.Scan(&d.ID, &d.Slug, &created); err != nil {
		return nil, err
	}
	d.CreatedAt = fromUnixNano(created)
	return &d, nil
}

func scanConfig(row scannable) (*model.Config, error) {
	var (
		c       model.Config
		created int64
	)
	if err := row.Scan(&c.ID, &c.DomainID, &c.Key, &created); err != nil {
		return nil, err
	}
	c.CreatedAt = fromUnixNano(created)
	return &c, nil
}

func scanVersion(row scannable) (*model.Version, error) {
	var (
		v       model.Version
		text    string
		typ     string
		created int64
	)
	if err := row.Scan(&v.ID, &v.ConfigID, &v.Index, &text, &typ, &created); err != nil {
		return nil, err
	}
	value, err := model.DecodeValue(model.ValueType(typ), text)
	if err != nil {
		return nil, err
	}
	v.Value = value
	v.CreatedAt = fromUnixNano(created)
	return &v, nil
}

// collect drains rows through scan into a non-nil slice.
func collect[T any](rows *sql.Rows, scan func(scannable) (T, error), op string) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return out, nil
}
