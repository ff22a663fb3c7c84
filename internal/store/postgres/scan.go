package postgres

import (
	"github.com/alfredjeanlab/configmonkey/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanDomain scans a row in domainColumns order.
func scanDomain(row scannable) (*model.Domain, error) {
	var d model.Domain
	if err := row.Scan(&d.ID, &d.Slug, &d.CreatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

// scanConfig scans a row in configColumns order.
func scanConfig(row scannable) (*model.Config, error) {
	var c model.Config
	if err := row.Scan(&c.ID, &c.DomainID, &c.Key, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// scanVersion scans a row in versionColumns order and decodes the value
// using its stored type tag.
func scanVersion(row scannable) (*model.Version, error) {
	var (
		v    model.Version
		text string
		typ  string
	)
	if err := row.Scan(&v.ID, &v.ConfigID, &v.Index, &text, &typ, &v.CreatedAt); err != nil {
		return nil, err
	}
	value, err := model.DecodeValue(model.ValueType(typ), text)
	if err != nil {
		return nil, err
	}
	v.Value = value
	return &v, nil
}
