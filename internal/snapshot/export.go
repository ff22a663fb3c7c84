package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alfredjeanlab/configmonkey/internal/model"
	"github.com/alfredjeanlab/configmonkey/internal/store"
)

// FormatVersion is written into every header record.
const FormatVersion = "1"

// batchSize is the page size used to walk the store.
const batchSize = 100

// Header is the first JSONL record written by ExportJSONL.
type Header struct {
	Version      string    `json:"version"`
	Type         string    `json:"type"`
	Timestamp    time.Time `json:"timestamp"`
	DomainCount  int       `json:"domain_count"`
	ConfigCount  int       `json:"config_count"`
	VersionCount int       `json:"version_count"`
}

// Record wraps a single JSONL line with a type discriminator.
type Record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// VersionRecord carries a version with its value in text form so that the
// type tag survives the round trip.
type VersionRecord struct {
	ID        string          `json:"id"`
	ConfigID  string          `json:"config_id"`
	Index     int64           `json:"index"`
	Type      model.ValueType `json:"type"`
	Value     string          `json:"value"`
	CreatedAt time.Time       `json:"created_at"`
}

func newVersionRecord(v *model.Version) VersionRecord {
	text, typ := v.Value.Encode()
	return VersionRecord{
		ID:        v.ID,
		ConfigID:  v.ConfigID,
		Index:     v.Index,
		Type:      typ,
		Value:     text,
		CreatedAt: v.CreatedAt,
	}
}

// Version decodes the record back into a model.Version.
func (r VersionRecord) Version() (*model.Version, error) {
	val, err := model.DecodeValue(r.Type, r.Value)
	if err != nil {
		return nil, err
	}
	return &model.Version{ID: r.ID, ConfigID: r.ConfigID, Index: r.Index, Value: val, CreatedAt: r.CreatedAt}, nil
}

// collectAll drains a paged list function.
func collectAll[T any](ctx context.Context, list func(ctx context.Context, limit, offset int) ([]T, error)) ([]T, error) {
	var all []T
	for offset := 0; ; offset += batchSize {
		page, err := list(ctx, batchSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < batchSize {
			return all, nil
		}
	}
}

// ExportJSONL writes every domain, config and version in the store as JSONL
// to w. Configs follow their domain and versions follow their config, oldest
// version first.
func ExportJSONL(ctx context.Context, s store.Store, w io.Writer) error {
	domains, err := collectAll(ctx, s.ListDomains)
	if err != nil {
		return fmt.Errorf("list domains: %w", err)
	}

	var configs []*model.Config
	for _, d := range domains {
		cs, err := collectAll(ctx, func(ctx context.Context, limit, offset int) ([]*model.Config, error) {
			return s.ListConfigs(ctx, d.ID, limit, offset)
		})
		if err != nil {
			return fmt.Errorf("list configs for %s: %w", d.Slug, err)
		}
		configs = append(configs, cs...)
	}

	versions := make(map[string][]*model.Version, len(configs))
	versionCount := 0
	for _, c := range configs {
		vs, err := collectAll(ctx, func(ctx context.Context, limit, offset int) ([]*model.Version, error) {
			return s.ListVersions(ctx, c.ID, limit, offset)
		})
		if err != nil {
			return fmt.Errorf("list versions for %s: %w", c.Key, err)
		}
		// Stores list newest first.
		for i, j := 0, len(vs)-1; i < j; i, j = i+1, j-1 {
			vs[i], vs[j] = vs[j], vs[i]
		}
		versions[c.ID] = vs
		versionCount += len(vs)
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(Header{
		Version:      FormatVersion,
		Type:         "header",
		Timestamp:    time.Now().UTC(),
		DomainCount:  len(domains),
		ConfigCount:  len(configs),
		VersionCount: versionCount,
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, d := range domains {
		if err := enc.Encode(Record{Type: "domain", Data: d}); err != nil {
			return fmt.Errorf("encode domain %s: %w", d.Slug, err)
		}
	}
	for _, c := range configs {
		if err := enc.Encode(Record{Type: "config", Data: c}); err != nil {
			return fmt.Errorf("encode config %s: %w", c.Key, err)
		}
		for _, v := range versions[c.ID] {
			if err := enc.Encode(Record{Type: "version", Data: newVersionRecord(v)}); err != nil {
				return fmt.Errorf("encode version %s#%d: %w", c.Key, v.Index, err)
			}
		}
	}
	return nil
}
