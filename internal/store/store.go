package store

import (
	"context"

	"github.com/alfredjeanlab/configmonkey/internal/model"
)

// DomainStore persists domains.
type DomainStore interface {
	// CreateDomain inserts d. A taken slug yields ErrAlreadyExists.
	CreateDomain(ctx context.Context, d *model.Domain) error
	GetDomainBySlug(ctx context.Context, slug string) (*model.Domain, error)
	ListDomains(ctx context.Context, limit, offset int) ([]*model.Domain, error)
	// DeleteDomain yields ErrNotEmpty while configs still reference the domain.
	DeleteDomain(ctx context.Context, slug string) error
}

// ConfigStore persists configs scoped to a domain.
type ConfigStore interface {
	// CreateConfig inserts c. A taken (domain, key) pair yields ErrAlreadyExists;
	// a missing domain yields ErrNotFound.
	CreateConfig(ctx context.Context, c *model.Config) error
	GetConfig(ctx context.Context, domainID, key string) (*model.Config, error)
	ListConfigs(ctx context.Context, domainID string, limit, offset int) ([]*model.Config, error)
	// DeleteConfig removes the config and all of its versions.
	DeleteConfig(ctx context.Context, id string) error
}

// VersionStore persists the append-only version history of configs.
type VersionStore interface {
	// CreateVersion assigns v.Index as one past the config's greatest index
	// and inserts v atomically with that lookup.
	CreateVersion(ctx context.Context, v *model.Version) error
	GetVersion(ctx context.Context, configID string, index int64) (*model.Version, error)
	// GetCurrentVersion returns the version with the greatest index.
	GetCurrentVersion(ctx context.Context, configID string) (*model.Version, error)
	// ListVersions returns versions newest first.
	ListVersions(ctx context.Context, configID string, limit, offset int) ([]*model.Version, error)
}

// Store defines the persistence interface for the registry.
type Store interface {
	DomainStore
	ConfigStore
	VersionStore

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}
