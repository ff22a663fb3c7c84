// Package client provides a transport-agnostic interface to the registry
// and HTTP/JSON and gRPC implementations of it.
package client

import (
	"context"

	"github.com/alfredjeanlab/configmonkey/internal/model"
	"github.com/alfredjeanlab/configmonkey/internal/service"
)

// Client is the interface all cm commands use to talk to a registry. It is
// implemented by HTTPClient, GRPCClient and *service.Registry itself.
//
// Failures reported by the registry come back as *service.Error so callers
// can branch on service.KindOf regardless of transport.
type Client interface {
	// Domains
	CreateDomain(ctx context.Context, slug string) (*model.Domain, error)
	GetDomain(ctx context.Context, slug string) (*model.Domain, error)
	ListDomains(ctx context.Context, req service.PageRequest) (model.Page[*model.Domain], error)
	DeleteDomain(ctx context.Context, slug string) error

	// Configs
	CreateConfig(ctx context.Context, domain, key string) (*model.Config, error)
	GetConfig(ctx context.Context, domain, key string) (*model.Config, error)
	ListConfigs(ctx context.Context, domain string, req service.PageRequest) (model.Page[*model.Config], error)
	DeleteConfig(ctx context.Context, domain, key string) error

	// Versions
	CreateVersion(ctx context.Context, domain, key string, value model.Value) (*model.Version, error)
	ListVersions(ctx context.Context, domain, key string, req service.PageRequest) (model.Page[*model.Version], error)
	GetCurrentVersion(ctx context.Context, domain, key string) (*model.Version, error)
	GetVersion(ctx context.Context, domain, key string, index int64) (*model.Version, error)

	// Health
	Ping(ctx context.Context) error
}
