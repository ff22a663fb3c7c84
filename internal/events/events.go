package events

import (
	"context"

	"github.com/alfredjeanlab/configmonkey/internal/model"
)

// Event topic constants
const (
	TopicDomainCreated  = "configmonkey.domain.created"
	TopicDomainDeleted  = "configmonkey.domain.deleted"
	TopicConfigCreated  = "configmonkey.config.created"
	TopicConfigDeleted  = "configmonkey.config.deleted"
	TopicVersionCreated = "configmonkey.version.created"

	// TopicAll matches every registry event.
	TopicAll = "configmonkey.>"
)

// Event types

type DomainCreated struct {
	Domain *model.Domain `json:"domain"`
}

type DomainDeleted struct {
	Slug string `json:"slug"`
}

type ConfigCreated struct {
	Domain string        `json:"domain"`
	Config *model.Config `json:"config"`
}

type ConfigDeleted struct {
	Domain string `json:"domain"`
	Key    string `json:"key"`
}

type VersionCreated struct {
	Domain  string         `json:"domain"`
	Key     string         `json:"key"`
	Version *model.Version `json:"version"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
