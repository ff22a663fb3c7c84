package model

import "time"

// Domain is a top-level namespace that owns configs.
// Slug is the only identifier exposed to clients.
type Domain struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

// Config is a named, versioned setting inside a domain.
// Key is unique within the owning domain.
type Config struct {
	ID        string    `json:"id"`
	DomainID  string    `json:"domain_id"`
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
}

// Version is an immutable value snapshot of a config. Index starts at 1
// and grows by one for every version appended to the same config.
type Version struct {
	ID        string    `json:"id"`
	ConfigID  string    `json:"config_id"`
	Index     int64     `json:"index"`
	Value     Value     `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}
