// Package idgen generates the opaque, prefixed ids of registry records.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes identify the record kind an id belongs to.
const (
	DomainPrefix  = "dom_"
	ConfigPrefix  = "cfg_"
	VersionPrefix = "ver_"
)

// Alphabet defines the character set used for the random portion of the ID.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
const Length = 16

// Domain returns a new domain id.
func Domain() (string, error) { return GenerateWithPrefix(DomainPrefix) }

// Config returns a new config id.
func Config() (string, error) { return GenerateWithPrefix(ConfigPrefix) }

// Version returns a new version id.
func Version() (string, error) { return GenerateWithPrefix(VersionPrefix) }

// GenerateWithPrefix returns a new unique ID with the given prefix.
func GenerateWithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}
