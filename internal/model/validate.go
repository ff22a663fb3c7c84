package model

import "regexp"

const (
	MaxSlugLength = 64
	MaxKeyLength  = 128
)

var (
	slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)
	keyPattern  = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
)

// ValidSlug reports whether s may be used as a domain slug: lowercase
// letters, digits and dashes.
func ValidSlug(s string) bool {
	return len(s) <= MaxSlugLength && slugPattern.MatchString(s)
}

// ValidKey reports whether s may be used as a config key.
func ValidKey(s string) bool {
	return len(s) <= MaxKeyLength && keyPattern.MatchString(s)
}
