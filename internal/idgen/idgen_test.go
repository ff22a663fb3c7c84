package idgen

import (
	"regexp"
	"strings"
	"testing"
)

func TestGenerators(t *testing.T) {
	for _, tc := range []struct {
		name   string
		gen    func() (string, error)
		prefix string
	}{
		{"domain", Domain, DomainPrefix},
		{"config", Config, ConfigPrefix},
		{"version", Version, VersionPrefix},
	} {
		t.Run(tc.name, func(t *testing.T) {
			id, err := tc.gen()
			if err != nil {
				t.Fatalf("error: %v", err)
			}
			if !strings.HasPrefix(id, tc.prefix) {
				t.Errorf("id %q missing prefix %q", id, tc.prefix)
			}
			if len(id) != len(tc.prefix)+Length {
				t.Errorf("id %q length = %d, want %d", id, len(id), len(tc.prefix)+Length)
			}
		})
	}
}

func TestGenerate_Charset(t *testing.T) {
	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(DomainPrefix) + `[a-zA-Z0-9]+$`)
	for i := 0; i < 100; i++ {
		id, err := Domain()
		if err != nil {
			t.Fatalf("Domain() error on iteration %d: %v", i, err)
		}
		if !pattern.MatchString(id) {
			t.Fatalf("Domain() = %q, does not match expected charset pattern", id)
		}
	}
}

func TestGenerate_Uniqueness(t *testing.T) {
	const count = 10_000
	seen := make(map[string]struct{}, count)
	for i := 0; i < count; i++ {
		id, err := Version()
		if err != nil {
			t.Fatalf("Version() error on iteration %d: %v", i, err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate ID after %d generations: %q", i, id)
		}
		seen[id] = struct{}{}
	}
}

func TestGenerateWithPrefix(t *testing.T) {
	prefix := "test-"
	id, err := GenerateWithPrefix(prefix)
	if err != nil {
		t.Fatalf("GenerateWithPrefix(%q) error: %v", prefix, err)
	}
	if !strings.HasPrefix(id, prefix) {
		t.Errorf("GenerateWithPrefix(%q) = %q, want prefix %q", prefix, id, prefix)
	}
}
