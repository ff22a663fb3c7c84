package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/alfredjeanlab/configmonkey/internal/store"
)

// The codes are an external contract; this table pins them.
func TestErrorKind_Codes(t *testing.T) {
	want := map[ErrorKind]string{
		KindUnknown:             "unknown",
		KindInvalidSlug:         "invalid_slug",
		KindInvalidKey:          "invalid_key",
		KindInvalidValue:        "invalid_value",
		KindInvalidPagination:   "invalid_pagination",
		KindDuplicateSlug:       "duplicate_slug",
		KindNotEmpty:            "not_empty",
		KindDomainNotFound:      "domain_not_found",
		KindConfigNotFound:      "config_not_found",
		KindConfigAlreadyExists: "config_already_exists",
		KindVersionNotFound:     "version_not_found",
	}
	if len(Kinds()) != len(want) {
		t.Fatalf("Kinds() has %d entries, want %d", len(Kinds()), len(want))
	}
	for _, k := range Kinds() {
		if k.Code() != want[k] {
			t.Errorf("%d.Code() = %q, want %q", k, k.Code(), want[k])
		}
		if k.Message() == "" {
			t.Errorf("%s has an empty message", k.Code())
		}
	}
	if ErrorKind(999).Code() != "unknown" {
		t.Errorf("out-of-range kind code = %q", ErrorKind(999).Code())
	}
}

func TestErrorKind_Messages(t *testing.T) {
	for _, tc := range []struct {
		kind ErrorKind
		want string
	}{
		{KindDuplicateSlug, "A domain with the same slug already exists"},
		{KindNotEmpty, "The domain could not be deleted because there are existing configs"},
		{KindDomainNotFound, "Domain not found"},
		{KindConfigNotFound, "Config not found"},
		{KindConfigAlreadyExists, "Config already exists"},
		{KindUnknown, "Unknown error"},
	} {
		if got := tc.kind.Message(); got != tc.want {
			t.Errorf("%s.Message() = %q, want %q", tc.kind, got, tc.want)
		}
	}
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", newError(KindConfigNotFound, store.ErrNotFound))
	if got := KindOf(wrapped); got != KindConfigNotFound {
		t.Errorf("KindOf(wrapped) = %s, want config_not_found", got)
	}
	if got := KindOf(errors.New("plain")); got != KindUnknown {
		t.Errorf("KindOf(plain) = %s, want unknown", got)
	}
	if !errors.Is(wrapped, &Error{Kind: KindConfigNotFound}) {
		t.Error("errors.Is should match on kind")
	}
	if errors.Is(wrapped, &Error{Kind: KindDomainNotFound}) {
		t.Error("errors.Is should not match a different kind")
	}
	if !errors.Is(wrapped, store.ErrNotFound) {
		t.Error("cause should stay reachable through Unwrap")
	}
}

func TestTranslate(t *testing.T) {
	boom := errors.New("disk on fire")
	for _, tc := range []struct {
		name  string
		kinds storeKinds
		err   error
		want  ErrorKind
	}{
		{"domain not found", domainErrors, store.ErrNotFound, KindDomainNotFound},
		{"domain duplicate", domainErrors, store.ErrAlreadyExists, KindDuplicateSlug},
		{"domain not empty", domainErrors, store.ErrNotEmpty, KindNotEmpty},
		{"domain other", domainErrors, boom, KindUnknown},
		{"config not found", configErrors, store.ErrNotFound, KindConfigNotFound},
		{"config duplicate", configErrors, store.ErrAlreadyExists, KindConfigAlreadyExists},
		{"config insert parent gone", configInsertErrors, store.ErrNotFound, KindDomainNotFound},
		{"version not found", versionErrors, store.ErrNotFound, KindVersionNotFound},
		{"version collision", versionErrors, store.ErrAlreadyExists, KindUnknown},
		{"version insert parent gone", versionInsertErrors, store.ErrNotFound, KindConfigNotFound},
		{"wrapped sentinel", domainErrors, fmt.Errorf("delete domain: fk: %w", store.ErrNotEmpty), KindNotEmpty},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.kinds.translate(tc.err)); got != tc.want {
				t.Errorf("translate(%v) kind = %s, want %s", tc.err, got, tc.want)
			}
		})
	}
	if domainErrors.translate(nil) != nil {
		t.Error("translate(nil) should be nil")
	}
}

func TestKindFromCode(t *testing.T) {
	for _, k := range Kinds() {
		got, ok := KindFromCode(k.Code())
		if !ok || got != k {
			t.Errorf("KindFromCode(%q) = %v, %v; want %v, true", k.Code(), got, ok, k)
		}
	}
	if _, ok := KindFromCode("bad_request"); ok {
		t.Error("transport codes are not registry kinds")
	}
}
