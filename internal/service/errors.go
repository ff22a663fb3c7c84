package service

import (
	"errors"
	"fmt"

	"github.com/alfredjeanlab/configmonkey/internal/store"
)

// ErrorKind is the closed set of failures the registry reports. Code and
// Message are part of the external contract and must not change.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindInvalidSlug
	KindInvalidKey
	KindInvalidValue
	KindInvalidPagination
	KindDuplicateSlug
	KindNotEmpty
	KindDomainNotFound
	KindConfigNotFound
	KindConfigAlreadyExists
	KindVersionNotFound
)

var kindInfo = map[ErrorKind]struct{ code, message string }{
	KindUnknown:             {"unknown", "Unknown error"},
	KindInvalidSlug:         {"invalid_slug", "The slug contains invalid characters. Only lowercase letters, numbers and dash (-) are allowed"},
	KindInvalidKey:          {"invalid_key", "The config key contains invalid characters. Only letters, numbers, dot (.), dash (-) and underscore (_) are allowed"},
	KindInvalidValue:        {"invalid_value", "The value must be a string, boolean, integer or float"},
	KindInvalidPagination:   {"invalid_pagination", "Limit must be between 1 and 100 and offset must not be negative"},
	KindDuplicateSlug:       {"duplicate_slug", "A domain with the same slug already exists"},
	KindNotEmpty:            {"not_empty", "The domain could not be deleted because there are existing configs"},
	KindDomainNotFound:      {"domain_not_found", "Domain not found"},
	KindConfigNotFound:      {"config_not_found", "Config not found"},
	KindConfigAlreadyExists: {"config_already_exists", "Config already exists"},
	KindVersionNotFound:     {"version_not_found", "Version not found"},
}

// Kinds lists every ErrorKind.
func Kinds() []ErrorKind {
	return []ErrorKind{
		KindUnknown, KindInvalidSlug, KindInvalidKey, KindInvalidValue, KindInvalidPagination,
		KindDuplicateSlug, KindNotEmpty, KindDomainNotFound, KindConfigNotFound,
		KindConfigAlreadyExists, KindVersionNotFound,
	}
}

// Code returns the stable machine-readable code.
func (k ErrorKind) Code() string {
	if info, ok := kindInfo[k]; ok {
		return info.code
	}
	return kindInfo[KindUnknown].code
}

// Message returns the user-facing message.
func (k ErrorKind) Message() string {
	if info, ok := kindInfo[k]; ok {
		return info.message
	}
	return kindInfo[KindUnknown].message
}

// KindFromCode is the inverse of Code.
func KindFromCode(code string) (ErrorKind, bool) {
	for kind, info := range kindInfo {
		if info.code == code {
			return kind, true
		}
	}
	return KindUnknown, false
}

func (k ErrorKind) String() string {
	return k.Code()
}

// Error is returned by every Registry operation that fails. Err keeps the
// underlying cause for logs; it is never shown to clients.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind.Code(), e.Err)
	}
	return e.Kind.Code()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind, so callers can write
// errors.Is(err, &service.Error{Kind: service.KindNotEmpty}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf extracts the ErrorKind from err. Errors that did not come from the
// registry are KindUnknown.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

func newError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// storeKinds says which ErrorKind each store sentinel becomes for one
// store. A zero entry means that sentinel is unexpected and maps to Unknown.
type storeKinds struct {
	notFound      ErrorKind
	alreadyExists ErrorKind
	notEmpty      ErrorKind
}

// translate maps a store error onto the taxonomy.
func (m storeKinds) translate(err error) error {
	if err == nil {
		return nil
	}
	kind := KindUnknown
	switch {
	case errors.Is(err, store.ErrNotFound):
		kind = m.notFound
	case errors.Is(err, store.ErrAlreadyExists):
		kind = m.alreadyExists
	case errors.Is(err, store.ErrNotEmpty):
		kind = m.notEmpty
	}
	return newError(kind, err)
}

// One translation per store. Config and version inserts report a vanished
// parent as not found at the parent's level.
var (
	domainErrors = storeKinds{
		notFound:      KindDomainNotFound,
		alreadyExists: KindDuplicateSlug,
		notEmpty:      KindNotEmpty,
	}
	configErrors = storeKinds{
		notFound:      KindConfigNotFound,
		alreadyExists: KindConfigAlreadyExists,
	}
	configInsertErrors = storeKinds{
		notFound:      KindDomainNotFound,
		alreadyExists: KindConfigAlreadyExists,
	}
	versionErrors = storeKinds{
		notFound: KindVersionNotFound,
	}
	versionInsertErrors = storeKinds{
		notFound: KindConfigNotFound,
	}
)
