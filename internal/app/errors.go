package app

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrBookNotFound = errors.New("book not found")
	// ErrUserNotFound is returned by AdminLogin for unknown usernames.
	ErrUserNotFound    = errors.New("admin not found")
	ErrInvalidPassword = errors.New("invalid password")

	// ErrUnauthorized wraps every token verification failure.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when a verified principal lacks the admin role.
	ErrForbidden = errors.New("admin role required")
)

// ValidationError reports request fields that failed schema checks.
// Fields maps the JSON field path to a short reason.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
