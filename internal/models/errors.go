package models

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when a board, column or account does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEmail is returned when signing up with an email that is taken.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrUnauthenticated is returned when a request carries no valid session.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// ValidationError reports missing or malformed input, keyed by field name.
// It is produced before any storage access.
type ValidationError struct {
	Fields map[string]string `json:"errors"`
}

// NewValidationError returns a ValidationError holding a single field message.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// Add records a message for field, keeping the first message per field.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = message
	}
}

// Empty reports whether no field message has been recorded.
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	if e.Empty() {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
