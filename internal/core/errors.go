package core

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNoBudget means the user has not set a monthly budget yet.
	ErrNoBudget = errors.New("no budget set for this user")
	// ErrNotFound is returned for missing records and for records owned by
	// another user; callers cannot tell the two apart.
	ErrNotFound = errors.New("record not found")
	// ErrUnauthorized covers bad credentials, bad tokens and writes made
	// with the token of a deleted account.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrEmailTaken is returned by stores on a unique e-mail violation.
	ErrEmailTaken = errors.New("email already taken")
)

// ValidationError collects field-level messages for malformed input.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// FieldError builds a ValidationError with a single message.
func FieldError(field, msg string) *ValidationError {
	v := NewValidationError()
	v.Add(field, msg)
	return v
}

func (v *ValidationError) Add(field, msg string) {
	v.Fields[field] = append(v.Fields[field], msg)
}

// OrNil returns nil when no field failed, so callers can return it directly.
func (v *ValidationError) OrNil() error {
	if len(v.Fields) == 0 {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(v.Fields[k], "; "))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// First returns the first message in field order, for summary lines.
func (v *ValidationError) First() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if len(v.Fields[k]) > 0 {
			return v.Fields[k][0]
		}
	}
	return "The given data was invalid."
}
