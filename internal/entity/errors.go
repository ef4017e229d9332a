package entity

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUserNotFound is returned by repositories when no active user matches.
var ErrUserNotFound = errors.New("user not found")

// CastError reports an identifier that cannot be converted to the storage key type.
type CastError struct {
	Field string
	Value string
	Err   error
}

func (e *CastError) Error() string {
	return fmt.Sprintf("cast to %s failed for value %q", e.Field, e.Value)
}

func (e *CastError) Unwrap() error {
	return e.Err
}

// DuplicateKeyError reports a unique index violation.
type DuplicateKeyError struct {
	Field string
	Value string
	Err   error
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key %s: %q", e.Field, e.Value)
}

func (e *DuplicateKeyError) Unwrap() error {
	return e.Err
}

// FieldError is a single schema rule violation.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError collects the schema rule violations of a record.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages(), "; ")
}

// Messages returns the human readable message of each violation, in field order.
func (e *ValidationError) Messages() []string {
	if e == nil {
		return nil
	}
	out := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		out = append(out, f.Message)
	}
	return out
}
