package activity

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField is wrapped by errors reporting an absent required field.
	ErrMissingField = errors.New("missing required field")
	// ErrNoVariant is wrapped by errors reporting a polymorphic value that
	// has the shape of none of its variants.
	ErrNoVariant = errors.New("value matches no variant")
)

// BuildError is returned by a builder when a required field was never set.
type BuildError struct {
	Entity string
	Field  string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("building %s: %s: %s", e.Entity, e.Field, ErrMissingField)
}

func (e *BuildError) Unwrap() error {
	return ErrMissingField
}

// ParseError is returned when wire JSON cannot be inflated into an entity.
type ParseError struct {
	Entity string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %s", e.Entity, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ReferenceError reports a polymorphic reference that could not be resolved
// to exactly one variant.
type ReferenceError struct {
	Property string
	Value    string // leading bytes of the offending value
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("resolving %s %q: %s", e.Property, e.Value, ErrNoVariant)
}

func (e *ReferenceError) Unwrap() error {
	return ErrNoVariant
}

func missing(entity, field string) error {
	return &ParseError{Entity: entity, Err: fmt.Errorf("%s: %w", field, ErrMissingField)}
}

// excerpt shortens raw JSON for error messages.
func excerpt(b []byte) string {
	const max = 32
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
