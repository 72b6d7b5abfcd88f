package manifest

import (
	"errors"
	"fmt"
	"strings"
)

// ErrResourceTooLarge marks a resource file over the size limit.
var ErrResourceTooLarge = errors.New("resource exceeds maximum size")

// ValidationError describes a single failed manifest check.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ValidationErrors aggregates every check that failed. Parsing is
// all-or-nothing: when this is returned, no partial Package is.
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("invalid manifest: %s", strings.Join(msgs, "; "))
}

// Unwrap lets errors.Is see through to individual validation errors.
func (v ValidationErrors) Unwrap() []error {
	errs := make([]error, len(v))
	for i, e := range v {
		errs[i] = e
	}
	return errs
}

func fieldErrorf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Err: fmt.Errorf(format, args...)}
}
