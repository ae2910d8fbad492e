package model

import (
	"errors"
	"strings"
)

// ValidationError reports a single field that failed its constraint.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Reason
}

// ValidationErrors collects every failing field of one record.
type ValidationErrors []*ValidationError

func (es ValidationErrors) Error() string {
	parts := make([]string, 0, len(es))
	for _, e := range es {
		parts = append(parts, e.Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes the individual errors to errors.Is / errors.As.
func (es ValidationErrors) Unwrap() []error {
	out := make([]error, 0, len(es))
	for _, e := range es {
		out = append(out, e)
	}
	return out
}

// OrNil returns nil for an empty collection so callers can `return errs.OrNil()`.
func (es ValidationErrors) OrNil() error {
	if len(es) == 0 {
		return nil
	}
	return es
}

// IsValidation reports whether err is (or wraps) a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// FieldErrors returns the failing field names of err, if any.
func FieldErrors(err error) []string {
	var es ValidationErrors
	if errors.As(err, &es) {
		out := make([]string, 0, len(es))
		for _, e := range es {
			out = append(out, e.Field)
		}
		return out
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return []string{ve.Field}
	}
	return nil
}
