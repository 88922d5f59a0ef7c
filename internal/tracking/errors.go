package tracking

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownParcel is returned when a carrier reports that the tracking number does not exist.
	ErrUnknownParcel = errors.New("tracking: unknown parcel")
	// ErrMalformedData is matched by every ParseError.
	ErrMalformedData = errors.New("tracking: malformed carrier data")
	// ErrUnsupportedIdentifier is returned when no decoder accepts an identifier.
	ErrUnsupportedIdentifier = errors.New("tracking: unsupported identifier")
)

// ParseError reports carrier data outside the grammar a parser understands.
type ParseError struct {
	Carrier string
	Field   string
	Input   string
	Err     error
}

// NewParseError constructs a ParseError for carrier and field.
func NewParseError(carrier, field, input string, err error) *ParseError {
	return &ParseError{Carrier: carrier, Field: field, Input: input, Err: err}
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s: malformed %s %q", e.Carrier, e.Field, truncate(e.Input, 80))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is makes every ParseError match ErrMalformedData.
func (e *ParseError) Is(target error) bool {
	return target == ErrMalformedData
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
