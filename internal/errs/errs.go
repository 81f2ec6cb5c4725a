package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Error classes shared by every stage of a review run. Wrap them with
// fmt.Errorf("...: %w", ErrX) and classify with errors.Is.
var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrExternalCall      = errors.New("external call failed")
	ErrTimeout           = errors.New("timed out")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrUnknownModel      = errors.New("unknown model")
	ErrParse             = errors.New("parse error")
)

// ParseError reports a structured model response that did not follow the
// required format. Line is 1-based; 0 means the response as a whole.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error at line %d: %s", e.Line, e.Reason)
	}
	return "parse error: " + e.Reason
}

func (e *ParseError) Unwrap() error { return ErrParse }

// Validation returns an ErrValidation-wrapped error with a formatted message.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// External wraps err as a failed call to the named collaborator.
func External(service string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrExternalCall, service, err)
}

// HTTPStatus maps an error to the status code a function handler returns.
// Only caller mistakes are 4xx.
func HTTPStatus(err error) int {
	if errors.Is(err, ErrValidation) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
