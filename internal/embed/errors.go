package embed

import (
	"errors"
	"fmt"
)

// ErrBlankInput is returned when the input text is empty or blank.
var ErrBlankInput = errors.New("embedding input text cannot be blank")

// UnavailableError is the terminal failure of a Provider: retries were
// exhausted, or a non-retryable error (4xx, empty response, wrong
// dimensions) occurred. Cause carries the last underlying error for
// diagnostics.
type UnavailableError struct {
	Reason string
	Cause  error
}

func (e *UnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("embedding service unavailable: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("embedding service unavailable: %s", e.Reason)
}

func (e *UnavailableError) Unwrap() error {
	return e.Cause
}

// IsUnavailable reports whether err is (or wraps) an *UnavailableError.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}
