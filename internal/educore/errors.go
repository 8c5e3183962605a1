package educore

import (
	"errors"
	"fmt"
)

// ErrTransport wraps failures to reach the server or read its response
var ErrTransport = errors.New("educore transport failure")

// APIError is an application level failure reported by the server, either as
// a non-2xx status or as success:false in the response envelope
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("educore API error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("educore API error (status %d): %s", e.StatusCode, e.Message)
}

// IsTransport reports whether err is a network/transport failure
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsAPIError reports whether err is an application level failure
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

func transportError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
}
