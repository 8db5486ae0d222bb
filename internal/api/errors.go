package api

import (
	"errors"
	"fmt"
)

// TransportError reports a request that never produced a usable response:
// the dial failed, the connection dropped, or the body was not valid JSON.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError is a non-2xx response from the backend. Message carries the
// backend's detail text.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d)", e.Message, e.StatusCode)
}

// ExpiredMailboxError indicates the status check found no mailbox.
type ExpiredMailboxError struct {
	InboxID string
}

func (e *ExpiredMailboxError) Error() string {
	return fmt.Sprintf("inbox %s not found or expired", e.InboxID)
}

// IsTransportError reports whether err (or any error in its chain) is a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsAPIError reports whether err (or any error in its chain) is an APIError.
func IsAPIError(err error) bool {
	var ae *APIError
	return errors.As(err, &ae)
}

// IsExpired reports whether err (or any error in its chain) is an ExpiredMailboxError.
func IsExpired(err error) bool {
	var ee *ExpiredMailboxError
	return errors.As(err, &ee)
}

// StatusCode returns the HTTP status of an APIError in err's chain, or 0.
func StatusCode(err error) int {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.StatusCode
	}
	return 0
}
