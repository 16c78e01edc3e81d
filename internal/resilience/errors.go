package resilience

import (
	"errors"
	"net"
	"syscall"
)

// TransientError marks an error as safe to retry. The Copper client
// attaches the HTTP status that produced it.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps err as retryable, recording the HTTP status
// (0 when the failure was not an HTTP response).
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// IsTransient reports whether err is retryable: an explicit
// TransientError anywhere in the chain, a network timeout, or a
// connection-level failure from the HTTP transport.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED)
}

// IsTransientHTTPStatus reports whether a Copper response status is
// worth retrying: rate limiting, timeouts, and server-side 5xx.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
