package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// NetworkError indicates the remote API was unreachable or the request
// timed out. Network errors are always retryable.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("apiclient: network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ServerError indicates the remote API answered with a non-2xx status.
type ServerError struct {
	Status int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("apiclient: server returned status %d", e.Status)
}

// IsRetryable reports whether a failed call may succeed if repeated.
// Network failures and timeouts are retryable, as are 5xx responses.
// Client errors are not: in particular 401/403 mean the session is dead
// and retrying cannot help.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}

	var srvErr *ServerError
	if errors.As(err, &srvErr) {
		return srvErr.Status >= http.StatusInternalServerError
	}

	var nErr net.Error
	if errors.As(err, &nErr) {
		return nErr.Timeout()
	}

	return false
}

// IsAuthError reports whether the error is an authentication or
// authorization failure (401/403). Auth errors must stop polling
// immediately: the session is gone and every retry would fail the same way.
func IsAuthError(err error) bool {
	var srvErr *ServerError
	if errors.As(err, &srvErr) {
		return srvErr.Status == http.StatusUnauthorized || srvErr.Status == http.StatusForbidden
	}
	return false
}
