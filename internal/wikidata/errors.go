package wikidata

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("wikidata returned status %d", e.code)
}

type transportError struct {
	err error
}

func (e *transportError) Error() string {
	return fmt.Sprintf("execute request: %v", e.err)
}

func (e *transportError) Unwrap() error { return e.err }

// IsRetriable reports whether an error from this client is worth retrying:
// rate limiting, server-side failures, and transport-level errors such as
// timeouts. Context cancellation is never retriable.
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var status *statusError
	if errors.As(err, &status) {
		switch status.code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var transport *transportError
	return errors.As(err, &transport)
}
