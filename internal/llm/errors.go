package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// TransportError reports a failure to reach the provider or a non-success status:
// network errors, authentication, rate limiting and timeouts.
type TransportError struct {
	Provider   Provider
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s transport error (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s transport error: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the call ran out of time.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// BackendError reports a provider response that carried no usable content.
type BackendError struct {
	Provider Provider
	Reason   string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s returned an unusable response: %s", e.Provider, e.Reason)
}

// statusError builds a TransportError from an HTTP status and a body excerpt.
// Bodies are cut short so provider echoes of request data stay out of logs.
func statusError(p Provider, status int, body []byte) *TransportError {
	msg := string(body)
	if r := []rune(msg); len(r) > 300 {
		msg = string(r[:300]) + "..."
	}
	return &TransportError{Provider: p, StatusCode: status, Err: fmt.Errorf("API error: %s", msg)}
}
