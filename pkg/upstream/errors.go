package upstream

import (
	"errors"
	"fmt"
)

// ErrUnavailable is returned for non-200 responses, transport failures and
// timeouts.
var ErrUnavailable = errors.New("upstream unavailable")

// StatusError is returned when the upstream answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Upstream error: %d", e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return ErrUnavailable
}

// transportError wraps a dial, TLS or timeout failure.
type transportError struct {
	err error
}

func (e *transportError) Error() string {
	return "upstream request failed: " + e.err.Error()
}

func (e *transportError) Is(target error) bool {
	return target == ErrUnavailable
}

func (e *transportError) Unwrap() error {
	return e.err
}
