package translate

import "errors"

var (
	// ErrUpstreamProtocol marks an error reported in-band by the upstream.
	ErrUpstreamProtocol = errors.New("upstream protocol error")

	// ErrTransport marks a failure reading the upstream stream.
	ErrTransport = errors.New("upstream transport error")
)

// UpstreamError carries the message shown to the client and the class of
// failure.
type UpstreamError struct {
	Message string
	Kind    error
	Cause   error
}

func (e *UpstreamError) Error() string {
	return e.Message
}

// Is matches the failure class so errors.Is(err, ErrTransport) works.
func (e *UpstreamError) Is(target error) bool {
	return target == e.Kind
}

func (e *UpstreamError) Unwrap() error {
	return e.Cause
}
