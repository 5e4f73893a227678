// Package llm provides the OpenAI-compatible wire types served by the bridge:
// chat requests and completions, streaming chunks, image generation and
// model listings.
package llm

// ErrorResponse is the OpenAI error envelope returned for request-level failures.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the message, type and optional code of an error.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

// Error types used in ErrorDetail.Type.
const (
	ErrTypeInvalidRequest = "invalid_request_error"
	ErrTypeServer         = "server_error"
	ErrTypeUpstream       = "upstream_error"
	ErrTypeUnavailable    = "service_unavailable"
)

// NewErrorResponse builds an ErrorResponse.
func NewErrorResponse(errType, message string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Message: message, Type: errType}}
}

// StreamError is the payload of an in-band SSE error event.
type StreamError struct {
	Error string `json:"error"`
}
