// Package sse provides a minimal SSE (Server-Sent Events) writer for the
// bridge's OpenAI-compatible streams and a reader for consuming them.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// DoneData is the payload of the OpenAI stream terminator.
const DoneData = "[DONE]"

// Event represents a single parsed SSE event, delimited by a blank line
// in the byte stream.
type Event struct {
	// Type is the SSE event type from the "event:" field.
	// An empty string means the default "message" type per the SSE spec.
	Type string

	// Data is the concatenated contents of all "data:" lines for this event,
	// joined with "\n".
	Data string

	// ID is the last event ID from the "id:" field, if present.
	ID string
}

// IsDone reports whether the event is the "[DONE]" terminator.
func (e *Event) IsDone() bool {
	return e.Data == DoneData
}
