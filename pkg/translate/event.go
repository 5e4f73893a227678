package translate

import (
	"bytes"
	"encoding/json"
)

// UnknownUpstreamError is reported when an error line carries no usable message.
const UnknownUpstreamError = "Unknown upstream error"

// EventKind tags a decoded upstream line.
type EventKind int

const (
	// EventUnknown is any well-formed line the bridge does not act on.
	EventUnknown EventKind = iota

	// EventText carries a text fragment.
	EventText

	// EventError reports an upstream failure.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventText:
		return "text"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one decoded upstream line.
type Event struct {
	Kind    EventKind
	Text    string
	Message string
}

// DecodeEvent classifies one upstream line. ok is false for lines that are
// not valid JSON; callers drop those.
//
// A line is an error when its "error" field is truthy or "success" is
// literally false. A text event needs type "text" and a string "text".
// The error check runs before any other field is looked at, so an error
// line is never masked by an oddly typed sibling field. Valid JSON that is
// not an object decodes as EventUnknown.
func DecodeEvent(line []byte) (ev Event, ok bool) {
	line = bytes.TrimSpace(line)
	if !json.Valid(line) {
		return Event{}, false
	}
	if len(line) == 0 || line[0] != '{' {
		return Event{Kind: EventUnknown}, true
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		return Event{Kind: EventUnknown}, true
	}

	if truthy(fields["error"]) || isFalse(fields["success"]) {
		return Event{Kind: EventError, Message: errorMessage(fields["error"])}, true
	}

	var typ, text string
	if json.Unmarshal(fields["type"], &typ) == nil && typ == "text" {
		if raw, ok := fields["text"]; ok && json.Unmarshal(raw, &text) == nil {
			return Event{Kind: EventText, Text: text}, true
		}
	}

	return Event{Kind: EventUnknown}, true
}

// errorMessage extracts a human message from the "error" field: a string,
// or an object with a string "message".
func errorMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return UnknownUpstreamError
	}

	var s string
	if json.Unmarshal(raw, &s) == nil && s != "" {
		return s
	}

	var obj struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &obj) == nil && obj.Message != "" {
		return obj.Message
	}

	return UnknownUpstreamError
}

// truthy mirrors JSON truthiness: null, false, 0, "", [] and {} are falsy.
func truthy(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}

	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

func isFalse(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "false"
}
