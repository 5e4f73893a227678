package sse

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/papercomputeco/puterbridge/pkg/llm"
)

// ContentType is the media type of an SSE response.
const ContentType = "text/event-stream"

// Writer frames values as "data:" events. It does not buffer: every call
// performs exactly one Write on the destination.
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteJSON writes v as a single data event.
func (w *Writer) WriteJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return w.writeData(data)
}

// WriteError writes an in-band error event: data: {"error": message}.
func (w *Writer) WriteError(message string) error {
	return w.WriteJSON(llm.StreamError{Error: message})
}

// WriteDone writes the "[DONE]" terminator.
func (w *Writer) WriteDone() error {
	return w.writeData([]byte(DoneData))
}

func (w *Writer) writeData(data []byte) error {
	buf := make([]byte, 0, len(data)+8)
	buf = append(buf, "data: "...)
	buf = append(buf, data...)
	buf = append(buf, '\n', '\n')

	if _, err := w.w.Write(buf); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}
