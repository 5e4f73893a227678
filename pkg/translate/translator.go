// Package translate turns the upstream's newline-delimited JSON stream into
// OpenAI chat completion chunks.
package translate

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/puterbridge/pkg/llm"
)

// State of a Translator.
type State int

const (
	StateStreaming State = iota
	StateErrored
	StateDone
)

func (s State) String() string {
	switch s {
	case StateStreaming:
		return "streaming"
	case StateErrored:
		return "errored"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// FrameKind tags a Frame.
type FrameKind int

const (
	FrameChunk FrameKind = iota
	FrameError
	FrameDone
)

// Frame is one client-visible unit of output.
type Frame struct {
	Kind FrameKind

	// Chunk is set for FrameChunk.
	Chunk *llm.ChatCompletionChunk

	// Err is set for FrameError.
	Err *UpstreamError
}

// Config configures a Translator.
type Config struct {
	// Model is echoed on every chunk.
	Model string

	// Now stamps ids and created times. Defaults to time.Now.
	Now func() time.Time

	Logger *zap.Logger
}

// Translator reads upstream lines one at a time and yields frames:
// any number of chunks followed by exactly one terminal outcome. A clean
// stream ends with a stop chunk and FrameDone. A failed stream ends with a
// single FrameError. Next returns io.EOF once the terminal frame was
// delivered.
type Translator struct {
	scanner *bufio.Scanner
	model   string
	now     func() time.Time
	logger  *zap.Logger

	state       State
	stopEmitted bool
	finished    bool
}

// NewTranslator returns a Translator over r.
func NewTranslator(r io.Reader, c Config) *Translator {
	scanner := bufio.NewScanner(r)
	// Increase buffer size for large chunks
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	t := &Translator{
		scanner: scanner,
		model:   c.Model,
		now:     c.Now,
		logger:  c.Logger,
	}
	if t.now == nil {
		t.now = time.Now
	}
	if t.logger == nil {
		t.logger = zap.NewNop()
	}
	return t
}

// State returns the current state.
func (t *Translator) State() State {
	return t.state
}

// Next returns the next frame, or io.EOF after the terminal frame.
func (t *Translator) Next() (Frame, error) {
	if t.finished {
		return Frame{}, io.EOF
	}

	if t.stopEmitted {
		t.finished = true
		return Frame{Kind: FrameDone}, nil
	}

	for t.scanner.Scan() {
		line := t.scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		ev, ok := DecodeEvent(line)
		if !ok {
			t.logger.Debug("dropping malformed upstream line", zap.String("line", truncate(string(line), 100)))
			continue
		}

		switch ev.Kind {
		case EventText:
			return Frame{Kind: FrameChunk, Chunk: llm.NewContentChunk(t.id(), t.created(), t.model, ev.Text)}, nil
		case EventError:
			t.logger.Error("upstream reported error", zap.String("message", ev.Message))
			return t.fail(&UpstreamError{Message: ev.Message, Kind: ErrUpstreamProtocol}), nil
		default:
			t.logger.Debug("ignoring upstream line", zap.String("line", truncate(string(line), 100)))
		}
	}

	if err := t.scanner.Err(); err != nil {
		t.logger.Error("error reading upstream stream", zap.Error(err))
		return t.fail(&UpstreamError{Message: err.Error(), Kind: ErrTransport, Cause: err}), nil
	}

	t.state = StateDone
	t.stopEmitted = true
	return Frame{Kind: FrameChunk, Chunk: llm.NewStopChunk(t.id(), t.created(), t.model)}, nil
}

func (t *Translator) fail(err *UpstreamError) Frame {
	t.state = StateErrored
	t.finished = true
	return Frame{Kind: FrameError, Err: err}
}

func (t *Translator) id() string {
	return fmt.Sprintf("chatcmpl-%d", t.now().Unix())
}

func (t *Translator) created() int64 {
	return t.now().Unix()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
