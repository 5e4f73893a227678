package translate

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/papercomputeco/puterbridge/pkg/llm"
)

// FrameSource yields frames until io.EOF. *Translator is one.
type FrameSource interface {
	Next() (Frame, error)
}

// Aggregate drains src and returns one completion whose content is every
// chunk's text concatenated in order. The stop chunk and done frame add
// nothing. If the stream errored the upstream error is returned instead.
func Aggregate(src FrameSource, model string, now time.Time) (*llm.ChatCompletion, error) {
	var content strings.Builder

	for {
		frame, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading translated stream: %w", err)
		}

		switch frame.Kind {
		case FrameChunk:
			content.WriteString(frame.Chunk.Text())
		case FrameError:
			return nil, frame.Err
		case FrameDone:
		}
	}

	return llm.NewChatCompletion(fmt.Sprintf("chatcmpl-%d", now.Unix()), now.Unix(), model, content.String()), nil
}
