package llm

// ChatCompletionChunk is one streamed delta.
type ChatCompletionChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
}

// ChunkChoice is a single choice in a ChatCompletionChunk.
// FinishReason marshals as null until the stream stops.
type ChunkChoice struct {
	Index        int     `json:"index"`
	Delta        Delta   `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

// Delta holds the incremental content. The stop chunk carries an empty delta.
type Delta struct {
	Content string `json:"content,omitempty"`
}

// NewContentChunk returns a chunk carrying text with a null finish reason.
func NewContentChunk(id string, created int64, model, text string) *ChatCompletionChunk {
	return &ChatCompletionChunk{
		ID:      id,
		Object:  ObjectChunk,
		Created: created,
		Model:   model,
		Choices: []ChunkChoice{{Index: 0, Delta: Delta{Content: text}}},
	}
}

// NewStopChunk returns the terminal chunk with an empty delta and "stop".
func NewStopChunk(id string, created int64, model string) *ChatCompletionChunk {
	reason := FinishReasonStop
	return &ChatCompletionChunk{
		ID:      id,
		Object:  ObjectChunk,
		Created: created,
		Model:   model,
		Choices: []ChunkChoice{{Index: 0, FinishReason: &reason}},
	}
}

// Text returns the delta content of the first choice.
func (c *ChatCompletionChunk) Text() string {
	if len(c.Choices) == 0 {
		return ""
	}
	return c.Choices[0].Delta.Content
}
