package llm

const (
	ObjectChatCompletion = "chat.completion"
	ObjectChunk          = "chat.completion.chunk"

	RoleAssistant = "assistant"

	FinishReasonStop = "stop"
)

// ChatCompletion is the aggregated, non-streaming response.
type ChatCompletion struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []CompletionChoice `json:"choices"`
	Usage   Usage              `json:"usage"`
}

// CompletionChoice is a single choice in a ChatCompletion.
type CompletionChoice struct {
	Index        int           `json:"index"`
	Message      OutputMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

// OutputMessage is an assistant message with plain string content.
type OutputMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage is always reported as zero: the upstream does not expose token counts.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// NewChatCompletion builds a single-choice completion with zero usage.
func NewChatCompletion(id string, created int64, model, content string) *ChatCompletion {
	return &ChatCompletion{
		ID:      id,
		Object:  ObjectChatCompletion,
		Created: created,
		Model:   model,
		Choices: []CompletionChoice{{
			Index:        0,
			Message:      OutputMessage{Role: RoleAssistant, Content: content},
			FinishReason: FinishReasonStop,
		}},
	}
}
