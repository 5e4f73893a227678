package upstream

import (
	"encoding/json"

	"github.com/papercomputeco/puterbridge/pkg/llm"
	"github.com/papercomputeco/puterbridge/pkg/models"
)

const (
	InterfaceChat  = "puter-chat-completion"
	InterfaceImage = "puter-image-generation"

	MethodComplete = "complete"
	MethodGenerate = "generate"

	DefaultImageQuality = "high"
)

// Payload is the body of one upstream driver call.
type Payload struct {
	Interface string `json:"interface"`
	Driver    string `json:"driver"`
	TestMode  bool   `json:"test_mode"`
	Method    string `json:"method"`
	Args      any    `json:"args"`
	AuthToken string `json:"auth_token"`
}

// ChatArgs are the arguments of a chat completion call.
type ChatArgs struct {
	Messages []llm.Message `json:"messages"`
	Model    string        `json:"model"`
	Stream   bool          `json:"stream"`
}

// ImageArgs are the arguments of an image generation call.
type ImageArgs struct {
	Model   string `json:"model"`
	Quality string `json:"quality"`
	Prompt  string `json:"prompt"`
}

// NewChatPayload builds a streaming chat call for the model's driver.
// The upstream is always asked to stream; non-streaming callers aggregate.
func NewChatPayload(token, model string, messages []llm.Message) Payload {
	if messages == nil {
		messages = []llm.Message{}
	}
	return Payload{
		Interface: InterfaceChat,
		Driver:    models.DriverFor(model).String(),
		Method:    MethodComplete,
		Args: ChatArgs{
			Messages: messages,
			Model:    model,
			Stream:   true,
		},
		AuthToken: token,
	}
}

// NewImagePayload builds an image generation call. An empty quality
// defaults to "high".
func NewImagePayload(token, model, quality, prompt string) Payload {
	if quality == "" {
		quality = DefaultImageQuality
	}
	return Payload{
		Interface: InterfaceImage,
		Driver:    models.DriverOpenAIImage.String(),
		Method:    MethodGenerate,
		Args: ImageArgs{
			Model:   model,
			Quality: quality,
			Prompt:  prompt,
		},
		AuthToken: token,
	}
}

func (p Payload) marshal() ([]byte, error) {
	return json.Marshal(p)
}
