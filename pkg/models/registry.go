package models

import (
	"slices"

	"github.com/papercomputeco/puterbridge/pkg/llm"
)

// OwnedBy is reported for every model in the listing.
const OwnedBy = "puter-bridge"

const (
	DefaultChatModel  = "gpt-4o-mini"
	DefaultImageModel = "gpt-image-1"
)

var defaultChatModels = []string{
	"gpt-4o-mini",
	"gpt-4o",
	"claude-3-5-sonnet",
	"gemini-2.0-flash",
	"deepseek-chat",
	"deepseek-reasoner",
	"gpt-4o-2024-11-20",
	"o1",
	"o1-mini",
	"o1-pro",
	"o3-mini",
	"claude-3-5-sonnet-20241022",
	"claude-3-5-haiku-20241022",
	"claude-3-7-sonnet-20250219",
	"claude-3-7-sonnet-latest",
	"gemini-2.0-flash-lite-001",
	"gemini-2.0-flash-001",
	"grok-2",
	"grok-2-vision",
	"grok-3",
	"grok-3-mini",
	"mistral-large-latest",
	"mistral-small-latest",
	"qwen-2.5-72b-instruct",
	"qwen-2.5-coder-32b-instruct",
	"llama-3.1-405b-instruct",
	"llama-3.3-70b-instruct",
}

var defaultImageModels = []string{
	"gpt-image-1",
}

// Registry is the immutable set of advertised models. Build it once at
// startup and share it freely.
type Registry struct {
	chat         []string
	image        []string
	defaultChat  string
	defaultImage string
}

// NewRegistry builds a Registry from the given lists. Empty lists fall back
// to the built-in tables. The first entry of each list becomes its default.
func NewRegistry(chat, image []string) *Registry {
	if len(chat) == 0 {
		chat = defaultChatModels
	}
	if len(image) == 0 {
		image = defaultImageModels
	}

	r := &Registry{
		chat:  slices.Clone(chat),
		image: slices.Clone(image),
	}
	r.defaultChat = r.chat[0]
	r.defaultImage = r.image[0]
	return r
}

// DefaultRegistry returns the built-in model tables.
func DefaultRegistry() *Registry {
	return NewRegistry(nil, nil)
}

// ChatModels returns a copy of the chat model names.
func (r *Registry) ChatModels() []string {
	return slices.Clone(r.chat)
}

// ImageModels returns a copy of the image model names.
func (r *Registry) ImageModels() []string {
	return slices.Clone(r.image)
}

func (r *Registry) DefaultChatModel() string {
	return r.defaultChat
}

func (r *Registry) DefaultImageModel() string {
	return r.defaultImage
}

// List renders the registry as an OpenAI model list, chat models first.
func (r *Registry) List(created int64) llm.ModelList {
	data := make([]llm.Model, 0, len(r.chat)+len(r.image))
	for _, id := range r.chat {
		data = append(data, llm.Model{ID: id, Object: "model", Created: created, OwnedBy: OwnedBy})
	}
	for _, id := range r.image {
		data = append(data, llm.Model{ID: id, Object: "model", Created: created, OwnedBy: OwnedBy})
	}
	return llm.ModelList{Object: "list", Data: data}
}
