// Package models maps requested model names onto upstream drivers and holds
// the static registry of advertised models.
package models

import "strings"

// Driver is the upstream backend selector for a model family.
type Driver string

const (
	DriverOpenAI Driver = "openai-completion"
	DriverClaude Driver = "claude"
	DriverGemini Driver = "gemini"
	DriverXAI    Driver = "xai"

	// DriverOpenAIImage is the fixed driver for image generation.
	DriverOpenAIImage Driver = "openai-image-generation"
)

type prefixRule struct {
	prefixes []string
	driver   Driver
}

// rules are evaluated in order, first match wins.
var rules = []prefixRule{
	{prefixes: []string{"gpt", "o1", "o3", "o4"}, driver: DriverOpenAI},
	{prefixes: []string{"claude"}, driver: DriverClaude},
	{prefixes: []string{"gemini"}, driver: DriverGemini},
	{prefixes: []string{"grok"}, driver: DriverXAI},
}

// DriverFor returns the upstream driver for a model name. Unknown names fall
// back to the OpenAI driver.
func DriverFor(model string) Driver {
	for _, rule := range rules {
		for _, p := range rule.prefixes {
			if strings.HasPrefix(model, p) {
				return rule.driver
			}
		}
	}
	return DriverOpenAI
}

func (d Driver) String() string {
	return string(d)
}
