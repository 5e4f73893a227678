package llm

// ImageRequest is an OpenAI-compatible image generation request.
type ImageRequest struct {
	Prompt  string `json:"prompt"`
	Model   string `json:"model,omitempty"`
	Quality string `json:"quality,omitempty"`
	N       int    `json:"n,omitempty"`
	Size    string `json:"size,omitempty"`
}

// ImageResponse carries the generated image as base64.
type ImageResponse struct {
	Created int64       `json:"created"`
	Data    []ImageData `json:"data"`
}

// ImageData is one generated image.
type ImageData struct {
	B64JSON string `json:"b64_json"`
}
