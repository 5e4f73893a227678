package upstream_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/puterbridge/pkg/upstream"
)

var _ = Describe("Payload", func() {
	It("routes chat payloads to the model's driver", func() {
		Expect(upstream.NewChatPayload("t", "gemini-2.0-flash", nil).Driver).To(Equal("gemini"))
		Expect(upstream.NewChatPayload("t", "grok-3", nil).Driver).To(Equal("xai"))
		Expect(upstream.NewChatPayload("t", "deepseek-chat", nil).Driver).To(Equal("openai-completion"))
	})

	It("never enables test mode", func() {
		Expect(upstream.NewChatPayload("t", "gpt-4o", nil).TestMode).To(BeFalse())
		Expect(upstream.NewImagePayload("t", "gpt-image-1", "", "p").TestMode).To(BeFalse())
	})

	It("keeps an explicit image quality", func() {
		args := upstream.NewImagePayload("t", "gpt-image-1", "low", "p").Args.(upstream.ImageArgs)
		Expect(args.Quality).To(Equal("low"))
	})
})
