package models_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/puterbridge/pkg/models"
)

var _ = Describe("DriverFor", func() {
	DescribeTable("maps model names to drivers",
		func(model string, expected models.Driver) {
			Expect(models.DriverFor(model)).To(Equal(expected))
		},
		Entry("gpt family", "gpt-4o", models.DriverOpenAI),
		Entry("o1 reasoning", "o1-mini", models.DriverOpenAI),
		Entry("o3 reasoning", "o3-mini", models.DriverOpenAI),
		Entry("o4 reasoning", "o4-mini", models.DriverOpenAI),
		Entry("claude family", "claude-3-5-sonnet", models.DriverClaude),
		Entry("gemini family", "gemini-2.0-flash", models.DriverGemini),
		Entry("grok family", "grok-3", models.DriverXAI),
		Entry("unknown model", "mistral-large-latest", models.DriverOpenAI),
		Entry("empty model", "", models.DriverOpenAI),
	)

	It("matches on prefix only", func() {
		Expect(models.DriverFor("my-claude")).To(Equal(models.DriverOpenAI))
	})
})
