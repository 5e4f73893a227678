package models_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/puterbridge/pkg/models"
)

var _ = Describe("Registry", func() {
	Describe("DefaultRegistry", func() {
		var r *models.Registry

		BeforeEach(func() {
			r = models.DefaultRegistry()
		})

		It("uses the built-in defaults", func() {
			Expect(r.DefaultChatModel()).To(Equal(models.DefaultChatModel))
			Expect(r.DefaultImageModel()).To(Equal(models.DefaultImageModel))
			Expect(r.ChatModels()).To(HaveLen(27))
			Expect(r.ImageModels()).To(ConsistOf("gpt-image-1"))
		})

		It("returns copies that do not alias internal state", func() {
			chat := r.ChatModels()
			chat[0] = "mutated"

			Expect(r.ChatModels()[0]).To(Equal("gpt-4o-mini"))
		})

		It("lists chat then image models owned by the bridge", func() {
			list := r.List(1700000000)

			Expect(list.Object).To(Equal("list"))
			Expect(list.Data).To(HaveLen(28))
			Expect(list.Data[0].ID).To(Equal("gpt-4o-mini"))
			Expect(list.Data[27].ID).To(Equal("gpt-image-1"))
			for _, m := range list.Data {
				Expect(m.Object).To(Equal("model"))
				Expect(m.OwnedBy).To(Equal("puter-bridge"))
				Expect(m.Created).To(Equal(int64(1700000000)))
			}
		})
	})

	Describe("NewRegistry", func() {
		It("takes the first entry of each list as default", func() {
			r := models.NewRegistry([]string{"claude-3-5-sonnet", "gpt-4o"}, []string{"dall-e-3"})

			Expect(r.DefaultChatModel()).To(Equal("claude-3-5-sonnet"))
			Expect(r.DefaultImageModel()).To(Equal("dall-e-3"))
			Expect(r.List(0).Data).To(HaveLen(3))
		})

		It("is not affected by later mutation of the input", func() {
			chat := []string{"gpt-4o"}
			r := models.NewRegistry(chat, nil)
			chat[0] = "mutated"

			Expect(r.ChatModels()).To(ConsistOf("gpt-4o"))
		})
	})
})
