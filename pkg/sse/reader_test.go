package sse

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Reader", func() {
	Describe("Next", func() {
		It("parses a single event", func() {
			r := NewReader(strings.NewReader("data: hello world\n\n"))

			ev, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Data).To(Equal("hello world"))
			Expect(ev.Type).To(BeEmpty())

			ev, err = r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev).To(BeNil())
		})

		It("parses the done terminator", func() {
			r := NewReader(strings.NewReader("data: {\"a\":1}\n\ndata: [DONE]\n\n"))

			ev, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.IsDone()).To(BeFalse())

			ev, err = r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.IsDone()).To(BeTrue())
		})

		It("joins multiple data lines with a newline", func() {
			r := NewReader(strings.NewReader("data: first\ndata: second\n\n"))

			ev, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Data).To(Equal("first\nsecond"))
		})

		It("parses event type and id and skips comments", func() {
			r := NewReader(strings.NewReader(": keep-alive\nevent: delta\nid: 7\ndata: x\n\n"))

			ev, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Type).To(Equal("delta"))
			Expect(ev.ID).To(Equal("7"))
			Expect(ev.Data).To(Equal("x"))
		})

		It("yields a trailing event without a blank line", func() {
			r := NewReader(strings.NewReader("data: tail"))

			ev, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Data).To(Equal("tail"))
		})
	})

	Describe("tee", func() {
		It("copies raw bytes to the destination", func() {
			dst := &bytes.Buffer{}
			src := "data: a\n\ndata: b\n\n"
			r := NewTeeReader(strings.NewReader(src), dst)

			for {
				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				if ev == nil {
					break
				}
			}

			Expect(dst.String()).To(Equal(src))
		})
	})
})
