package translate_test

import (
	"errors"
	"io"
	"strings"
	"testing/iotest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/puterbridge/pkg/translate"
)

var fixedNow = func() time.Time { return time.Unix(1700000000, 0) }

// drain collects every frame until io.EOF.
func drain(t *translate.Translator) []translate.Frame {
	var frames []translate.Frame
	for {
		f, err := t.Next()
		if errors.Is(err, io.EOF) {
			return frames
		}
		Expect(err).NotTo(HaveOccurred())
		frames = append(frames, f)
	}
}

func newTranslator(upstream string) *translate.Translator {
	return translate.NewTranslator(strings.NewReader(upstream), translate.Config{Model: "gpt-4o", Now: fixedNow})
}

var _ = Describe("Translator", func() {
	It("emits one chunk per text line, a stop chunk, then done", func() {
		t := newTranslator(`{"type":"text","text":"Hi"}` + "\n" + `{"type":"text","text":" there"}` + "\n")

		frames := drain(t)
		Expect(frames).To(HaveLen(4))

		Expect(frames[0].Kind).To(Equal(translate.FrameChunk))
		Expect(frames[0].Chunk.Text()).To(Equal("Hi"))
		Expect(frames[0].Chunk.ID).To(Equal("chatcmpl-1700000000"))
		Expect(frames[0].Chunk.Created).To(Equal(int64(1700000000)))
		Expect(frames[0].Chunk.Model).To(Equal("gpt-4o"))
		Expect(frames[0].Chunk.Choices[0].FinishReason).To(BeNil())

		Expect(frames[1].Chunk.Text()).To(Equal(" there"))

		Expect(frames[2].Kind).To(Equal(translate.FrameChunk))
		Expect(frames[2].Chunk.Text()).To(BeEmpty())
		Expect(*frames[2].Chunk.Choices[0].FinishReason).To(Equal("stop"))

		Expect(frames[3].Kind).To(Equal(translate.FrameDone))
		Expect(t.State()).To(Equal(translate.StateDone))
	})

	It("terminates an empty stream with stop and done", func() {
		frames := drain(newTranslator(""))

		Expect(frames).To(HaveLen(2))
		Expect(*frames[0].Chunk.Choices[0].FinishReason).To(Equal("stop"))
		Expect(frames[1].Kind).To(Equal(translate.FrameDone))
	})

	It("skips blank, malformed and unknown lines", func() {
		upstream := strings.Join([]string{
			"",
			"   ",
			`{"type":"text","text":"a"}`,
			`garbage{`,
			`{"type":"metadata","usage":{}}`,
			`{"type":"text","text":"b"}`,
		}, "\n")

		frames := drain(newTranslator(upstream))

		Expect(frames).To(HaveLen(4))
		Expect(frames[0].Chunk.Text()).To(Equal("a"))
		Expect(frames[1].Chunk.Text()).To(Equal("b"))
	})

	It("stops at the first error line with exactly one error frame", func() {
		upstream := strings.Join([]string{
			`{"type":"text","text":"one"}`,
			`{"type":"text","text":"two"}`,
			`{"error":"Model not found"}`,
			`{"type":"text","text":"never"}`,
		}, "\n")
		t := newTranslator(upstream)

		frames := drain(t)

		Expect(frames).To(HaveLen(3))
		Expect(frames[0].Chunk.Text()).To(Equal("one"))
		Expect(frames[1].Chunk.Text()).To(Equal("two"))
		Expect(frames[2].Kind).To(Equal(translate.FrameError))
		Expect(frames[2].Err.Message).To(Equal("Model not found"))
		Expect(errors.Is(frames[2].Err, translate.ErrUpstreamProtocol)).To(BeTrue())
		Expect(t.State()).To(Equal(translate.StateErrored))
	})

	It("ends with an error frame when an error line has an oddly typed field", func() {
		upstream := strings.Join([]string{
			`{"type":"text","text":"one"}`,
			`{"type":5,"error":"quota exceeded"}`,
		}, "\n")
		t := newTranslator(upstream)

		frames := drain(t)

		Expect(frames).To(HaveLen(2))
		Expect(frames[0].Chunk.Text()).To(Equal("one"))
		Expect(frames[1].Kind).To(Equal(translate.FrameError))
		Expect(frames[1].Err.Message).To(Equal("quota exceeded"))
		Expect(t.State()).To(Equal(translate.StateErrored))
	})

	It("reports a read failure as a transport error frame", func() {
		r := io.MultiReader(
			strings.NewReader(`{"type":"text","text":"partial"}`+"\n"),
			iotest.ErrReader(errors.New("connection reset")),
		)
		t := translate.NewTranslator(r, translate.Config{Model: "gpt-4o", Now: fixedNow})

		frames := drain(t)

		Expect(frames).To(HaveLen(2))
		Expect(frames[0].Chunk.Text()).To(Equal("partial"))
		Expect(frames[1].Kind).To(Equal(translate.FrameError))
		Expect(frames[1].Err.Message).To(Equal("connection reset"))
		Expect(errors.Is(frames[1].Err, translate.ErrTransport)).To(BeTrue())
		Expect(t.State()).To(Equal(translate.StateErrored))
	})

	It("keeps returning io.EOF after the terminal frame", func() {
		t := newTranslator("")
		drain(t)

		_, err := t.Next()
		Expect(err).To(MatchError(io.EOF))
	})
})

var _ = Describe("Aggregate", func() {
	It("concatenates the text of every chunk", func() {
		completion, err := translate.Aggregate(newTranslator(
			`{"type":"text","text":"Hi"}`+"\n"+`{"type":"text","text":" there"}`+"\n"), "gpt-4o", fixedNow())

		Expect(err).NotTo(HaveOccurred())
		Expect(completion.ID).To(Equal("chatcmpl-1700000000"))
		Expect(completion.Object).To(Equal("chat.completion"))
		Expect(completion.Model).To(Equal("gpt-4o"))
		Expect(completion.Choices).To(HaveLen(1))
		Expect(completion.Choices[0].Message.Role).To(Equal("assistant"))
		Expect(completion.Choices[0].Message.Content).To(Equal("Hi there"))
		Expect(completion.Choices[0].FinishReason).To(Equal("stop"))
		Expect(completion.Usage.TotalTokens).To(BeZero())
	})

	It("returns empty content for an empty stream", func() {
		completion, err := translate.Aggregate(newTranslator(""), "gpt-4o", fixedNow())

		Expect(err).NotTo(HaveOccurred())
		Expect(completion.Choices[0].Message.Content).To(BeEmpty())
	})

	It("returns the upstream error when the stream errors", func() {
		_, err := translate.Aggregate(newTranslator(`{"type":"text","text":"x"}`+"\n"+`{"success":false}`), "gpt-4o", fixedNow())

		Expect(err).To(MatchError(translate.ErrUpstreamProtocol))
		Expect(err.Error()).To(Equal(translate.UnknownUpstreamError))
	})
})
