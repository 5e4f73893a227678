package upstream_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/puterbridge/pkg/llm"
	"github.com/papercomputeco/puterbridge/pkg/upstream"
)

var _ = Describe("Client", func() {
	var (
		ctx      context.Context
		server   *httptest.Server
		handler  http.HandlerFunc
		captured *http.Request
		body     map[string]any
	)

	BeforeEach(func() {
		ctx = context.Background()
		captured = nil
		body = nil
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = r.Clone(context.Background())
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, &body)
			handler(w, r)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	newClient := func(chatTimeout time.Duration) *upstream.Client {
		return upstream.NewClient(upstream.Config{URL: server.URL, ChatTimeout: chatTimeout})
	}

	Describe("OpenStream", func() {
		It("sends the fixed headers and the chat payload", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, `{"type":"text","text":"Hi"}`+"\n")
			}

			payload := upstream.NewChatPayload("tok", "claude-3-5-sonnet", []llm.Message{llm.NewTextMessage("user", "hello")})
			rc, err := newClient(0).OpenStream(ctx, payload)
			Expect(err).NotTo(HaveOccurred())
			defer rc.Close()

			out, err := io.ReadAll(rc)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(out)).To(Equal(`{"type":"text","text":"Hi"}` + "\n"))

			Expect(captured.Method).To(Equal(http.MethodPost))
			Expect(captured.Header.Get("Content-Type")).To(Equal("application/json"))
			Expect(captured.Header.Get("Accept")).To(Equal("*/*"))
			Expect(captured.Header.Get("Origin")).To(Equal(upstream.DefaultOrigin))
			Expect(captured.Header.Get("Referer")).To(Equal(upstream.DefaultReferer))
			Expect(captured.Header.Get("User-Agent")).To(Equal(upstream.DefaultUserAgent))

			Expect(body).To(HaveKeyWithValue("interface", "puter-chat-completion"))
			Expect(body).To(HaveKeyWithValue("driver", "claude"))
			Expect(body).To(HaveKeyWithValue("test_mode", false))
			Expect(body).To(HaveKeyWithValue("method", "complete"))
			Expect(body).To(HaveKeyWithValue("auth_token", "tok"))
			args := body["args"].(map[string]any)
			Expect(args).To(HaveKeyWithValue("model", "claude-3-5-sonnet"))
			Expect(args).To(HaveKeyWithValue("stream", true))
			Expect(args["messages"]).To(HaveLen(1))
		})

		It("returns a StatusError for non-200 responses", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, "bad token")
			}

			_, err := newClient(0).OpenStream(ctx, upstream.NewChatPayload("tok", "gpt-4o", nil))
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, upstream.ErrUnavailable)).To(BeTrue())

			var statusErr *upstream.StatusError
			Expect(errors.As(err, &statusErr)).To(BeTrue())
			Expect(statusErr.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(statusErr.Body).To(Equal("bad token"))
			Expect(statusErr.Error()).To(Equal("Upstream error: 401"))
		})

		It("fails a stream that stays idle past the chat timeout", func() {
			release := make(chan struct{})
			handler = func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, `{"type":"text","text":"Hi"}`+"\n")
				w.(http.Flusher).Flush()
				<-release
			}
			defer close(release)

			rc, err := newClient(100*time.Millisecond).OpenStream(ctx, upstream.NewChatPayload("tok", "gpt-4o", nil))
			Expect(err).NotTo(HaveOccurred())
			defer rc.Close()

			_, err = io.ReadAll(rc)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, upstream.ErrUnavailable)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("idle"))
		})

		It("does not count time the consumer spends between reads", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, "a\n")
				w.(http.Flusher).Flush()
				time.Sleep(50 * time.Millisecond)
				_, _ = io.WriteString(w, "b\n")
			}

			rc, err := newClient(200*time.Millisecond).OpenStream(ctx, upstream.NewChatPayload("tok", "gpt-4o", nil))
			Expect(err).NotTo(HaveOccurred())
			defer rc.Close()

			buf := make([]byte, 64)
			n, err := rc.Read(buf)
			Expect(err).NotTo(HaveOccurred())
			first := string(buf[:n])

			time.Sleep(400 * time.Millisecond)

			rest, err := io.ReadAll(rc)
			Expect(err).NotTo(HaveOccurred())
			Expect(first + string(rest)).To(Equal("a\nb\n"))
		})
	})

	Describe("Call", func() {
		It("returns the raw body of an image call", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
			}

			out, err := newClient(0).Call(ctx, upstream.NewImagePayload("tok", "gpt-image-1", "", "a cat"))
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal([]byte{0x89, 'P', 'N', 'G'}))

			Expect(body).To(HaveKeyWithValue("interface", "puter-image-generation"))
			Expect(body).To(HaveKeyWithValue("driver", "openai-image-generation"))
			Expect(body).To(HaveKeyWithValue("method", "generate"))
			Expect(body["args"]).To(Equal(map[string]any{
				"model":   "gpt-image-1",
				"quality": "high",
				"prompt":  "a cat",
			}))
		})

		It("returns a StatusError for non-200 responses", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}

			_, err := newClient(0).Call(ctx, upstream.NewImagePayload("tok", "gpt-image-1", "low", "a cat"))
			Expect(err).To(MatchError(upstream.ErrUnavailable))
		})
	})

	It("wraps transport failures as unavailable", func() {
		handler = func(http.ResponseWriter, *http.Request) {}
		url := server.URL
		server.Close()

		client := upstream.NewClient(upstream.Config{URL: url})
		_, err := client.Call(ctx, upstream.NewImagePayload("tok", "gpt-image-1", "", "x"))
		Expect(errors.Is(err, upstream.ErrUnavailable)).To(BeTrue())
	})

	It("bounds a stalled TLS handshake by the chat timeout", func() {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		defer ln.Close()

		// Accept connections and never answer the handshake.
		go func() {
			for {
				conn, err := ln.Accept()
				if err != nil {
					return
				}
				defer conn.Close()
			}
		}()

		client := upstream.NewClient(upstream.Config{
			URL:         "https://" + ln.Addr().String(),
			ChatTimeout: 200 * time.Millisecond,
		})

		done := make(chan error, 1)
		go func() {
			_, err := client.OpenStream(ctx, upstream.NewChatPayload("tok", "gpt-4o", nil))
			done <- err
		}()

		var openErr error
		Eventually(done, 2*time.Second).Should(Receive(&openErr))
		Expect(errors.Is(openErr, upstream.ErrUnavailable)).To(BeTrue())
	})
})
