package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/papercomputeco/puterbridge/pkg/llm"
	"github.com/papercomputeco/puterbridge/pkg/metrics"
	"github.com/papercomputeco/puterbridge/pkg/sse"
	"github.com/papercomputeco/puterbridge/pkg/translate"
	"github.com/papercomputeco/puterbridge/pkg/upstream"
)

const (
	requestIDHeader = "X-Request-Id"
	requestIDLocal  = "request_id"
)

// instrument tags every request with an id and records request metrics.
func (b *Bridge) instrument(c *fiber.Ctx) error {
	start := time.Now()

	requestID := c.Get(requestIDHeader)
	if requestID == "" {
		requestID = uuid.New().String()
	}
	c.Locals(requestIDLocal, requestID)
	c.Set(requestIDHeader, requestID)

	err := c.Next()

	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}

	route := c.Route().Path
	metrics.RequestsTotal.WithLabelValues(route, metrics.StatusClass(status)).Inc()
	metrics.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())

	return err
}

// handleChat serves chat completions. The upstream always streams; callers
// that did not ask for a stream get the aggregated result.
func (b *Bridge) handleChat(c *fiber.Ctx) error {
	startTime := time.Now()
	logger := b.requestLogger(c)

	var req llm.ChatRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		logger.Error("failed to parse request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(llm.NewErrorResponse(llm.ErrTypeInvalidRequest, "invalid request body"))
	}

	logger.Debug("received chat request",
		zap.String("model", req.Model),
		zap.Int("message_count", len(req.Messages)),
		zap.Bool("stream", req.Stream),
	)

	if req.Stream {
		return b.handleStreamingChat(c, &req, logger, startTime)
	}
	return b.handleNonStreamingChat(c, &req, logger, startTime)
}

func (b *Bridge) handleNonStreamingChat(c *fiber.Ctx, req *llm.ChatRequest, logger *zap.Logger, startTime time.Time) error {
	// fasthttp offers no disconnect signal to a running handler, so the
	// call is bounded by the upstream timeout and by Shutdown.
	completion, err := b.Chat(b.ctx, req)
	if err != nil {
		logger.Error("chat completion failed", zap.Error(err))
		return b.writeError(c, err)
	}

	logger.Debug("chat completion done",
		zap.String("model", completion.Model),
		zap.String("content_preview", truncate(completion.Choices[0].Message.Content, 100)),
		zap.Duration("duration", time.Since(startTime)),
	)

	return c.JSON(completion)
}

func (b *Bridge) handleStreamingChat(c *fiber.Ctx, req *llm.ChatRequest, logger *zap.Logger, startTime time.Time) error {
	// Not c.Context(): fasthttp recycles its RequestCtx after the handler
	// returns, while the stream keeps reading the upstream in a separate
	// goroutine.
	ctx, cancel := context.WithCancel(b.ctx)

	stream, err := b.ChatStream(ctx, req)
	if err != nil {
		cancel()

		if !errors.Is(err, upstream.ErrUnavailable) {
			logger.Warn("rejecting streaming chat", zap.Error(err))
			return b.writeError(c, err)
		}

		logger.Error("upstream stream failed to open", zap.Error(err))
		// Upstream failures are reported in-band so SSE clients see a
		// well-formed stream.
		setSSEHeaders(c)
		return sse.NewWriter(c).WriteError(streamErrorMessage(err))
	}

	setSSEHeaders(c)

	// io.Pipe gives per-chunk backpressure: pw.Write blocks until fasthttp
	// has flushed the previous chunk to the client.
	pr, pw := io.Pipe()
	go b.pipeStream(stream, pw, cancel, logger, startTime)

	// Unknown size (-1) triggers chunked transfer encoding in fasthttp.
	c.Context().Response.SetBodyStream(newStreamBody(pr, cancel), -1)

	return nil
}

// streamBody is the response body handed to fasthttp. fasthttp closes it
// once the response is written or a write to the client fails, and closing
// it cancels the upstream request without waiting for pipeStream's next
// write. A client that vanishes while the upstream is silent is only noticed
// when the next chunk is written or the upstream idle timeout fires.
type streamBody struct {
	*io.PipeReader
	cancel context.CancelFunc
}

func newStreamBody(pr *io.PipeReader, cancel context.CancelFunc) *streamBody {
	return &streamBody{PipeReader: pr, cancel: cancel}
}

func (s *streamBody) Close() error {
	s.cancel()
	return s.PipeReader.Close()
}

// pipeStream writes translated frames to the pipe until the stream ends or
// the client goes away. Closing the stream releases the upstream connection.
func (b *Bridge) pipeStream(stream *ChatStream, pw *io.PipeWriter, cancel context.CancelFunc, logger *zap.Logger, startTime time.Time) {
	metrics.StreamingConnections.Inc()
	defer metrics.StreamingConnections.Dec()
	defer cancel()
	defer stream.Close()
	defer pw.Close()

	w := sse.NewWriter(pw)
	chunks := 0

	for {
		frame, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.Error("error reading translated stream", zap.Error(err))
			return
		}

		if err := writeFrame(w, frame); err != nil {
			logger.Debug("client went away, closing upstream stream",
				zap.Int("chunks", chunks),
				zap.Error(err),
			)
			return
		}

		if frame.Kind == translate.FrameChunk {
			chunks++
		}
	}

	logger.Debug("streaming complete",
		zap.String("model", stream.Model()),
		zap.Int("chunks", chunks),
		zap.Duration("duration", time.Since(startTime)),
	)
}

func writeFrame(w *sse.Writer, frame translate.Frame) error {
	switch frame.Kind {
	case translate.FrameChunk:
		return w.WriteJSON(frame.Chunk)
	case translate.FrameError:
		return w.WriteError(frame.Err.Message)
	case translate.FrameDone:
		return w.WriteDone()
	}
	return nil
}

func (b *Bridge) handleImage(c *fiber.Ctx) error {
	logger := b.requestLogger(c)

	var req llm.ImageRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		logger.Error("failed to parse request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(llm.NewErrorResponse(llm.ErrTypeInvalidRequest, "invalid request body"))
	}

	resp, err := b.GenerateImage(b.ctx, &req)
	if err != nil {
		logger.Error("image generation failed", zap.Error(err))
		return b.writeError(c, err)
	}

	return c.JSON(resp)
}

func (b *Bridge) handleModels(c *fiber.Ctx) error {
	return c.JSON(b.Models())
}

func (b *Bridge) handleHealth(c *fiber.Ctx) error {
	return c.JSON(map[string]string{
		"status":    "healthy",
		"timestamp": b.now().Format(time.RFC3339),
	})
}

// writeError maps service errors onto HTTP statuses.
func (b *Bridge) writeError(c *fiber.Ctx, err error) error {
	var (
		status  int
		errType string
		message string
	)

	var upstreamErr *translate.UpstreamError
	switch {
	case errors.Is(err, ErrInvalidRequest):
		status, errType, message = fiber.StatusBadRequest, llm.ErrTypeInvalidRequest, err.Error()
	case errors.Is(err, ErrNoCredential):
		status, errType, message = fiber.StatusServiceUnavailable, llm.ErrTypeUnavailable, err.Error()
	case errors.As(err, &upstreamErr):
		status, errType, message = fiber.StatusBadGateway, llm.ErrTypeUpstream, upstreamErr.Message
	case errors.Is(err, upstream.ErrUnavailable):
		status, errType, message = fiber.StatusBadGateway, llm.ErrTypeUpstream, streamErrorMessage(err)
	default:
		status, errType, message = fiber.StatusInternalServerError, llm.ErrTypeServer, "internal error"
	}

	return c.Status(status).JSON(llm.NewErrorResponse(errType, message))
}

// streamErrorMessage is the client-facing text for an upstream failure.
func streamErrorMessage(err error) string {
	var statusErr *upstream.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Error()
	}
	return err.Error()
}

func setSSEHeaders(c *fiber.Ctx) {
	h := &c.Context().Response.Header
	h.SetContentType(sse.ContentType)
	h.Set(fasthttp.HeaderCacheControl, "no-cache")
	h.Set(fasthttp.HeaderConnection, "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

func (b *Bridge) requestLogger(c *fiber.Ctx) *zap.Logger {
	if id, ok := c.Locals(requestIDLocal).(string); ok {
		return b.logger.With(zap.String("request_id", id))
	}
	return b.logger
}

// errorHandler renders unhandled errors in the OpenAI envelope.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	errType := llm.ErrTypeServer
	if code < 500 {
		errType = llm.ErrTypeInvalidRequest
	}

	return c.Status(code).JSON(llm.NewErrorResponse(errType, message))
}
