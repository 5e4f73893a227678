package bridge

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/puterbridge/bridge/worker"
	"github.com/papercomputeco/puterbridge/pkg/credentials"
	"github.com/papercomputeco/puterbridge/pkg/llm"
	"github.com/papercomputeco/puterbridge/pkg/metrics"
	"github.com/papercomputeco/puterbridge/pkg/models"
	"github.com/papercomputeco/puterbridge/pkg/translate"
	"github.com/papercomputeco/puterbridge/pkg/upstream"
)

// ChatStream is an open upstream chat stream being translated into chunks.
// The caller must Close it.
type ChatStream struct {
	bridge     *Bridge
	translator *translate.Translator
	body       io.ReadCloser
	cred       credentials.Credential
	driver     models.Driver
	model      string
	started    time.Time

	closeOnce sync.Once
}

// Model returns the resolved model name.
func (s *ChatStream) Model() string {
	return s.model
}

// Next returns the next translated frame, or io.EOF after the terminal frame.
// The terminal frame reports the call outcome.
func (s *ChatStream) Next() (translate.Frame, error) {
	frame, err := s.translator.Next()
	if err != nil {
		return frame, err
	}

	switch frame.Kind {
	case translate.FrameDone:
		s.bridge.reportOutcome(s.cred, upstream.InterfaceChat, s.driver, s.started, nil)
	case translate.FrameError:
		s.bridge.reportOutcome(s.cred, upstream.InterfaceChat, s.driver, s.started, frame.Err)
	}

	return frame, nil
}

// Close releases the upstream connection.
func (s *ChatStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.body.Close()
	})
	return err
}

// ChatStream selects a credential and opens the upstream stream for req.
// ErrNoCredential is returned before any upstream call; upstream failures
// wrap upstream.ErrUnavailable.
func (b *Bridge) ChatStream(ctx context.Context, req *llm.ChatRequest) (*ChatStream, error) {
	model := req.Model
	if model == "" {
		model = b.registry.DefaultChatModel()
	}

	cred, err := b.credential(ctx)
	if err != nil {
		return nil, err
	}

	driver := models.DriverFor(model)
	payload := upstream.NewChatPayload(cred.Token, model, req.Messages)

	b.logger.Debug("opening upstream chat stream",
		zap.String("model", model),
		zap.String("driver", driver.String()),
		zap.String("account_id", cred.AccountID),
		zap.Int("message_count", len(req.Messages)),
	)

	started := b.now()
	body, err := b.upstream.OpenStream(ctx, payload)
	if err != nil {
		b.reportOutcome(cred, upstream.InterfaceChat, driver, started, err)
		return nil, fmt.Errorf("opening chat stream: %w", err)
	}

	return &ChatStream{
		bridge: b,
		translator: translate.NewTranslator(body, translate.Config{
			Model:  model,
			Now:    b.now,
			Logger: b.logger,
		}),
		body:    body,
		cred:    cred,
		driver:  driver,
		model:   model,
		started: started,
	}, nil
}

// Chat runs a chat request to completion and aggregates the result.
func (b *Bridge) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatCompletion, error) {
	stream, err := b.ChatStream(ctx, req)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	completion, err := translate.Aggregate(stream, stream.model, b.now())
	if err != nil {
		return nil, err
	}
	return completion, nil
}

// GenerateImage performs one image generation call and returns the image
// bytes base64-encoded.
func (b *Bridge) GenerateImage(ctx context.Context, req *llm.ImageRequest) (*llm.ImageResponse, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("%w: prompt is required", ErrInvalidRequest)
	}

	model := req.Model
	if model == "" {
		model = b.registry.DefaultImageModel()
	}

	cred, err := b.credential(ctx)
	if err != nil {
		return nil, err
	}

	payload := upstream.NewImagePayload(cred.Token, model, req.Quality, req.Prompt)

	b.logger.Debug("calling upstream image generation",
		zap.String("model", model),
		zap.String("account_id", cred.AccountID),
		zap.String("prompt_preview", truncate(req.Prompt, 50)),
	)

	started := b.now()
	body, err := b.upstream.Call(ctx, payload)
	b.reportOutcome(cred, upstream.InterfaceImage, models.DriverOpenAIImage, started, err)
	if err != nil {
		return nil, fmt.Errorf("generating image: %w", err)
	}

	return &llm.ImageResponse{
		Created: b.now().Unix(),
		Data:    []llm.ImageData{{B64JSON: base64.StdEncoding.EncodeToString(body)}},
	}, nil
}

// Models returns the advertised model list.
func (b *Bridge) Models() llm.ModelList {
	return b.registry.List(b.now().Unix())
}

func (b *Bridge) credential(ctx context.Context) (credentials.Credential, error) {
	cred, ok, err := b.config.Credentials.Next(ctx)
	if err != nil {
		return credentials.Credential{}, fmt.Errorf("selecting credential: %w", err)
	}
	if !ok {
		metrics.NoCredentialTotal.Inc()
		return credentials.Credential{}, ErrNoCredential
	}
	return cred, nil
}

// reportOutcome feeds health scoring, metrics and the stats queue.
func (b *Bridge) reportOutcome(cred credentials.Credential, iface string, driver models.Driver, started time.Time, err error) {
	success := err == nil
	if success {
		b.config.Credentials.ReportSuccess(cred.AccountID)
	} else {
		b.config.Credentials.ReportFailure(cred.AccountID)
	}

	metrics.UpstreamRequestsTotal.WithLabelValues(iface, driver.String(), outcomeLabel(err)).Inc()
	metrics.UpstreamLatency.WithLabelValues(iface, driver.String()).Observe(b.now().Sub(started).Seconds())

	if b.config.Outcomes != nil {
		b.config.Outcomes.Enqueue(worker.Job{
			AccountID: cred.AccountID,
			Interface: iface,
			Success:   success,
			At:        b.now(),
		})
	}
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, translate.ErrUpstreamProtocol):
		return metrics.OutcomeUpstream
	case errors.Is(err, translate.ErrTransport):
		return metrics.OutcomeTransport
	default:
		return metrics.OutcomeUnavailable
	}
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
