// Package bridge provides an OpenAI-compatible API in front of the upstream
// AI aggregation service. It selects an account credential per request,
// forwards the call and translates the upstream's raw JSON stream into
// OpenAI chunks or a single aggregated completion.
package bridge

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/papercomputeco/puterbridge/pkg/models"
)

// Bridge is the HTTP server. It is stateless apart from what its
// credential pool and outcome queue hold.
type Bridge struct {
	config   Config
	registry *models.Registry
	upstream Upstream
	logger   *zap.Logger
	server   *fiber.App
	now      func() time.Time

	// ctx parents every upstream call and is cancelled by Shutdown.
	ctx  context.Context
	stop context.CancelFunc
}

// New creates a new Bridge.
func New(config Config, logger *zap.Logger) (*Bridge, error) {
	if config.Credentials == nil {
		return nil, errors.New("bridge requires a credential pool")
	}
	if config.Upstream == nil {
		return nil, errors.New("bridge requires an upstream client")
	}

	if config.Registry == nil {
		config.Registry = models.DefaultRegistry()
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	ctx, stop := context.WithCancel(context.Background())

	b := &Bridge{
		ctx:      ctx,
		stop:     stop,
		config:   config,
		registry: config.Registry,
		upstream: config.Upstream,
		logger:   logger,
		server:   app,
		now:      config.Now,
	}

	app.Use(b.instrument)

	// OpenAI-compatible routes
	app.Post("/v1/chat/completions", b.handleChat)
	app.Post("/v1/images/generations", b.handleImage)
	app.Get("/v1/models", b.handleModels)

	app.Get("/health", b.handleHealth)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	return b, nil
}

// Run starts the bridge server on the configured listening address
func (b *Bridge) Run() error {
	b.logger.Info("starting bridge server",
		zap.String("listen", b.config.ListenAddr),
	)

	return b.server.Listen(b.config.ListenAddr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
// Upstream calls still running when it returns are cancelled.
func (b *Bridge) Shutdown(timeout time.Duration) error {
	defer b.stop()
	return b.server.ShutdownWithTimeout(timeout)
}

// App exposes the fiber app, mainly for tests.
func (b *Bridge) App() *fiber.App {
	return b.server
}
