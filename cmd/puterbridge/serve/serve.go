// Package servecmder provides the bridge server command.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/puterbridge/bridge"
	"github.com/papercomputeco/puterbridge/bridge/worker"
	"github.com/papercomputeco/puterbridge/pkg/accounts"
	"github.com/papercomputeco/puterbridge/pkg/accounts/file"
	"github.com/papercomputeco/puterbridge/pkg/accounts/inmemory"
	"github.com/papercomputeco/puterbridge/pkg/accounts/sqlite"
	"github.com/papercomputeco/puterbridge/pkg/config"
	"github.com/papercomputeco/puterbridge/pkg/credentials"
	"github.com/papercomputeco/puterbridge/pkg/logger"
	"github.com/papercomputeco/puterbridge/pkg/metrics"
	"github.com/papercomputeco/puterbridge/pkg/models"
	"github.com/papercomputeco/puterbridge/pkg/upstream"
)

const shutdownTimeout = 10 * time.Second

type serveCommander struct {
	listen         string
	upstream       string
	accountsSource string
	sqlitePath     string
	accountsFile   string
	tokens         []string
	health         string
	backoffJitter  float64
	logFile        string
	debug          bool

	cfg       *config.Config
	configDir string
	logger    *zap.Logger
}

const serveLongDesc string = `Run the bridge server.

The bridge accepts OpenAI-style chat and image requests, picks an eligible
account token at random and forwards the call to the upstream driver-call
endpoint, translating its raw JSON stream into OpenAI chunks.

Account sources: sqlite (default), file, inmemory

Examples:
  puterbridge serve
  puterbridge serve --listen :9000 --sqlite /var/lib/puterbridge/accounts.db
  puterbridge serve --accounts-source inmemory --token tok-1 --token tok-2`

const serveShortDesc string = "Run the puterbridge server"

var serveFlags = []string{
	config.FlagListen,
	config.FlagUpstream,
	config.FlagAccountsSource,
	config.FlagSQLite,
	config.FlagAccountsFile,
	config.FlagTokens,
	config.FlagHealth,
	config.FlagBackoffJitter,
	config.FlagLogFile,
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, dir, err := config.Load(cmd, serveFlags...)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cmder.cfg = cfg
			cmder.configDir = dir
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagUpstream, &cmder.upstream)
	config.AddStringFlag(cmd, config.Flags, config.FlagAccountsSource, &cmder.accountsSource)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagAccountsFile, &cmder.accountsFile)
	config.AddStringSliceFlag(cmd, config.Flags, config.FlagTokens, &cmder.tokens)
	config.AddStringFlag(cmd, config.Flags, config.FlagHealth, &cmder.health)
	config.AddFloat64Flag(cmd, config.Flags, config.FlagBackoffJitter, &cmder.backoffJitter)
	config.AddStringFlag(cmd, config.Flags, config.FlagLogFile, &cmder.logFile)

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	var err error
	c.logger, err = c.newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = c.logger.Sync() }()

	srv, err := newServer(ctx, c.cfg, c.configDir, c.logger)
	if err != nil {
		return err
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.bridge.Run()
	}()

	c.logger.Info("puterbridge started",
		zap.String("listen", c.cfg.Server.Listen),
		zap.String("upstream", c.cfg.Upstream.URL),
		zap.String("accounts_source", c.cfg.Accounts.Source),
		zap.String("health", c.cfg.Pool.Health),
	)

	select {
	case err := <-errCh:
		return fmt.Errorf("bridge server failed: %w", err)
	case <-ctx.Done():
		c.logger.Info("shutting down")
		return srv.bridge.Shutdown(shutdownTimeout)
	}
}

func (c *serveCommander) newLogger() (*zap.Logger, error) {
	debug := c.debug || c.cfg.Log.Debug
	if c.cfg.Log.File == "" {
		return logger.NewLogger(debug), nil
	}

	path := config.ResolvePath(c.configDir, c.cfg.Log.File)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	return logger.NewLoggerWithWriters(debug, os.Stdout, f), nil
}

// server owns the bridge and everything it was assembled from.
type server struct {
	bridge   *bridge.Bridge
	source   accounts.Source
	pool     *credentials.Pool
	outcomes *worker.Pool
}

// newServer assembles the account source, credential pool, upstream client
// and outcome workers into a bridge.
func newServer(ctx context.Context, cfg *config.Config, configDir string, logger *zap.Logger) (*server, error) {
	source, err := newSource(ctx, cfg, configDir, logger)
	if err != nil {
		return nil, err
	}

	srv := &server{source: source}

	srv.pool, err = credentials.NewPool(&credentials.Config{
		Source:   source,
		Health:   newHealth(cfg),
		CacheTTL: cfg.Pool.CacheTTL,
		Logger:   logger,
	})
	if err != nil {
		srv.Close()
		return nil, fmt.Errorf("creating credential pool: %w", err)
	}

	bridgeConfig := bridge.Config{
		ListenAddr:  cfg.Server.Listen,
		Registry:    models.NewRegistry(cfg.Models.Chat, cfg.Models.Image),
		Credentials: srv.pool,
		Upstream: upstream.NewClient(upstream.Config{
			URL:          cfg.Upstream.URL,
			Origin:       cfg.Upstream.Origin,
			Referer:      cfg.Upstream.Referer,
			UserAgent:    cfg.Upstream.UserAgent,
			ChatTimeout:  cfg.Upstream.ChatTimeout,
			ImageTimeout: cfg.Upstream.ImageTimeout,
			Logger:       logger,
		}),
	}

	if recorder, ok := source.(accounts.Recorder); ok {
		srv.outcomes, err = worker.NewPool(&worker.Config{
			Recorder:   recorder,
			NumWorkers: cfg.Worker.NumWorkers,
			QueueSize:  cfg.Worker.QueueSize,
			OnDrop: func(worker.Job) {
				metrics.OutcomeJobsDroppedTotal.Inc()
			},
			Logger: logger,
		})
		if err != nil {
			srv.Close()
			return nil, fmt.Errorf("creating outcome workers: %w", err)
		}
		bridgeConfig.Outcomes = srv.outcomes
	} else {
		logger.Info("account source does not record call stats", zap.String("source", cfg.Accounts.Source))
	}

	srv.bridge, err = bridge.New(bridgeConfig, logger)
	if err != nil {
		srv.Close()
		return nil, fmt.Errorf("creating bridge: %w", err)
	}

	return srv, nil
}

// Close drains pending outcomes before closing the source they write to.
func (s *server) Close() {
	if s.outcomes != nil {
		s.outcomes.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
	if s.source != nil {
		_ = s.source.Close()
	}
}

// newHealth builds the credential health policy from the pool config.
func newHealth(cfg *config.Config) credentials.Health {
	if cfg.Pool.Health != config.HealthBackoff {
		return credentials.NopHealth{}
	}

	return credentials.NewBackoffHealth(credentials.BackoffConfig{
		InitialInterval: cfg.Pool.BackoffInitial,
		MaxInterval:     cfg.Pool.BackoffMax,
		Multiplier:      cfg.Pool.BackoffMultiplier,
		Jitter:          cfg.Pool.BackoffJitter,
	})
}

func newSource(ctx context.Context, cfg *config.Config, configDir string, logger *zap.Logger) (accounts.Source, error) {
	switch cfg.Accounts.Source {
	case config.SourceSQLite:
		path := config.ResolvePath(configDir, cfg.Accounts.SQLitePath)
		if err := ensureDir(path); err != nil {
			return nil, err
		}

		source, err := sqlite.NewSource(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite accounts: %w", err)
		}
		logger.Info("using SQLite accounts", zap.String("path", path))
		return source, nil

	case config.SourceFile:
		path := config.ResolvePath(configDir, cfg.Accounts.FilePath)
		logger.Info("using file accounts", zap.String("path", path))
		return file.NewSource(path), nil

	case config.SourceInMemory:
		if len(cfg.Accounts.Tokens) == 0 {
			logger.Warn("inmemory account source has no tokens, every request will be rejected")
		}
		logger.Info("using in-memory accounts", zap.Int("count", len(cfg.Accounts.Tokens)))
		return inmemory.FromTokens(cfg.Accounts.Tokens...), nil
	}

	return nil, fmt.Errorf("unknown accounts source: %q", cfg.Accounts.Source)
}

func ensureDir(path string) error {
	if path == ":memory:" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return fmt.Errorf("creating data dir: %w", err)
	}
	return nil
}
