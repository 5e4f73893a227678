package config

import (
	"time"

	"github.com/papercomputeco/puterbridge/pkg/upstream"
)

const (
	SourceSQLite   = "sqlite"
	SourceFile     = "file"
	SourceInMemory = "inmemory"

	HealthNop     = "nop"
	HealthBackoff = "backoff"
)

const (
	defaultListen     = ":8000"
	defaultSQLitePath = "puterbridge.db"
	defaultFilePath   = "accounts.toml"

	defaultCacheTTL          = 30 * time.Second
	defaultBackoffInitial    = 5 * time.Second
	defaultBackoffMax        = 5 * time.Minute
	defaultBackoffMultiplier = 2.0
	defaultBackoffJitter     = 0.5

	defaultNumWorkers = 2
	defaultQueueSize  = 256

	defaultClientTarget = "http://localhost:8000"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Server: ServerConfig{
			Listen: defaultListen,
		},
		Upstream: UpstreamConfig{
			URL:          upstream.DefaultURL,
			Origin:       upstream.DefaultOrigin,
			Referer:      upstream.DefaultReferer,
			UserAgent:    upstream.DefaultUserAgent,
			ChatTimeout:  upstream.DefaultChatTimeout,
			ImageTimeout: upstream.DefaultImageTimeout,
		},
		Accounts: AccountsConfig{
			Source:     SourceSQLite,
			SQLitePath: defaultSQLitePath,
			FilePath:   defaultFilePath,
		},
		Pool: PoolConfig{
			CacheTTL:          defaultCacheTTL,
			Health:            HealthNop,
			BackoffInitial:    defaultBackoffInitial,
			BackoffMax:        defaultBackoffMax,
			BackoffMultiplier: defaultBackoffMultiplier,
			BackoffJitter:     defaultBackoffJitter,
		},
		Worker: WorkerConfig{
			NumWorkers: defaultNumWorkers,
			QueueSize:  defaultQueueSize,
		},
		Client: ClientConfig{
			Target: defaultClientTarget,
		},
	}
}
