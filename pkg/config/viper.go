package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. PUTERBRIDGE_SERVER_LISTEN.
const EnvPrefix = "PUTERBRIDGE"

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads config.toml from the
// config directory when present, and binds PUTERBRIDGE_ environment
// variables.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (PUTERBRIDGE_SERVER_LISTEN, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	dir, err := Dir(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("server.listen", d.Server.Listen)

	// Upstream
	v.SetDefault("upstream.url", d.Upstream.URL)
	v.SetDefault("upstream.origin", d.Upstream.Origin)
	v.SetDefault("upstream.referer", d.Upstream.Referer)
	v.SetDefault("upstream.user_agent", d.Upstream.UserAgent)
	v.SetDefault("upstream.chat_timeout", d.Upstream.ChatTimeout)
	v.SetDefault("upstream.image_timeout", d.Upstream.ImageTimeout)

	// Accounts
	v.SetDefault("accounts.source", d.Accounts.Source)
	v.SetDefault("accounts.sqlite_path", d.Accounts.SQLitePath)
	v.SetDefault("accounts.file_path", d.Accounts.FilePath)
	v.SetDefault("accounts.tokens", d.Accounts.Tokens)

	// Pool
	v.SetDefault("pool.cache_ttl", d.Pool.CacheTTL)
	v.SetDefault("pool.health", d.Pool.Health)
	v.SetDefault("pool.backoff_initial", d.Pool.BackoffInitial)
	v.SetDefault("pool.backoff_max", d.Pool.BackoffMax)
	v.SetDefault("pool.backoff_multiplier", d.Pool.BackoffMultiplier)
	v.SetDefault("pool.backoff_jitter", d.Pool.BackoffJitter)

	v.SetDefault("models.chat", d.Models.Chat)
	v.SetDefault("models.image", d.Models.Image)

	v.SetDefault("worker.num_workers", d.Worker.NumWorkers)
	v.SetDefault("worker.queue_size", d.Worker.QueueSize)

	v.SetDefault("client.target", d.Client.Target)

	v.SetDefault("log.debug", d.Log.Debug)
	v.SetDefault("log.file", d.Log.File)
}
