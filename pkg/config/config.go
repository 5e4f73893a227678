// Package config loads puterbridge settings from config.toml, PUTERBRIDGE_
// environment variables and CLI flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

const (
	configFile = "config.toml"
	dirName    = ".puterbridge"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

// Dir resolves the config directory: override when set, ~/.puterbridge
// otherwise.
func Dir(override string) (string, error) {
	if override != "" {
		return override, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// FromViper materializes a Config from a viper instance created by
// InitViper, so flag, env and file values all apply.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Server: ServerConfig{
			Listen: v.GetString("server.listen"),
		},
		Upstream: UpstreamConfig{
			URL:          v.GetString("upstream.url"),
			Origin:       v.GetString("upstream.origin"),
			Referer:      v.GetString("upstream.referer"),
			UserAgent:    v.GetString("upstream.user_agent"),
			ChatTimeout:  v.GetDuration("upstream.chat_timeout"),
			ImageTimeout: v.GetDuration("upstream.image_timeout"),
		},
		Accounts: AccountsConfig{
			Source:     v.GetString("accounts.source"),
			SQLitePath: v.GetString("accounts.sqlite_path"),
			FilePath:   v.GetString("accounts.file_path"),
			Tokens:     v.GetStringSlice("accounts.tokens"),
		},
		Pool: PoolConfig{
			CacheTTL:          v.GetDuration("pool.cache_ttl"),
			Health:            v.GetString("pool.health"),
			BackoffInitial:    v.GetDuration("pool.backoff_initial"),
			BackoffMax:        v.GetDuration("pool.backoff_max"),
			BackoffMultiplier: v.GetFloat64("pool.backoff_multiplier"),
			BackoffJitter:     v.GetFloat64("pool.backoff_jitter"),
		},
		Models: ModelsConfig{
			Chat:  v.GetStringSlice("models.chat"),
			Image: v.GetStringSlice("models.image"),
		},
		Worker: WorkerConfig{
			NumWorkers: v.GetUint("worker.num_workers"),
			QueueSize:  v.GetUint("worker.queue_size"),
		},
		Client: ClientConfig{
			Target: v.GetString("client.target"),
		},
		Log: LogConfig{
			Debug: v.GetBool("log.debug"),
			File:  v.GetString("log.file"),
		},
	}
}

// Validate reports settings the bridge cannot start with.
func (c *Config) Validate() error {
	switch c.Accounts.Source {
	case SourceSQLite, SourceFile, SourceInMemory:
	default:
		return fmt.Errorf("unknown accounts source: %q", c.Accounts.Source)
	}

	switch c.Pool.Health {
	case HealthNop, HealthBackoff:
	default:
		return fmt.Errorf("unknown pool health: %q", c.Pool.Health)
	}

	if c.Pool.BackoffJitter < 0 || c.Pool.BackoffJitter >= 1 {
		return fmt.Errorf("pool.backoff_jitter must be in [0, 1): %v", c.Pool.BackoffJitter)
	}

	if c.Server.Listen == "" {
		return errors.New("server.listen is required")
	}
	if c.Upstream.URL == "" {
		return errors.New("upstream.url is required")
	}

	return nil
}

// ResolvePath anchors a relative path at dir.
func ResolvePath(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// WriteDefault writes NewDefaultConfig() to config.toml in dir, creating the
// directory. An existing file is left alone unless force is set. It returns
// the file path.
func WriteDefault(dir string, force bool) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}

	path := filepath.Join(dir, configFile)
	if !force {
		if _, err := os.Stat(path); err == nil {
			return path, os.ErrExist
		}
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(NewDefaultConfig()); err != nil {
		return "", fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return "", fmt.Errorf("writing config: %w", err)
	}

	return path, nil
}
