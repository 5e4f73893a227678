package config

import "time"

// Config is the puterbridge configuration stored as config.toml in the
// config directory. Sections group settings by component.
type Config struct {
	Version  int            `toml:"version"`
	Server   ServerConfig   `toml:"server"`
	Upstream UpstreamConfig `toml:"upstream"`
	Accounts AccountsConfig `toml:"accounts"`
	Pool     PoolConfig     `toml:"pool"`
	Models   ModelsConfig   `toml:"models"`
	Worker   WorkerConfig   `toml:"worker"`
	Client   ClientConfig   `toml:"client"`
	Log      LogConfig      `toml:"log"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// UpstreamConfig holds the driver-call endpoint settings.
type UpstreamConfig struct {
	URL          string        `toml:"url,omitempty"`
	Origin       string        `toml:"origin,omitempty"`
	Referer      string        `toml:"referer,omitempty"`
	UserAgent    string        `toml:"user_agent,omitempty"`
	ChatTimeout  time.Duration `toml:"chat_timeout,omitempty"`
	ImageTimeout time.Duration `toml:"image_timeout,omitempty"`
}

// AccountsConfig selects where credentials come from.
type AccountsConfig struct {
	// Source is one of "sqlite", "file" or "inmemory".
	Source string `toml:"source,omitempty"`

	// SQLitePath is relative to the config directory unless absolute.
	SQLitePath string `toml:"sqlite_path,omitempty"`

	// FilePath is relative to the config directory unless absolute.
	FilePath string `toml:"file_path,omitempty"`

	// Tokens seed the "inmemory" source.
	Tokens []string `toml:"tokens,omitempty"`
}

// PoolConfig tunes credential selection.
type PoolConfig struct {
	CacheTTL time.Duration `toml:"cache_ttl,omitempty"`

	// Health is "nop" or "backoff".
	Health string `toml:"health,omitempty"`

	BackoffInitial    time.Duration `toml:"backoff_initial,omitempty"`
	BackoffMax        time.Duration `toml:"backoff_max,omitempty"`
	BackoffMultiplier float64       `toml:"backoff_multiplier,omitempty"`

	// BackoffJitter randomizes each bench window by +/- this fraction.
	// Zero makes the windows exact.
	BackoffJitter float64 `toml:"backoff_jitter,omitempty"`
}

// ModelsConfig overrides the advertised model lists. The first entry of
// each list is the default.
type ModelsConfig struct {
	Chat  []string `toml:"chat,omitempty"`
	Image []string `toml:"image,omitempty"`
}

// WorkerConfig tunes the outcome recording worker pool.
type WorkerConfig struct {
	NumWorkers uint `toml:"num_workers,omitempty"`
	QueueSize  uint `toml:"queue_size,omitempty"`
}

// ClientConfig holds settings for CLI commands that talk to a running
// bridge (e.g. puterbridge chat).
type ClientConfig struct {
	Target string `toml:"target,omitempty"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Debug bool   `toml:"debug,omitempty"`
	File  string `toml:"file,omitempty"`
}
