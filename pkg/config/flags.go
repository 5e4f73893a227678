package config

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag that maps onto a
// config key.
type Flag struct {
	// Name is the long flag name (e.g. "listen").
	Name string

	// Shorthand is the one-letter short flag. Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to.
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of registry keys to flags.
type FlagSet map[string]Flag

// Flag registry keys.
const (
	FlagListen         = "listen"
	FlagUpstream       = "upstream"
	FlagAccountsSource = "accounts-source"
	FlagSQLite         = "sqlite"
	FlagAccountsFile   = "accounts-file"
	FlagTokens         = "token"
	FlagHealth         = "health"
	FlagBackoffJitter  = "backoff-jitter"
	FlagTarget         = "target"
	FlagLogFile        = "log-file"
)

// Flags is the registry shared by every command.
var Flags = FlagSet{
	FlagListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "server.listen",
		Description: "Address to listen on",
	},
	FlagUpstream: {
		Name:        "upstream",
		Shorthand:   "u",
		ViperKey:    "upstream.url",
		Description: "Upstream driver-call URL",
	},
	FlagAccountsSource: {
		Name:        "accounts-source",
		ViperKey:    "accounts.source",
		Description: "Credential source: sqlite, file or inmemory",
	},
	FlagSQLite: {
		Name:        "sqlite",
		Shorthand:   "s",
		ViperKey:    "accounts.sqlite_path",
		Description: "Path to the accounts SQLite database",
	},
	FlagAccountsFile: {
		Name:        "accounts-file",
		ViperKey:    "accounts.file_path",
		Description: "Path to the accounts TOML file",
	},
	FlagTokens: {
		Name:        "token",
		ViperKey:    "accounts.tokens",
		Description: "Upstream auth token for the inmemory source (repeatable)",
	},
	FlagHealth: {
		Name:        "health",
		ViperKey:    "pool.health",
		Description: "Credential health policy: nop or backoff",
	},
	FlagBackoffJitter: {
		Name:        "backoff-jitter",
		ViperKey:    "pool.backoff_jitter",
		Description: "Randomization factor in [0, 1) for backoff bench windows",
	},
	FlagTarget: {
		Name:        "target",
		Shorthand:   "t",
		ViperKey:    "client.target",
		Description: "Base URL of a running bridge",
	},
	FlagLogFile: {
		Name:        "log-file",
		ViperKey:    "log.file",
		Description: "Also write logs to this file",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddStringSliceFlag registers a repeatable string flag on cmd.
func AddStringSliceFlag(cmd *cobra.Command, fs FlagSet, key string, target *[]string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	if def.Shorthand != "" {
		cmd.Flags().StringSliceVarP(target, def.Name, def.Shorthand, nil, def.Description)
	} else {
		cmd.Flags().StringSliceVar(target, def.Name, nil, def.Description)
	}
}

// AddFloat64Flag registers a float flag on cmd from the given FlagSet.
func AddFloat64Flag(cmd *cobra.Command, fs FlagSet, key string, target *float64) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultFloat64(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().Float64VarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().Float64Var(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultFloat64 returns the default float value for a viper key from NewDefaultConfig.
func defaultFloat64(viperKey string) float64 {
	v := viper.New()
	setViperDefaults(v)
	return v.GetFloat64(viperKey)
}

// Load reads the layered config for cmd. The config directory comes from
// the persistent --config-dir flag and the given registry keys are bound
// so explicitly set flags win. It returns the config and the resolved
// config directory.
func Load(cmd *cobra.Command, registryKeys ...string) (*Config, string, error) {
	override, _ := cmd.Flags().GetString("config-dir")

	dir, err := Dir(override)
	if err != nil {
		return nil, "", err
	}

	v, err := InitViper(dir)
	if err != nil {
		return nil, "", err
	}
	BindRegisteredFlags(v, cmd, Flags, registryKeys)

	cfg := FromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config: %w", err)
	}

	return cfg, dir, nil
}
