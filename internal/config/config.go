// Package config loads marketledger settings from flags, environment
// variables and an optional YAML file.
//
// Precedence, highest first: explicitly set flags, MARKETLEDGER_* environment
// variables, the config file, defaults.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. MARKETLEDGER_DB.
const EnvPrefix = "MARKETLEDGER"

// DefaultConfigName is the file searched for in the working directory when
// no config path is given (marketledger.yaml).
const DefaultConfigName = "marketledger"

// Config holds all settings for the CLI.
type Config struct {
	DB         string    `mapstructure:"db"`
	As         string    `mapstructure:"as"`
	Admin      bool      `mapstructure:"admin"`
	Format     string    `mapstructure:"format"` // text, json
	Verbose    bool      `mapstructure:"verbose"`
	Schema     string    `mapstructure:"schema"`
	NoValidate bool      `mapstructure:"no-validate"`
	Log        LogConfig `mapstructure:"log"`
}

// LogConfig controls the diagnostic logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text, json
}

// Load reads the configuration.
//
// If path is empty, marketledger.yaml in the working directory is used when
// present. flags may be nil; when set, flags the user changed override every
// other source.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db", "marketledger.db")
	v.SetDefault("as", "")
	v.SetDefault("admin", false)
	v.SetDefault("format", "text")
	v.SetDefault("verbose", false)
	v.SetDefault("schema", "")
	v.SetDefault("no-validate", false)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DB) == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Format != "text" && c.Format != "json" {
		return fmt.Errorf("invalid format %q: must be one of [text json]", c.Format)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log format %q: must be one of [text json]", c.Log.Format)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// LogLevel returns the configured level; Verbose forces debug.
func (c *Config) LogLevel() slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelWarn
	}
	return level
}

// NewLogger builds the diagnostic logger writing to w.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel()}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}
