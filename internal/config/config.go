// Package config loads process-level configuration for screenrec: which
// binaries to drive, where state lives, and the supervision timings.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvDevelopment turns on debug logging.
	EnvDevelopment = "development"

	// EnvPrefix prefixes every environment variable, e.g. SCREENREC_LOG_LEVEL.
	EnvPrefix = "SCREENREC"
)

// Config holds all application configuration.
//
// Precedence is Defaults() < config.toml < environment. The struct carries no
// envconfig default tags so that an unset variable leaves the file value alone.
type Config struct {
	Env       string `envconfig:"ENV" toml:"env"`
	LogLevel  string `envconfig:"LOG_LEVEL" toml:"log_level"`
	LogFormat string `envconfig:"LOG_FORMAT" toml:"log_format"`
	LogFile   string `envconfig:"LOG_FILE" toml:"log_file"`

	// External tools
	RecorderBin string `envconfig:"RECORDER_BIN" toml:"recorder_bin"`
	PickerBin   string `envconfig:"PICKER_BIN" toml:"picker_bin"`

	// State locations
	SettingsPath string `envconfig:"SETTINGS_PATH" toml:"settings_path"`
	SocketPath   string `envconfig:"SOCKET_PATH" toml:"socket_path"`
	HistoryPath  string `envconfig:"HISTORY_PATH" toml:"history_path"`

	// Supervision timings
	StartProbe   Duration `envconfig:"START_PROBE" toml:"start_probe"`
	StopGrace    Duration `envconfig:"STOP_GRACE" toml:"stop_grace"`
	KillTimeout  Duration `envconfig:"KILL_TIMEOUT" toml:"kill_timeout"`
	TickInterval Duration `envconfig:"TICK_INTERVAL" toml:"tick_interval"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Env:          "production",
		LogLevel:     "info",
		LogFormat:    "text",
		RecorderBin:  "wf-recorder",
		PickerBin:    "slurp",
		SettingsPath: DefaultSettingsPath(),
		SocketPath:   DefaultSocketPath(),
		HistoryPath:  DefaultHistoryPath(),
		StartProbe:   Duration(500 * time.Millisecond),
		StopGrace:    Duration(5 * time.Second),
		KillTimeout:  Duration(2 * time.Second),
		TickInterval: Duration(time.Second),
	}
}

// LoadConfig loads configuration from .env, the optional TOML file at
// DefaultConfigPath and SCREENREC_* environment variables.
func LoadConfig() (*Config, error) {
	return Load(DefaultConfigPath())
}

// Load is LoadConfig with an explicit TOML path.
func Load(path string) (*Config, error) {
	// Try to load .env file (optional for development)
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("error loading .env file", "error", err)
	}

	cfg := Defaults()

	if err := loadFile(path, &cfg); err != nil {
		return nil, err
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects values that would break supervision.
func (c *Config) Validate() error {
	switch {
	case c.RecorderBin == "":
		return errors.New("recorder binary cannot be empty")
	case c.SettingsPath == "":
		return errors.New("settings path cannot be empty")
	case c.StartProbe < 0:
		return fmt.Errorf("start probe must not be negative, got %s", c.StartProbe)
	case c.StopGrace <= 0:
		return fmt.Errorf("stop grace must be positive, got %s", c.StopGrace)
	case c.KillTimeout <= 0:
		return fmt.Errorf("kill timeout must be positive, got %s", c.KillTimeout)
	case c.TickInterval <= 0:
		return fmt.Errorf("tick interval must be positive, got %s", c.TickInterval)
	}

	return nil
}

// IsDevelopment reports whether development mode is on.
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// loadFile decodes the TOML file at path over cfg. A missing file is not an
// error.
func loadFile(path string, cfg *Config) error {
	if path == "" {
		return nil
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("failed to stat config: %w", err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	return nil
}

// Duration is a time.Duration that decodes from "500ms"-style strings in
// both TOML and the environment.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}

	*d = Duration(parsed)

	return nil
}

// Decode implements envconfig.Decoder.
func (d *Duration) Decode(value string) error {
	return d.UnmarshalText([]byte(value))
}
