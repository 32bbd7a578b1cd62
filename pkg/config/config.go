// Package config loads the engine configuration: the default
// evaluation arguments and the settings of the ambient logging,
// metrics and monitoring layers.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"digital.vasic.expectations/pkg/logging"
	"digital.vasic.expectations/pkg/result"
)

// ErrInvalidConfig is returned when a configuration value is
// out of range.
var ErrInvalidConfig = errors.New("invalid engine configuration")

// Log output formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config is the engine configuration.
type Config struct {
	Defaults   DefaultsConfig   `yaml:"defaults"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Monitor    MonitorConfig    `yaml:"monitor"`
	Validation ValidationConfig `yaml:"validation"`
}

// DefaultsConfig seeds the validator's default arguments.
type DefaultsConfig struct {
	ResultFormat    string `yaml:"result_format"`
	IncludeConfig   bool   `yaml:"include_config"`
	CatchExceptions bool   `yaml:"catch_exceptions"`
}

// LoggingConfig selects the logger.
type LoggingConfig struct {
	Level string `yaml:"level"`

	// Format is "json" or "console".
	Format string `yaml:"format"`

	// OutputPath is the JSON log file. Empty means stdout.
	OutputPath string `yaml:"output_path"`

	// EvaluationLog receives one JSON line per evaluation.
	// Empty disables it.
	EvaluationLog string `yaml:"evaluation_log"`

	Verbose bool `yaml:"verbose"`
}

// MetricsConfig enables Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// MonitorConfig enables the websocket monitor.
type MonitorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// ValidationConfig controls whole-suite validation.
type ValidationConfig struct {
	OnlyReturnFailures bool `yaml:"only_return_failures"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Defaults: DefaultsConfig{
			ResultFormat: result.Basic.String(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: FormatJSON,
		},
		Metrics: MetricsConfig{
			Namespace: "expectations",
		},
		Monitor: MonitorConfig{
			Addr: ":8089",
		},
	}
}

// Parse decodes YAML over the defaults and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads and parses the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Validate checks every value that has a fixed domain.
func (c *Config) Validate() error {
	if _, err := result.ParseFormat(c.Defaults.ResultFormat); err != nil {
		return fmt.Errorf("%w: defaults.result_format: %v", ErrInvalidConfig, err)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level: %v", ErrInvalidConfig, err)
	}
	switch c.Logging.Format {
	case FormatJSON, FormatConsole:
	default:
		return fmt.Errorf("%w: logging.format must be %q or %q, got %q",
			ErrInvalidConfig, FormatJSON, FormatConsole, c.Logging.Format)
	}
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return fmt.Errorf("%w: metrics.namespace is required", ErrInvalidConfig)
	}
	if c.Monitor.Enabled && c.Monitor.Addr == "" {
		return fmt.Errorf("%w: monitor.addr is required", ErrInvalidConfig)
	}
	return nil
}

// ResultFormat returns the default verbosity level. It falls
// back to BASIC when the configured name is invalid.
func (c *Config) ResultFormat() result.Format {
	f, err := result.ParseFormat(c.Defaults.ResultFormat)
	if err != nil {
		return result.Basic
	}
	return f
}

// LogLevel returns the configured level, or info when invalid.
func (c *Config) LogLevel() logging.LogLevel {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return logging.LevelInfo
	}
	return level
}

// NewLogger builds the configured logger. A console logger with
// an evaluation log is paired with a JSON logger that writes
// only evaluations.
func (c *Config) NewLogger() (logging.Logger, error) {
	if c.Logging.Format == FormatConsole {
		console := logging.NewConsoleLogger(c.Logging.Verbose)
		if c.Logging.EvaluationLog == "" {
			return console, nil
		}
		evaluations, err := logging.NewJSONLogger(logging.LoggerConfig{
			Output:        io.Discard,
			EvaluationLog: c.Logging.EvaluationLog,
			Level:         logging.LevelError,
		})
		if err != nil {
			return nil, err
		}
		return logging.NewMultiLogger(console, evaluations), nil
	}

	return logging.NewJSONLogger(logging.LoggerConfig{
		OutputPath:    c.Logging.OutputPath,
		EvaluationLog: c.Logging.EvaluationLog,
		Level:         c.LogLevel(),
		Verbose:       c.Logging.Verbose,
	})
}
