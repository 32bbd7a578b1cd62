package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by ApplyEnv.
const (
	EnvResultFormat    = "EXPECTATIONS_RESULT_FORMAT"
	EnvCatchExceptions = "EXPECTATIONS_CATCH_EXCEPTIONS"
	EnvIncludeConfig   = "EXPECTATIONS_INCLUDE_CONFIG"
	EnvLogLevel        = "EXPECTATIONS_LOG_LEVEL"
)

// LookupFunc reports the value of an environment variable.
// os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides the configuration from lookup and
// re-validates it.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	if v, ok := lookup(EnvResultFormat); ok {
		c.Defaults.ResultFormat = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvLogLevel); ok {
		c.Logging.Level = strings.TrimSpace(v)
	}

	bools := []struct {
		key    string
		target *bool
	}{
		{EnvCatchExceptions, &c.Defaults.CatchExceptions},
		{EnvIncludeConfig, &c.Defaults.IncludeConfig},
	}
	for _, b := range bools {
		v, ok := lookup(b.key)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a boolean",
				ErrInvalidConfig, b.key, v)
		}
		*b.target = parsed
	}
	return c.Validate()
}

// EnvFile reads a .env file and returns a lookup in which the
// process environment takes precedence over the file.
func EnvFile(path string) (LookupFunc, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}

	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := vars[key]
		return v, ok
	}, nil
}
