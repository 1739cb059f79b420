// Package config handles process configuration using Viper.
//
// User settings live behind the settings store. This package only covers
// how the process itself is wired: where data lives, which storage and
// secret backends to use, and runtime tuning.
//
// Configuration sources (in priority order):
//  1. Environment variables (SCRIBE_*)
//  2. Config file (~/.scribe/scribe.yaml)
//  3. Built-in defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers.
const (
	DriverTOML   = "toml"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Defaults.
const (
	DefaultDirName         = ".scribe"
	DefaultConfigName      = "scribe"
	DefaultDriver          = DriverTOML
	DefaultRatePerSecond   = 2.0
	DefaultRateBurst       = 4
	DefaultTickInterval    = time.Second
	DefaultLLMTimeout      = 120 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
	envPrefix              = "SCRIBE"
	configFileType         = "yaml"
	DefaultWatchDebounce   = 200 * time.Millisecond
)

// Config holds the process configuration.
type Config struct {
	v   *viper.Viper
	dir string
}

// Load reads configuration from all sources, looking for the config file
// in ~/.scribe.
func Load() *Config {
	dir := ""
	if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, DefaultDirName)
	}
	return LoadFrom(dir)
}

// LoadFrom reads configuration with dir as the config and default data
// directory. An empty dir skips the config file.
func LoadFrom(dir string) *Config {
	v := viper.New()

	v.SetDefault("data_dir", dir)
	v.SetDefault("storage.driver", DefaultDriver)
	v.SetDefault("secrets.keyring", true)
	v.SetDefault("models.rate_per_second", DefaultRatePerSecond)
	v.SetDefault("models.burst", DefaultRateBurst)
	v.SetDefault("testrun.tick_interval", DefaultTickInterval)
	v.SetDefault("llm.timeout", DefaultLLMTimeout)
	v.SetDefault("watch.enabled", true)
	v.SetDefault("watch.debounce", DefaultWatchDebounce)
	v.SetDefault("verbose", false)
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "")

	if dir != "" {
		v.AddConfigPath(dir)
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType(configFileType)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if dir != "" {
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				fmt.Fprintf(os.Stderr, "Warning: error reading config file: %v\n", err)
			}
		}
	}

	return &Config{v: v, dir: dir}
}

// Set sets a configuration value and persists it to the config file.
func (c *Config) Set(key string, value any) error {
	if c.dir == "" {
		return fmt.Errorf("no config directory")
	}
	c.v.Set(key, value)

	if err := os.MkdirAll(c.dir, 0o700); err != nil {
		return err
	}
	return c.v.WriteConfigAs(c.File())
}

// File returns the config file path.
func (c *Config) File() string {
	return filepath.Join(c.dir, DefaultConfigName+"."+configFileType)
}

// All returns all configuration as a map.
func (c *Config) All() map[string]any {
	return c.v.AllSettings()
}

// DataDir returns the directory holding settings data.
func (c *Config) DataDir() string {
	return c.v.GetString("data_dir")
}

// StorageDriver returns the settings repository driver.
func (c *Config) StorageDriver() string {
	return strings.ToLower(strings.TrimSpace(c.v.GetString("storage.driver")))
}

// UseKeyring reports whether provider API keys go to the OS keyring.
func (c *Config) UseKeyring() bool {
	return c.v.GetBool("secrets.keyring")
}

// ModelRate returns the model listing rate limit and burst.
func (c *Config) ModelRate() (float64, int) {
	return c.v.GetFloat64("models.rate_per_second"), c.v.GetInt("models.burst")
}

// TickInterval returns the test run elapsed counter resolution.
func (c *Config) TickInterval() time.Duration {
	return c.v.GetDuration("testrun.tick_interval")
}

// LLMTimeout returns the per-request timeout for provider calls.
func (c *Config) LLMTimeout() time.Duration {
	return c.v.GetDuration("llm.timeout")
}

// WatchEnabled reports whether long-running commands reload settings when
// the settings file changes.
func (c *Config) WatchEnabled() bool {
	return c.v.GetBool("watch.enabled")
}

// WatchDebounce returns how long the watcher waits for writes to settle.
func (c *Config) WatchDebounce() time.Duration {
	return c.v.GetDuration("watch.debounce")
}

// Verbose reports whether debug logging is on.
func (c *Config) Verbose() bool {
	return c.v.GetBool("verbose")
}

// TelemetryEnabled reports whether traces are exported.
func (c *Config) TelemetryEnabled() bool {
	return c.v.GetBool("telemetry.enabled")
}

// TelemetryEndpoint returns the OTLP/HTTP endpoint, or "" for the default.
func (c *Config) TelemetryEndpoint() string {
	return c.v.GetString("telemetry.endpoint")
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.StorageDriver() {
	case DriverTOML, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q (want %s, %s or %s)",
			c.StorageDriver(), DriverTOML, DriverSQLite, DriverMemory)
	}
	if c.TickInterval() <= 0 {
		return fmt.Errorf("testrun.tick_interval must be positive")
	}
	if rate, burst := c.ModelRate(); rate <= 0 || burst <= 0 {
		return fmt.Errorf("models.rate_per_second and models.burst must be positive")
	}
	return nil
}
