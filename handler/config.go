package handler

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oasgen/faults"
)

// Config is the faults.yaml configuration for a Handler. Every field is
// optional; zero values take the documented defaults.
type Config struct {
	// OutputFormat selects the rendering emitted per handled error:
	// "cli", "json", "html", "markdown", or "log". Default: "cli".
	OutputFormat string `yaml:"output_format,omitempty"`

	// Debug enables the stack excerpt in CLI output.
	Debug bool `yaml:"debug,omitempty"`

	// IncludeStack emits stacks in structured renderings.
	IncludeStack bool `yaml:"include_stack,omitempty"`

	// HistoryLimit bounds the retained record history. Default: 1000.
	HistoryLimit int `yaml:"history_limit,omitempty"`

	// LogFile is the append-only sink receiving one log-formatted line per
	// handled error. Empty disables the sink.
	LogFile string `yaml:"log_file,omitempty"`

	// ExitOnFatal terminates the process after HandleFatal. Default: true.
	// Tri-state so an explicit "false" survives YAML round-trips.
	ExitOnFatal *bool `yaml:"exit_on_fatal,omitempty"`

	// RateLimit configures per-fingerprint admission.
	RateLimit *RateLimitConfig `yaml:"rate_limit,omitempty"`

	// Recovery configures recovery dispatch.
	Recovery *RecoveryConfig `yaml:"recovery,omitempty"`

	// Monitoring configures the outbound monitoring sink.
	Monitoring *MonitoringConfig `yaml:"monitoring,omitempty"`
}

// RateLimitConfig tunes the sliding-window limiter.
type RateLimitConfig struct {
	// Window is the counting interval. Format: Go duration string.
	// Default: 60s.
	Window string `yaml:"window,omitempty"`

	// MaxPerWindow is the admissions per fingerprint per window.
	// Default: 100.
	MaxPerWindow int `yaml:"max_per_window,omitempty"`

	// RedisURL switches to the Redis-backed limiter so several generator
	// processes share one budget. Empty keeps the in-memory limiter.
	RedisURL string `yaml:"redis_url,omitempty"`
}

// GetWindow parses the window, falling back to the default when unset or
// invalid.
func (c *RateLimitConfig) GetWindow() time.Duration {
	if c == nil || c.Window == "" {
		return 60 * time.Second
	}
	d, err := time.ParseDuration(c.Window)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GetMaxPerWindow returns the configured budget or the default.
func (c *RateLimitConfig) GetMaxPerWindow() int {
	if c == nil || c.MaxPerWindow <= 0 {
		return 100
	}
	return c.MaxPerWindow
}

// RecoveryConfig tunes recovery dispatch and the network backoff policy.
type RecoveryConfig struct {
	// Disabled skips recovery dispatch entirely.
	Disabled bool `yaml:"disabled,omitempty"`

	// BaseDelay is the first retry delay. Format: Go duration string.
	// Default: 1s.
	BaseDelay string `yaml:"base_delay,omitempty"`

	// MaxDelay caps retry delays. Default: 30s.
	MaxDelay string `yaml:"max_delay,omitempty"`

	// Factor is the exponential growth factor. Default: 2.
	Factor float64 `yaml:"factor,omitempty"`

	// Jitter randomizes delays by ±50%.
	Jitter bool `yaml:"jitter,omitempty"`

	// MaxRetries bounds retry attempts per fingerprint. Default: 3.
	MaxRetries int `yaml:"max_retries,omitempty"`

	// WaitInStrategy makes the network strategy sleep for the computed
	// delay before returning instead of leaving the wait to the caller.
	WaitInStrategy bool `yaml:"wait_in_strategy,omitempty"`
}

// GetBaseDelay parses the base delay, falling back to the default.
func (c *RecoveryConfig) GetBaseDelay() time.Duration {
	if c == nil || c.BaseDelay == "" {
		return time.Second
	}
	d, err := time.ParseDuration(c.BaseDelay)
	if err != nil {
		return time.Second
	}
	return d
}

// GetMaxDelay parses the delay cap, falling back to the default.
func (c *RecoveryConfig) GetMaxDelay() time.Duration {
	if c == nil || c.MaxDelay == "" {
		return 30 * time.Second
	}
	d, err := time.ParseDuration(c.MaxDelay)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// MonitoringConfig configures the outbound monitoring sink.
type MonitoringConfig struct {
	// Enabled turns monitoring dispatch on.
	Enabled bool `yaml:"enabled,omitempty"`

	// Endpoint is the caller-supplied address receiving the JSON form of
	// each handled error. Not interpreted by this subsystem.
	Endpoint string `yaml:"endpoint,omitempty"`

	// Filter is an optional CEL expression over {code, category, severity,
	// recoverable, message} selecting which records are forwarded.
	Filter string `yaml:"filter,omitempty"`
}

// GetExitOnFatal resolves the tri-state flag; default true.
func (c *Config) GetExitOnFatal() bool {
	if c.ExitOnFatal == nil {
		return true
	}
	return *c.ExitOnFatal
}

// GetOutputFormat resolves the configured format; default CLI.
func (c *Config) GetOutputFormat() faults.Format {
	if c.OutputFormat == "" {
		return faults.FormatCLI
	}
	return faults.Format(c.OutputFormat)
}

// Load reads and parses a faults.yaml file. If path is a directory, it
// looks for faults.yaml or faults.yml inside it.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	configPath := path
	if info.IsDir() {
		yamlPath := filepath.Join(path, "faults.yaml")
		if _, err := os.Stat(yamlPath); err == nil {
			configPath = yamlPath
		} else {
			ymlPath := filepath.Join(path, "faults.yml")
			if _, err := os.Stat(ymlPath); err != nil {
				return nil, fmt.Errorf("no faults.yaml or faults.yml found in %s", path)
			}
			configPath = ymlPath
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// LoadFromCurrentDir loads faults.yaml from the working directory.
func LoadFromCurrentDir() (*Config, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return Load(dir)
}
