// Package config loads FlowMaestro CLI configuration from a YAML file with
// environment variable overrides, mirroring flag > env > file > default
// precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables recognized by the CLI.
const (
	EnvAPIKey        = "FLOWMAESTRO_API_KEY"
	EnvBaseURL       = "FLOWMAESTRO_BASE_URL"
	EnvLogLevel      = "FLOWMAESTRO_LOG_LEVEL"
	EnvLogFormat     = "FLOWMAESTRO_LOG_FORMAT"
	EnvWebhookSecret = "FLOWMAESTRO_WEBHOOK_SECRET"
	EnvWebhookPort   = "FLOWMAESTRO_WEBHOOK_PORT"
)

// Default configuration values.
const (
	DefaultBaseURL      = "https://api.flowmaestro.io/v1"
	DefaultTimeout      = 30 * time.Second
	DefaultPollInterval = time.Second
	DefaultWaitTimeout  = 2 * time.Minute
	DefaultRateLimit    = 10.0
	DefaultBurst        = 10
	DefaultWebhookPort  = 3456
	configDirName       = ".flowmaestro"
	configFileName      = "config.yaml"
)

// ErrMissingAPIKey indicates no API key was found in flags, environment,
// or the config file.
var ErrMissingAPIKey = errors.New("API key is required: set " + EnvAPIKey + " or api_key in the config file")

// Config is the root configuration for the CLI and its subsystems.
type Config struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Client  ClientConfig  `yaml:"client"`
	Logging LoggingConfig `yaml:"logging"`
	Batch   BatchConfig   `yaml:"batch"`
	Webhook WebhookConfig `yaml:"webhook"`
}

// ClientConfig tunes the HTTP API client.
type ClientConfig struct {
	// Timeout is the per-request timeout.
	Timeout time.Duration `yaml:"timeout"`

	// PollInterval is the delay between execution status polls.
	PollInterval time.Duration `yaml:"poll_interval"`

	// WaitTimeout bounds WaitForCompletion.
	WaitTimeout time.Duration `yaml:"wait_timeout"`

	// RateLimit is the sustained client-side requests per second.
	RateLimit float64 `yaml:"rate_limit"`

	// Burst is the rate limiter burst size.
	Burst int `yaml:"burst"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// BatchConfig holds defaults for the batch run command.
type BatchConfig struct {
	Concurrency int           `yaml:"concurrency"`
	MaxRetries  int           `yaml:"max_retries"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	Jitter      bool          `yaml:"jitter"`
}

// WebhookConfig holds webhook receiver settings.
type WebhookConfig struct {
	Port   int    `yaml:"port"`
	Secret string `yaml:"secret"`

	// Strict rejects deliveries with missing or invalid signatures instead
	// of logging a warning.
	Strict bool `yaml:"strict"`
}

// New returns a Config populated with defaults only.
func New() *Config {
	return &Config{
		BaseURL: DefaultBaseURL,
		Client: ClientConfig{
			Timeout:      DefaultTimeout,
			PollInterval: DefaultPollInterval,
			WaitTimeout:  DefaultWaitTimeout,
			RateLimit:    DefaultRateLimit,
			Burst:        DefaultBurst,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Batch: BatchConfig{
			Concurrency: 5,
			MaxRetries:  3,
			BaseDelay:   time.Second,
		},
		Webhook: WebhookConfig{Port: DefaultWebhookPort},
	}
}

// Load builds the effective configuration: defaults, then the YAML file at
// path (or the default location when path is empty), then environment
// overrides. A missing default config file is not an error.
func Load(path string) (*Config, error) {
	cfg := New()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case explicit || !os.IsNotExist(err):
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// DefaultPath returns the default config file location, or empty when the
// home directory cannot be determined.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, configDirName, configFileName)
}

// applyEnv overlays recognized environment variables onto cfg.
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv(EnvWebhookSecret); v != "" {
		c.Webhook.Secret = v
	}
	if v := os.Getenv(EnvWebhookPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Webhook.Port = port
		}
	}
}

// Validate checks settings needed by API-backed commands.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.BaseURL == "" {
		return errors.New("base URL cannot be empty")
	}
	if c.Batch.Concurrency <= 0 {
		return fmt.Errorf("batch concurrency must be positive, got %d", c.Batch.Concurrency)
	}
	if c.Batch.MaxRetries < 0 {
		return fmt.Errorf("batch max_retries cannot be negative, got %d", c.Batch.MaxRetries)
	}
	return nil
}
