package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	cfg := New()

	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultTimeout, cfg.Client.Timeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 5, cfg.Batch.Concurrency)
	assert.Equal(t, 3, cfg.Batch.MaxRetries)
	assert.Equal(t, time.Second, cfg.Batch.BaseDelay)
	assert.Equal(t, DefaultWebhookPort, cfg.Webhook.Port)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
api_key: fm_live_abc123
base_url: https://staging.flowmaestro.io/v1
logging:
  level: debug
batch:
  concurrency: 8
  max_retries: 5
  base_delay: 2s
webhook:
  port: 9000
  strict: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	// Keep the ambient environment from leaking into the assertion.
	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvLogLevel, "")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "fm_live_abc123", cfg.APIKey)
	assert.Equal(t, "https://staging.flowmaestro.io/v1", cfg.BaseURL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 8, cfg.Batch.Concurrency)
	assert.Equal(t, 5, cfg.Batch.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Batch.BaseDelay)
	assert.Equal(t, 9000, cfg.Webhook.Port)
	assert.True(t, cfg.Webhook.Strict)

	// Fields not present in the file keep their defaults.
	assert.Equal(t, DefaultTimeout, cfg.Client.Timeout)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_key: from_file\nbase_url: https://file.example\n"), 0600))

	t.Setenv(EnvAPIKey, "from_env")
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvWebhookPort, "4567")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from_env", cfg.APIKey)
	assert.Equal(t, "https://file.example", cfg.BaseURL)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 4567, cfg.Webhook.Port)
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_key: [broken"), 0600))

	_, err := Load(path)
	assert.ErrorContains(t, err, "parse config")
}

func TestValidate(t *testing.T) {
	t.Run("MissingAPIKey", func(t *testing.T) {
		cfg := New()
		assert.ErrorIs(t, cfg.Validate(), ErrMissingAPIKey)
	})

	t.Run("Valid", func(t *testing.T) {
		cfg := New()
		cfg.APIKey = "fm_live_key"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("BadConcurrency", func(t *testing.T) {
		cfg := New()
		cfg.APIKey = "fm_live_key"
		cfg.Batch.Concurrency = 0
		assert.ErrorContains(t, cfg.Validate(), "concurrency")
	})

	t.Run("NegativeRetries", func(t *testing.T) {
		cfg := New()
		cfg.APIKey = "fm_live_key"
		cfg.Batch.MaxRetries = -1
		assert.ErrorContains(t, cfg.Validate(), "max_retries")
	})
}
