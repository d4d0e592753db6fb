package config

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultsAndEnvOverride(t *testing.T) {
	t.Setenv("AUTH_TOKEN_SECRET", "test-secret")
	t.Setenv("UPSTREAM_TIMEOUT_MS", "1500")
	t.Setenv("KAFKA_BROKERS", "localhost:9092")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "test-secret", cfg.Auth.TokenSecret)
	assert.Equal(t, 1500*time.Millisecond, cfg.Upstream.Timeout())
	assert.Equal(t, "localhost:9092", cfg.Kafka.Brokers)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Checkout.RedirectDelay())
	assert.Equal(t, 30*time.Minute, cfg.Checkout.TTL())
	assert.Equal(t, "@every 5m", cfg.Catalog.RefreshSpec)
}

func TestLoad_ReadsYAML(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
auth:
  token-secret: from-file
upstream:
  payment-url: http://payments.local
checkout:
  redirect-delay-ms: 500
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.Auth.TokenSecret)
	assert.Equal(t, "http://payments.local", cfg.Upstream.PaymentURL)
	assert.Equal(t, 500*time.Millisecond, cfg.Checkout.RedirectDelay())
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("AUTH_TOKEN_SECRET", "")

	_, err := Load(t.TempDir())
	assert.ErrorIs(t, err, ErrMissingTokenSecret)
}
