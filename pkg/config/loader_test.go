package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notisync/pkg/config"
)

type testConfig struct {
	BaseURL      string        `env:"TEST_NOTISYNC_URL,required"`
	PollInterval time.Duration `env:"TEST_NOTISYNC_INTERVAL" envDefault:"30s"`
	MaxRetries   int           `env:"TEST_NOTISYNC_RETRIES" envDefault:"3"`
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_NOTISYNC_URL", "https://api.example.com")
	t.Setenv("TEST_NOTISYNC_INTERVAL", "15s")

	var cfg testConfig
	require.NoError(t, config.Load(&cfg))

	assert.Equal(t, "https://api.example.com", cfg.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.PollInterval)
	assert.Equal(t, 3, cfg.MaxRetries, "unset variable falls back to envDefault")
}

func TestLoad_MissingRequired(t *testing.T) {
	// t.Setenv registers the cleanup; the unset makes the variable truly
	// absent rather than empty.
	t.Setenv("TEST_NOTISYNC_URL", "")
	require.NoError(t, os.Unsetenv("TEST_NOTISYNC_URL"))

	var cfg testConfig
	err := config.Load(&cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrParsingConfig)
}

func TestLoad_NilPointer(t *testing.T) {
	t.Parallel()

	err := config.Load[testConfig](nil)
	assert.ErrorIs(t, err, config.ErrNilPointer)
}

func TestMustLoad_PanicsOnError(t *testing.T) {
	t.Setenv("TEST_NOTISYNC_URL", "")
	require.NoError(t, os.Unsetenv("TEST_NOTISYNC_URL"))

	var cfg testConfig
	assert.Panics(t, func() { config.MustLoad(&cfg) })
}
