package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"FINNHUB_API_KEY": "k"})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:42069", cfg.Addr())
	assert.Equal(t, "https://finnhub.io/api/v1", cfg.FinnhubBaseURL)
	assert.Equal(t, "./data/stock_tracker.db", cfg.DatabasePath)
	assert.Equal(t, []string{"AAPL", "MSFT", "GOOGL"}, cfg.Symbols)
	assert.Equal(t, 5*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, 12*time.Second, cfg.FetchDelay)
	assert.Equal(t, 1<<20, cfg.MaxRequestBytes)
	assert.True(t, cfg.SyncEnabled)
	assert.False(t, cfg.RequireHost)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestOverrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"HOST":              "0.0.0.0",
		"PORT":              "8080",
		"FINNHUB_API_KEY":   "k",
		"SYMBOLS":           " tsla, aapl,,TSLA ",
		"REFRESH_INTERVAL":  "30s",
		"READ_TIMEOUT":      "250ms",
		"MAX_REQUEST_BYTES": "4096",
		"REQUIRE_HOST":      "true",
		"LOG_FORMAT":        "console",
	})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, []string{"TSLA", "AAPL"}, cfg.Symbols)
	assert.Equal(t, 30*time.Second, cfg.RefreshInterval)
	assert.Equal(t, 250*time.Millisecond, cfg.ReadTimeout)
	assert.Equal(t, 4096, cfg.MaxRequestBytes)
	assert.True(t, cfg.RequireHost)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestAPIKeyOnlyRequiredForSync(t *testing.T) {
	_, err := LoadFrom(map[string]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FINNHUB_API_KEY")

	_, err = LoadFrom(map[string]string{"SYNC_ENABLED": "false"})
	require.NoError(t, err)
}

func TestInvalid(t *testing.T) {
	_, err := LoadFrom(map[string]string{"PORT": "http"})
	require.Error(t, err)

	_, err = LoadFrom(map[string]string{
		"FINNHUB_API_KEY":   "k",
		"PORT":              "70000",
		"MAX_REQUEST_BYTES": "0",
		"LOG_FORMAT":        "xml",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT 70000 out of range")
	assert.Contains(t, err.Error(), "MAX_REQUEST_BYTES")
	assert.Contains(t, err.Error(), "LOG_FORMAT")
}
