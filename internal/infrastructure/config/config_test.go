package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "http://localhost:8000/api", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout.Std())
	assert.Equal(t, "ws://localhost:8000/ws/chat", cfg.Stream.BaseURL)
	assert.Zero(t, cfg.Stream.HandshakeTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)
	assert.Empty(t, cfg.Metrics.Addr)
	assert.Equal(t, "8000", cfg.DevBackend.Port)
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMatchesDefault(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"CHAT_API_URL":           "https://chat.example.com/api",
		"CHAT_API_TIMEOUT":       "5s",
		"CHAT_API_RATE_LIMIT":    "2.5",
		"CHAT_WS_URL":            "wss://chat.example.com/ws/chat",
		"CHAT_HANDSHAKE_TIMEOUT": "3s",
		"LOG_LEVEL":              "debug",
		"LOG_DEV":                "true",
		"METRICS_ADDR":           ":9100",
		"DEV_PORT":               "9000",
		"RATE_LIMIT_ENABLED":     "false",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://chat.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout.Std())
	assert.Equal(t, 2.5, cfg.API.RateLimit)
	assert.Equal(t, "wss://chat.example.com/ws/chat", cfg.Stream.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Stream.HandshakeTimeout.Std())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
	assert.Equal(t, "9000", cfg.DevBackend.Port)
	assert.False(t, cfg.RateLimit.Enabled)

	// untouched values keep their defaults
	assert.Equal(t, 10*time.Second, cfg.Stream.WriteTimeout.Std())
	assert.Equal(t, 200, cfg.RateLimit.Burst)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad duration", "CHAT_API_TIMEOUT", "soon"},
		{"http stream url", "CHAT_WS_URL", "http://localhost:8000/ws/chat"},
		{"relative api url", "CHAT_API_URL", "/api"},
		{"negative rate", "CHAT_API_RATE_LIMIT", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			assert.Error(t, err)
			assert.NotNil(t, LoadOrDefault())
		})
	}
}

func TestLoadFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.yaml")
	content := `
api:
  base_url: https://yaml.example.com/api
  timeout: 12s
stream:
  base_url: wss://yaml.example.com/ws/chat
logging:
  level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "https://yaml.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, 12*time.Second, cfg.API.Timeout.Std())
	assert.Equal(t, "wss://yaml.example.com/ws/chat", cfg.Stream.BaseURL)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 10*time.Second, cfg.Stream.WriteTimeout.Std())
}

func TestLoadFileTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.toml")
	content := `
[stream]
base_url = "ws://127.0.0.1:9000/ws/chat"
handshake_timeout = "2s"

[dev_backend]
port = "9000"
chunk_delay = "0s"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "ws://127.0.0.1:9000/ws/chat", cfg.Stream.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Stream.HandshakeTimeout.Std())
	assert.Equal(t, "9000", cfg.DevBackend.Port)
	assert.Zero(t, cfg.DevBackend.ChunkDelay.Std())
	assert.Equal(t, "http://localhost:8000/api", cfg.API.BaseURL)
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	ini := filepath.Join(dir, "chat.ini")
	require.NoError(t, os.WriteFile(ini, []byte("x=1"), 0o600))
	_, err = LoadFile(ini)
	assert.ErrorContains(t, err, "unsupported config format")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("stream:\n  base_url: http://nope\n"), 0o600))
	_, err = LoadFile(bad)
	assert.Error(t, err)
}

func TestDurationText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Std())

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))

	assert.Error(t, d.UnmarshalText([]byte("later")))
}
