package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration.
type Config struct {
	API        APIConfig        `yaml:"api" toml:"api"`
	Stream     StreamConfig     `yaml:"stream" toml:"stream"`
	Logging    LogConfig        `yaml:"logging" toml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics" toml:"metrics"`
	DevBackend DevBackendConfig `yaml:"dev_backend" toml:"dev_backend"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit" toml:"rate_limit"`
}

// APIConfig holds request/response collaborator settings.
type APIConfig struct {
	BaseURL   string   `envconfig:"CHAT_API_URL" default:"http://localhost:8000/api" yaml:"base_url" toml:"base_url"`
	Timeout   Duration `envconfig:"CHAT_API_TIMEOUT" default:"30s" yaml:"timeout" toml:"timeout"`
	RateLimit float64  `envconfig:"CHAT_API_RATE_LIMIT" default:"0" yaml:"rate_limit" toml:"rate_limit"`
	Retries   int      `envconfig:"CHAT_API_RETRIES" default:"0" yaml:"retries" toml:"retries"`
}

// StreamConfig holds streaming connection settings.
type StreamConfig struct {
	BaseURL          string   `envconfig:"CHAT_WS_URL" default:"ws://localhost:8000/ws/chat" yaml:"base_url" toml:"base_url"`
	HandshakeTimeout Duration `envconfig:"CHAT_HANDSHAKE_TIMEOUT" default:"0s" yaml:"handshake_timeout" toml:"handshake_timeout"`
	WriteTimeout     Duration `envconfig:"CHAT_WRITE_TIMEOUT" default:"10s" yaml:"write_timeout" toml:"write_timeout"`
	ReadLimit        int64    `envconfig:"CHAT_READ_LIMIT" default:"33554432" yaml:"read_limit" toml:"read_limit"`
	Compression      bool     `envconfig:"CHAT_WS_COMPRESSION" default:"false" yaml:"compression" toml:"compression"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development" toml:"development"`
	Output      string `envconfig:"LOG_OUTPUT" default:"stderr" yaml:"output" toml:"output"`
}

// MetricsConfig holds the metrics listener address. Empty disables it.
type MetricsConfig struct {
	Addr string `envconfig:"METRICS_ADDR" default:"" yaml:"addr" toml:"addr"`
}

// DevBackendConfig holds settings for the local development backend.
type DevBackendConfig struct {
	Host         string   `envconfig:"DEV_HOST" default:"127.0.0.1" yaml:"host" toml:"host"`
	Port         string   `envconfig:"DEV_PORT" default:"8000" yaml:"port" toml:"port"`
	DefaultModel string   `envconfig:"DEV_MODEL" default:"google/gemini-2.0-flash-001" yaml:"default_model" toml:"default_model"`
	ChunkDelay   Duration `envconfig:"DEV_CHUNK_DELAY" default:"20ms" yaml:"chunk_delay" toml:"chunk_delay"`
}

// RateLimitConfig holds per-IP rate limiting for the development backend.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100" yaml:"rps" toml:"rps"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200" yaml:"burst" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" yaml:"enabled" toml:"enabled"`
}

// Duration is a time.Duration that reads "30s"-style text from the
// environment, YAML and TOML alike.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Load reads an optional .env file, then environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// LoadFile reads a YAML or TOML file over the defaults. The format is
// chosen by extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that endpoints use the expected schemes.
func (c *Config) Validate() error {
	if err := checkScheme("api.base_url", c.API.BaseURL, "http", "https"); err != nil {
		return err
	}
	if err := checkScheme("stream.base_url", c.Stream.BaseURL, "ws", "wss"); err != nil {
		return err
	}
	if c.API.RateLimit < 0 {
		return fmt.Errorf("api.rate_limit must not be negative")
	}
	return nil
}

func checkScheme(field, raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%s: %q must be an absolute %s URL", field, raw, strings.Join(schemes, "/"))
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   "http://localhost:8000/api",
			Timeout:   Duration(30 * time.Second),
			RateLimit: 0,
			Retries:   0,
		},
		Stream: StreamConfig{
			BaseURL:          "ws://localhost:8000/ws/chat",
			HandshakeTimeout: 0,
			WriteTimeout:     Duration(10 * time.Second),
			ReadLimit:        32 << 20,
			Compression:      false,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
			Output:      "stderr",
		},
		DevBackend: DevBackendConfig{
			Host:         "127.0.0.1",
			Port:         "8000",
			DefaultModel: "google/gemini-2.0-flash-001",
			ChunkDelay:   Duration(20 * time.Millisecond),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
