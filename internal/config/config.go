package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// DefaultEvents are the channels subscribed to when none are configured.
var DefaultEvents = []string{"scan.ingested", "part_location_updated", "scan_update"}

type Config struct {
	API         APIConfig     `yaml:"api"`
	Socket      SocketConfig  `yaml:"socket"`
	Filter      FilterConfig  `yaml:"filter"`
	Viewer      ViewerConfig  `yaml:"viewer"`
	RelayEvents bool          `yaml:"relay_events"`
	Embed       EmbedConfig   `yaml:"embed"`
	Metrics     MetricsConfig `yaml:"metrics"`
	Log         LogConfig     `yaml:"log"`
	Server      ServerConfig  `yaml:"server"`
}

type APIConfig struct {
	Base    string        `yaml:"base"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

type SocketConfig struct {
	Base      string   `yaml:"base"` // empty means API base
	Path      string   `yaml:"path"`
	Namespace string   `yaml:"namespace"`
	AutoOpen  bool     `yaml:"auto_open"`
	Events    []string `yaml:"events"`
}

type FilterConfig struct {
	AcceptDeviceIDs     []string `yaml:"accept_device_ids"`
	AcceptLocationCodes []string `yaml:"accept_location_codes"`
}

type ViewerConfig struct {
	ErrorTimeout int           `yaml:"error_timeout"` // countdown units
	Tick         time.Duration `yaml:"tick"`
}

type EmbedConfig struct {
	Socket string `yaml:"socket"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Output string `yaml:"output"`
	Level  string `yaml:"level"`
}

// SlogLevel parses Level, falling back to info.
func (l LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(l.Level))); err != nil {
		return slog.LevelInfo
	}
	return level
}

type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	DocumentsDir   string        `yaml:"documents_dir"`
	Token          string        `yaml:"token"`
	EventName      string        `yaml:"event_name"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	SocketPath     string        `yaml:"socket_path"`
	Mock           MockConfig    `yaml:"mock"`
}

// MockConfig drives the simulated handheld scanner.
type MockConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Interval    time.Duration `yaml:"interval"`
	RepeatEvery int           `yaml:"repeat_every"`
}

func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Base:    "http://127.0.0.1:8501",
			Timeout: 10 * time.Second,
		},
		Socket: SocketConfig{
			Path:     "/socket.io",
			AutoOpen: true,
			Events:   append([]string(nil), DefaultEvents...),
		},
		Viewer: ViewerConfig{
			ErrorTimeout: 5,
			Tick:         time.Second,
		},
		RelayEvents: true,
		Log: LogConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         8501,
			DocumentsDir: "documents",
			EventName:    "part_location_updated",
			CacheTTL:     30 * time.Second,
			SocketPath:   "/socket.io",
			Mock: MockConfig{
				Interval: 3 * time.Second,
			},
		},
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
// An empty path also yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return defaultConfig(), nil
	}
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return defaultConfig(), nil
	}
	return cfg, err
}

// SocketBase returns the event transport base URL.
func (c *Config) SocketBase() string {
	if strings.TrimSpace(c.Socket.Base) != "" {
		return strings.TrimSpace(c.Socket.Base)
	}
	return c.API.Base
}

// Validate reports configuration the kiosk or server cannot run with.
func (c *Config) Validate() error {
	if c.Viewer.ErrorTimeout <= 0 {
		return fmt.Errorf("%w: viewer.error_timeout must be positive, got %d", ErrInvalid, c.Viewer.ErrorTimeout)
	}
	if c.Viewer.Tick <= 0 {
		return fmt.Errorf("%w: viewer.tick must be positive, got %s", ErrInvalid, c.Viewer.Tick)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalid, c.Server.Port)
	}
	if c.Server.Mock.Enabled && c.Server.Mock.Interval <= 0 {
		return fmt.Errorf("%w: server.mock.interval must be positive, got %s", ErrInvalid, c.Server.Mock.Interval)
	}
	u, err := url.Parse(c.API.Base)
	if err != nil {
		return fmt.Errorf("%w: api.base: %v", ErrInvalid, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: api.base %q must be an http(s) URL", ErrInvalid, c.API.Base)
	}
	return nil
}
