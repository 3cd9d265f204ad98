package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Stream   StreamConfig   `toml:"stream"`
	Bulk     BulkConfig     `toml:"bulk"`
	Log      LogConfig      `toml:"log"`
}

// ServerConfig points the client at the crawl backend.
type ServerConfig struct {
	BaseURL string        `toml:"base_url"`
	Timeout time.Duration `toml:"timeout"`
}

// DatabaseConfig contains local database settings. The database holds the session marker and cookies.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// StreamConfig tunes the live task event stream.
type StreamConfig struct {
	RetryDelay    time.Duration `toml:"retry_delay"`    // wait before reconnecting a dropped stream
	MaxReconnects int           `toml:"max_reconnects"` // consecutive failed reconnects before the stream is closed
	ReconnectRate float64       `toml:"reconnect_rate"` // reconnect attempts per second
}

// BulkConfig controls concurrent task submission.
type BulkConfig struct {
	Workers   int     `toml:"workers"`
	RateLimit float64 `toml:"rate_limit"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// LoadConfig reads and parses a TOML configuration file. Keys missing from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %v", ErrMissingConfig, err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile writes the embedded example config to path. It refuses to overwrite an existing file.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	switch {
	case c.Server.BaseURL == "":
		return fmt.Errorf("%w: server.base_url is empty", ErrInvalidConfig)
	case !strings.HasPrefix(c.Server.BaseURL, "http://") && !strings.HasPrefix(c.Server.BaseURL, "https://"):
		return fmt.Errorf("%w: server.base_url must be http or https, got %q", ErrInvalidConfig, c.Server.BaseURL)
	case c.Database.Path == "":
		return fmt.Errorf("%w: database.path is empty", ErrInvalidConfig)
	case c.Stream.RetryDelay < 0:
		return fmt.Errorf("%w: stream.retry_delay must not be negative", ErrInvalidConfig)
	case c.Stream.MaxReconnects < 0:
		return fmt.Errorf("%w: stream.max_reconnects must not be negative", ErrInvalidConfig)
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalidConfig, err)
	}
	return nil
}

// LogLevel returns the configured [log.Level], falling back to info.
func (c *Config) LogLevel() log.Level {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return level
}
