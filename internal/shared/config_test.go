package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./scrapectl.db" {
			t.Errorf("expected database path ./scrapectl.db, got %s", config.Database.Path)
		}
		if config.Server.BaseURL != "http://127.0.0.1:8080" {
			t.Errorf("expected base URL http://127.0.0.1:8080, got %s", config.Server.BaseURL)
		}
		if config.Server.Timeout != 30*time.Second {
			t.Errorf("expected timeout 30s, got %v", config.Server.Timeout)
		}
		if config.Stream.RetryDelay != 3*time.Second {
			t.Errorf("expected retry delay 3s, got %v", config.Stream.RetryDelay)
		}
		if config.Stream.MaxReconnects != 5 {
			t.Errorf("expected 5 max reconnects, got %d", config.Stream.MaxReconnects)
		}
		if err := config.Validate(); err != nil {
			t.Errorf("default config should be valid: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}
		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		testConfig := `[server]
base_url = "https://crawl.example.com"
timeout = "5s"

[database]
path = "/custom/path.db"

[stream]
retry_delay = "250ms"
max_reconnects = 2

[log]
level = "debug"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Server.BaseURL != "https://crawl.example.com" {
			t.Errorf("expected custom base URL, got %s", config.Server.BaseURL)
		}
		if config.Stream.RetryDelay != 250*time.Millisecond {
			t.Errorf("expected retry delay 250ms, got %v", config.Stream.RetryDelay)
		}
		if config.Bulk.Workers != 4 {
			t.Errorf("expected bulk workers to keep default 4, got %d", config.Bulk.Workers)
		}
		if config.LogLevel() != log.DebugLevel {
			t.Errorf("expected debug level, got %v", config.LogLevel())
		}
	})

	t.Run("LoadConfig Missing File", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
		if !errors.Is(err, ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(*Config)
		}{
			{name: "empty base url", mutate: func(c *Config) { c.Server.BaseURL = "" }},
			{name: "non http base url", mutate: func(c *Config) { c.Server.BaseURL = "ftp://example.com" }},
			{name: "empty database path", mutate: func(c *Config) { c.Database.Path = "" }},
			{name: "negative retry delay", mutate: func(c *Config) { c.Stream.RetryDelay = -time.Second }},
			{name: "negative reconnects", mutate: func(c *Config) { c.Stream.MaxReconnects = -1 }},
			{name: "unknown log level", mutate: func(c *Config) { c.Log.Level = "loud" }},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				config := DefaultConfig()
				tt.mutate(config)
				if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			})
		}
	})
}
