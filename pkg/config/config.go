package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kerbaras/mangadex-dl/pkg/data"
	"gopkg.in/yaml.v3"
)

// Config holds all downloader configuration.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Download DownloadConfig `yaml:"download"`
	Log      LogConfig      `yaml:"log"`
	Ledger   LedgerConfig   `yaml:"ledger"`
}

// APIConfig configures the MangaDex endpoints.
type APIConfig struct {
	BaseURL    string `yaml:"base_url"`
	ReportURL  string `yaml:"report_url"`
	OriginHost string `yaml:"origin_host"` // hosts containing this are never reported
	UserAgent  string `yaml:"user_agent"`
	Timeout    string `yaml:"timeout"` // "0s" disables the client timeout
	Language   string `yaml:"language"`
}

// DownloadConfig configures the page loop.
type DownloadConfig struct {
	Dir          string `yaml:"dir"`
	Quality      string `yaml:"quality"`
	SkipExisting bool   `yaml:"skip_existing"`
	PageDelay    string `yaml:"page_delay"`
	RetryDelay   string `yaml:"retry_delay"`
	Throttle     string `yaml:"throttle"` // interval, bucket
	Burst        int    `yaml:"burst"`
}

type LogConfig struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

// LedgerConfig enables the DuckDB attempt ledger when Path is set.
type LedgerConfig struct {
	Path string `yaml:"path"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:    "https://api.mangadex.org",
			ReportURL:  "https://api.mangadex.network/report",
			OriginHost: "mangadex.org",
			UserAgent:  "mangadex-dl",
			Timeout:    "0s",
			Language:   "en",
		},
		Download: DownloadConfig{
			Dir:          ".",
			Quality:      string(data.QualityDataSaver),
			SkipExisting: true,
			PageDelay:    "5s",
			RetryDelay:   "60s",
			Throttle:     "interval",
			Burst:        1,
		},
		Log: LogConfig{
			File:  "downloader.log",
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(content, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MANGADEX_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("MANGADEX_REPORT_URL"); v != "" {
		c.API.ReportURL = v
	}
	if v := os.Getenv("MANGADEX_DOWNLOAD_DIR"); v != "" {
		c.Download.Dir = v
	}
	if v := os.Getenv("MANGADEX_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate checks every field that is parsed lazily.
func (c *Config) Validate() error {
	for name, v := range map[string]string{
		"api.timeout":          c.API.Timeout,
		"download.page_delay":  c.Download.PageDelay,
		"download.retry_delay": c.Download.RetryDelay,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	if _, err := data.ParseQuality(c.Download.Quality); err != nil {
		return fmt.Errorf("invalid download.quality: %w", err)
	}
	switch c.Download.Throttle {
	case "interval", "bucket":
	default:
		return fmt.Errorf("invalid download.throttle %q (use interval or bucket)", c.Download.Throttle)
	}
	return nil
}

func (c *Config) Timeout() time.Duration    { return mustDuration(c.API.Timeout) }
func (c *Config) PageDelay() time.Duration  { return mustDuration(c.Download.PageDelay) }
func (c *Config) RetryDelay() time.Duration { return mustDuration(c.Download.RetryDelay) }

func (c *Config) Quality() data.Quality {
	q, _ := data.ParseQuality(c.Download.Quality)
	return q
}

func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
