package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the config file name looked up when -c is not given.
const DefaultConfigFile = "sitegen.yaml"

// Config represents the application configuration. It is read once at
// startup and treated as immutable for the process lifetime.
type Config struct {
	Content   string          `yaml:"content"`
	Output    string          `yaml:"output"`
	Assets    []string        `yaml:"assets"`
	Markdown  MarkdownConfig  `yaml:"markdown"`
	Site      SiteConfig      `yaml:"site"`
	Templates TemplatesConfig `yaml:"templates"`
	Watch     WatchConfig     `yaml:"watch"`

	// Optional subsystems; nil means disabled.
	State      *StateConfig      `yaml:"state,omitempty"`
	Monitoring *MonitoringConfig `yaml:"monitoring,omitempty"`
	Notify     *NotifyConfig     `yaml:"notify,omitempty"`
}

// SiteConfig holds presentation metadata handed to every template execution.
type SiteConfig struct {
	Title   string         `yaml:"title"`
	BaseURL string         `yaml:"base_url,omitempty"`
	Params  map[string]any `yaml:"params,omitempty"`
}

// MarkdownConfig selects converter extensions by name.
type MarkdownConfig struct {
	Extensions []string `yaml:"extensions,omitempty"`
}

// TemplatesConfig locates the template set.
type TemplatesConfig struct {
	Dir  string `yaml:"dir"`
	Base string `yaml:"base"`
}

// WatchConfig controls watch-mode rebuild behavior. Durations are strings
// in time.ParseDuration syntax; validation rejects unparseable values, so
// the typed getters can assume well-formed input.
type WatchConfig struct {
	Debounce string `yaml:"debounce,omitempty"`
	Interval string `yaml:"interval,omitempty"`
}

// DebounceDuration returns the quiet window applied after each rebuild.
func (w WatchConfig) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(w.Debounce)
	if err != nil || d <= 0 {
		return defaultDebounceDuration
	}
	return d
}

// IntervalDuration returns the periodic rebuild interval, 0 when disabled.
func (w WatchConfig) IntervalDuration() time.Duration {
	if w.Interval == "" {
		return 0
	}
	d, err := time.ParseDuration(w.Interval)
	if err != nil {
		return 0
	}
	return d
}

// StateConfig enables the build history database.
type StateConfig struct {
	Path string `yaml:"path"`
}

// MonitoringConfig enables the Prometheus exposition endpoint in watch mode.
type MonitoringConfig struct {
	Addr string `yaml:"addr"`
}

// NotifyConfig enables publishing build events to NATS.
type NotifyConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	loadEnv()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s (run 'sitegen init' to create one)", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expandedData := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadEnv loads environment variables from .env/.env.local. The first file
// that parses wins; existing process environment is never overwritten.
func loadEnv() {
	for _, name := range []string{".env", ".env.local"} {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			slog.Warn("skipping unreadable env file", "file", name, "error", err)
			continue
		}
		slog.Debug("loaded environment variables", "file", name)
		return
	}
}
