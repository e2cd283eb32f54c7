package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

// Validate checks structural invariants after defaults have been applied.
func Validate(cfg *Config) error {
	if cfg.Content == "" {
		return errors.New("content directory cannot be empty")
	}
	if cfg.Output == "" {
		return errors.New("output directory cannot be empty")
	}
	if filepath.Clean(cfg.Content) == filepath.Clean(cfg.Output) {
		return fmt.Errorf("content and output directories must differ: %s", cfg.Content)
	}

	for _, src := range cfg.Assets {
		if src == "" {
			return errors.New("asset source path cannot be empty")
		}
	}
	for _, ext := range cfg.Markdown.Extensions {
		if ext == "" {
			return errors.New("markdown extension name cannot be empty")
		}
	}

	if err := validateDuration("watch.debounce", cfg.Watch.Debounce, true); err != nil {
		return err
	}
	if err := validateDuration("watch.interval", cfg.Watch.Interval, false); err != nil {
		return err
	}

	if cfg.State != nil && cfg.State.Path == "" {
		return errors.New("state.path cannot be empty when state is configured")
	}
	if cfg.Monitoring != nil && cfg.Monitoring.Addr == "" {
		return errors.New("monitoring.addr cannot be empty when monitoring is configured")
	}
	if cfg.Notify != nil {
		if cfg.Notify.URL == "" {
			return errors.New("notify.url cannot be empty when notify is configured")
		}
		if cfg.Notify.Subject == "" {
			return errors.New("notify.subject cannot be empty when notify is configured")
		}
	}

	return nil
}

// validateDuration rejects unparseable or non-positive duration strings.
// Empty strings pass unless required is set.
func validateDuration(field, raw string, required bool) error {
	if raw == "" {
		if required {
			return fmt.Errorf("%s cannot be empty", field)
		}
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid duration: %q", field, raw)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive: %q", field, raw)
	}
	return nil
}
