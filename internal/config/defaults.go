package config

import "time"

const (
	defaultContent          = "content"
	defaultOutput           = "output"
	defaultAssets           = "assets"
	defaultTemplatesDir     = "templates"
	defaultBaseTemplate     = "base.html"
	defaultSiteTitle        = "Site"
	defaultDebounce         = "2s"
	defaultDebounceDuration = 2 * time.Second
)

// defaultExtensions is the baseline converter extension set: tables and
// related extra syntax, code highlighting, and strict list parsing.
var defaultExtensions = []string{"extra", "codehilite", "sane_lists"}

// applyDefaults fills in zero-valued fields after unmarshaling. Optional
// subsystem blocks (state, monitoring, notify) stay nil unless configured.
func applyDefaults(cfg *Config) {
	if cfg.Content == "" {
		cfg.Content = defaultContent
	}
	if cfg.Output == "" {
		cfg.Output = defaultOutput
	}
	if cfg.Assets == nil {
		cfg.Assets = []string{defaultAssets}
	}
	if len(cfg.Markdown.Extensions) == 0 {
		cfg.Markdown.Extensions = append([]string(nil), defaultExtensions...)
	}
	if cfg.Site.Title == "" {
		cfg.Site.Title = defaultSiteTitle
	}
	if cfg.Templates.Dir == "" {
		cfg.Templates.Dir = defaultTemplatesDir
	}
	if cfg.Templates.Base == "" {
		cfg.Templates.Base = defaultBaseTemplate
	}
	if cfg.Watch.Debounce == "" {
		cfg.Watch.Debounce = defaultDebounce
	}
}
