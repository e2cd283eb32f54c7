package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const scaffoldBaseTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>{{.Page.Title}} | {{.Site.Title}}</title>
  <link rel="stylesheet" href="/assets/style.css">
</head>
<body>
  <header>
    <h1><a href="/">{{.Site.Title}}</a></h1>
    <nav>
      {{range .Site.Pages}}<a href="/{{.OutputPath}}">{{.Title}}</a>
      {{end}}
    </nav>
  </header>
  <main>
{{.Page.Body}}
  </main>
  <footer>
    <p>{{.Site.Generator}}{{with .Site.Revision}} ({{.}}){{end}}</p>
  </footer>
</body>
</html>
`

const scaffoldIndexPage = `---
title: Home
---

# Welcome

This site is built with sitegen. Edit files under ` + "`content/`" + ` and run
` + "`sitegen build`" + `, or keep ` + "`sitegen watch`" + ` running while you write.
`

const scaffoldAboutPage = `---
title: About
---

# About

Pages are Markdown files with optional YAML front-matter. Directories with an
` + "`index.md`" + ` become sections whose sibling pages are listed as children.
`

const scaffoldStylesheet = `body { max-width: 48rem; margin: 0 auto; padding: 1rem; font-family: sans-serif; }
nav a { margin-right: 0.75rem; }
pre { padding: 0.75rem; overflow-x: auto; }
`

// Init creates a configuration file plus a minimal site skeleton next to it:
// example content, a base template, and an asset directory. Existing files
// are preserved unless force is set.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Config{
		Content: defaultContent,
		Output:  defaultOutput,
		Assets:  []string{defaultAssets},
		Markdown: MarkdownConfig{
			Extensions: append([]string(nil), defaultExtensions...),
		},
		Site: SiteConfig{
			Title: "My Site",
		},
		Templates: TemplatesConfig{
			Dir:  defaultTemplatesDir,
			Base: defaultBaseTemplate,
		},
		Watch: WatchConfig{
			Debounce: defaultDebounce,
		},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	root := filepath.Dir(configPath)
	skeleton := []struct {
		path    string
		content string
	}{
		{filepath.Join(root, example.Templates.Dir, example.Templates.Base), scaffoldBaseTemplate},
		{filepath.Join(root, example.Content, "index.md"), scaffoldIndexPage},
		{filepath.Join(root, example.Content, "about.md"), scaffoldAboutPage},
		{filepath.Join(root, defaultAssets, "style.css"), scaffoldStylesheet},
	}

	for _, f := range skeleton {
		if _, err := os.Stat(f.path); err == nil && !force {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", f.path, err)
		}
		if err := os.WriteFile(f.path, []byte(f.content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.path, err)
		}
	}

	return nil
}
