// Package render expands pages into full HTML documents through a parsed
// html/template set. The engine owns no page state; every execution is
// independent and deterministic for fixed inputs.
package render

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitegen/internal/content"
)

// ErrRender classifies template execution failures; they abort the build
// cycle that hit them.
var ErrRender = errors.New("template rendering failed")

// SiteContext is the site-wide half of the data handed to every template
// execution. Built once per build cycle by the orchestrator.
type SiteContext struct {
	Title     string
	BaseURL   string
	Params    map[string]any
	Pages     []*content.Page
	Generator string
	Revision  string
}

// Data is the root object templates execute against: {{.Site.Title}},
// {{.Page.Body}}, {{range .Site.Pages}} and so on.
type Data struct {
	Site *SiteContext
	Page *content.Page
}

// Engine holds the parsed template set: the base layout plus every other
// .html file found under the templates directory (partials included).
// Templates are addressed by file base name, so names must be unique across
// subdirectories.
type Engine struct {
	templates *template.Template
	base      string
}

// NewEngine parses every .html file under dir and verifies the base layout
// is among them. Construction failures are configuration errors; the
// process should not start without a usable template set.
func NewEngine(dir, base string) (*Engine, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(strings.ToLower(d.Name()), ".html") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning template directory %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .html templates found in %s", dir)
	}

	templates, err := template.ParseFiles(files...)
	if err != nil {
		return nil, fmt.Errorf("parsing templates in %s: %w", dir, err)
	}
	if templates.Lookup(base) == nil {
		return nil, fmt.Errorf("base template %s not found in %s", base, dir)
	}

	return &Engine{templates: templates, base: base}, nil
}

// Render executes the base layout for page and streams the document to w in
// template-defined order. The page body is embedded without re-escaping
// since it is already rendered HTML.
func (e *Engine) Render(w io.Writer, site *SiteContext, page *content.Page) error {
	if err := e.templates.ExecuteTemplate(w, e.base, Data{Site: site, Page: page}); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRender, page.SourcePath, err)
	}
	return nil
}
