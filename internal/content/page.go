package content

import (
	"html/template"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Meta holds the front-matter metadata of one page. Keys are author-defined;
// access goes through typed getters rather than dynamic lookup.
type Meta map[string]any

// Get returns the raw value for key.
func (m Meta) Get(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

// GetString returns the value for key when it is a non-empty string.
func (m Meta) GetString(key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// Page is one rendered content document. Pages are constructed by the Reader
// once per build cycle and never mutated afterwards; each rebuild produces a
// fresh tree.
type Page struct {
	// Meta is the parsed front-matter, empty when the file has none.
	Meta Meta

	// Body is the page body converted to HTML. Typed so templates can embed
	// it without re-escaping.
	Body template.HTML

	// SourcePath is the source file as given to the Reader, for diagnostics.
	SourcePath string

	// OutputPath is the slash-separated path of the rendered document
	// relative to the output root: the content-root prefix stripped and the
	// .md suffix swapped for .html.
	OutputPath string

	// Children holds the pages owned by this directory-index page, ordered
	// by source name. Empty for regular pages.
	Children []*Page

	fallbackTitle string
}

// Title returns the front-matter title, or a title-cased form of the source
// name when none is set (regular pages use the file stem, index pages their
// directory name, the content root's own index.md "Home").
func (p *Page) Title() string {
	if t, ok := p.Meta.GetString("title"); ok {
		return t
	}
	return titleCase(p.fallbackTitle)
}

// Walk visits the page and every descendant, parents before children.
func (p *Page) Walk(fn func(*Page) error) error {
	if err := fn(p); err != nil {
		return err
	}
	for _, child := range p.Children {
		if err := child.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}

// CountPages returns the total number of pages in the forest.
func CountPages(pages []*Page) int {
	n := 0
	for _, p := range pages {
		_ = p.Walk(func(*Page) error {
			n++
			return nil
		})
	}
	return n
}

// OutputPathFor derives the output-relative path for a Markdown source file.
// The transform is a pure prefix-strip plus suffix-swap, so distinct source
// files always map to distinct output paths.
func OutputPathFor(contentRoot, sourcePath string) (string, error) {
	rel, err := filepath.Rel(contentRoot, sourcePath)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	return strings.TrimSuffix(rel, ".md") + ".html", nil
}

// titleCase builds a fresh caser per call; cases.Caser is stateful and must
// not be shared across goroutines.
func titleCase(name string) string {
	cleaned := strings.ReplaceAll(strings.ReplaceAll(name, "-", " "), "_", " ")
	return cases.Title(language.English).String(cleaned)
}
