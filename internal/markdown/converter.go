package markdown

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
)

// ErrUnknownExtension is returned when a configured extension name has no
// registry entry. Misspelled names fail at startup rather than silently
// producing unstyled output.
var ErrUnknownExtension = errors.New("unknown markdown extension")

// extensionRegistry maps configurable extension names to goldmark extenders.
// A name may enable several extenders ("extra") or none ("sane_lists", which
// is the default CommonMark list behavior and exists so configs can name it).
var extensionRegistry = map[string][]goldmark.Extender{
	"extra":         {extension.Table, extension.DefinitionList, extension.Footnote},
	"codehilite":    {highlighting.NewHighlighting()},
	"highlighting":  {highlighting.NewHighlighting()},
	"sane_lists":    {},
	"gfm":           {extension.GFM},
	"table":         {extension.Table},
	"tables":        {extension.Table},
	"strikethrough": {extension.Strikethrough},
	"linkify":       {extension.Linkify},
	"autolink":      {extension.Linkify},
	"tasklist":      {extension.TaskList},
	"definition":    {extension.DefinitionList},
	"footnote":      {extension.Footnote},
	"typographer":   {extension.Typographer},
}

// KnownExtensions returns the sorted registry names, for diagnostics.
func KnownExtensions() []string {
	names := make([]string, 0, len(extensionRegistry))
	for name := range extensionRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Converter renders Markdown source into HTML fragments. It is immutable
// after construction and safe for concurrent use, so one instance serves
// every page of every build cycle.
type Converter struct {
	engine goldmark.Markdown
}

// NewConverter builds a converter with the named extensions enabled.
// Raw HTML in the source passes through unescaped, matching the usual
// authoring expectation for site content.
func NewConverter(extensions []string) (*Converter, error) {
	extenders, err := collectExtensions(extensions)
	if err != nil {
		return nil, err
	}

	opts := []goldmark.Option{
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	}
	if len(extenders) > 0 {
		opts = append(opts, goldmark.WithExtensions(extenders...))
	}

	return &Converter{engine: goldmark.New(opts...)}, nil
}

// Convert renders one document body to HTML.
func (c *Converter) Convert(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.engine.Convert(src, &buf); err != nil {
		return nil, fmt.Errorf("markdown convert: %w", err)
	}
	return buf.Bytes(), nil
}

func collectExtensions(names []string) ([]goldmark.Extender, error) {
	var extenders []goldmark.Extender
	seen := map[string]struct{}{}

	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		exts, ok := extensionRegistry[key]
		if !ok {
			return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownExtension, name, strings.Join(KnownExtensions(), ", "))
		}
		extenders = append(extenders, exts...)
		seen[key] = struct{}{}
	}

	return extenders, nil
}
