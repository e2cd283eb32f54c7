package content

import (
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/frontmatter"

	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/markdown"
)

const (
	markdownExt = ".md"
	indexFile   = "index.md"
)

// Reader discovers the content tree and converts page bodies. One Reader is
// constructed at startup and reused across build cycles; every ReadPages
// call returns a fresh forest.
type Reader struct {
	converter *markdown.Converter
	logger    *slog.Logger
}

// NewReader returns a Reader rendering bodies through converter.
func NewReader(converter *markdown.Converter, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{converter: converter, logger: logger}
}

// ReadPages scans contentRoot and returns the top-level page forest:
// Markdown files become leaf pages, directories become subtrees rooted at
// their index.md. Hidden entries are ignored; other non-Markdown files are
// skipped with a diagnostic. Entries are visited in name order, directories
// and files interleaved, so the forest is deterministic for a given tree.
func (r *Reader) ReadPages(contentRoot string) ([]*Page, error) {
	entries, err := os.ReadDir(contentRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFileAccess, contentRoot, err)
	}

	var pages []*Page
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(contentRoot, entry.Name())

		if entry.IsDir() {
			dirPage, orphans, err := r.readSubtree(contentRoot, path)
			if err != nil {
				return nil, err
			}
			if dirPage != nil {
				pages = append(pages, dirPage)
			} else {
				pages = append(pages, orphans...)
			}
			continue
		}

		if !strings.HasSuffix(entry.Name(), markdownExt) {
			r.logger.Warn("skipping non-markdown file", logfields.Path(path))
			continue
		}

		page, err := r.readPage(contentRoot, path)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}

	return pages, nil
}

// readSubtree builds the subtree for one directory. When the directory has
// an index.md the subtree's root page is returned with all descendants as
// children. When it does not, the directory contributes no page of its own:
// a diagnostic is logged and the collected children are handed back to the
// caller to be attached one level up. Output paths mirror the filesystem
// either way, only navigation nesting flattens.
func (r *Reader) readSubtree(contentRoot, dir string) (*Page, []*Page, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %w", ErrFileAccess, dir, err)
	}

	var children []*Page
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			subPage, orphans, err := r.readSubtree(contentRoot, path)
			if err != nil {
				return nil, nil, err
			}
			if subPage != nil {
				children = append(children, subPage)
			} else {
				children = append(children, orphans...)
			}
			continue
		}

		if entry.Name() == indexFile {
			continue
		}
		if !strings.HasSuffix(entry.Name(), markdownExt) {
			r.logger.Warn("skipping non-markdown file", logfields.Path(path))
			continue
		}

		child, err := r.readPage(contentRoot, path)
		if err != nil {
			return nil, nil, err
		}
		children = append(children, child)
	}

	indexPath := filepath.Join(dir, indexFile)
	if _, err := os.Stat(indexPath); err != nil {
		r.logger.Warn("directory has no index.md, flattening its pages into the parent", logfields.Dir(dir))
		return nil, children, nil
	}

	dirPage, err := r.readPage(contentRoot, indexPath)
	if err != nil {
		return nil, nil, err
	}
	dirPage.Children = children
	return dirPage, nil, nil
}

// readPage loads one source file: front-matter into Meta, body through the
// converter, output path via the prefix-strip suffix-swap transform.
func (r *Reader) readPage(contentRoot, path string) (*Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFileAccess, path, err)
	}
	defer f.Close()

	var meta map[string]any
	body, err := frontmatter.Parse(f, &meta)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMetadataParse, path, err)
	}

	html, err := r.converter.Convert(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConvert, path, err)
	}

	outputPath, err := OutputPathFor(contentRoot, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFileAccess, path, err)
	}

	return &Page{
		Meta:          Meta(meta),
		Body:          template.HTML(html),
		SourcePath:    path,
		OutputPath:    outputPath,
		fallbackTitle: fallbackTitleFor(contentRoot, path),
	}, nil
}

// fallbackTitleFor picks the seed Title() uses when front-matter has no
// title: the file stem for regular pages, the directory name for index
// pages, and "Home" for the content root's own index.md.
func fallbackTitleFor(contentRoot, path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), markdownExt)
	if stem != "index" {
		return stem
	}
	dir := filepath.Dir(path)
	if filepath.Clean(dir) == filepath.Clean(contentRoot) {
		return "Home"
	}
	return filepath.Base(dir)
}
