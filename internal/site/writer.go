package site

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/sitegen/internal/content"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/render"
)

// Writer materializes the rendered page tree under the output root.
type Writer struct {
	engine *render.Engine
	logger *slog.Logger
}

// NewWriter returns a Writer rendering documents through engine.
func NewWriter(engine *render.Engine, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{engine: engine, logger: logger}
}

// WritePages renders and writes every page in the forest, parents before
// children, overwriting existing files. Each document is rendered fully
// before its file is created, so a rendering failure never leaves a partial
// file behind. The first failure aborts the pass; files already written
// stay in place.
func (w *Writer) WritePages(ctx context.Context, pages []*content.Page, site *render.SiteContext, outputRoot string) (int, error) {
	written := 0
	for _, root := range pages {
		err := root.Walk(func(page *content.Page) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if err := w.writePage(page, site, outputRoot); err != nil {
				return err
			}
			written++
			return nil
		})
		if err != nil {
			return written, err
		}
	}
	w.logger.Debug("wrote all pages", logfields.Pages(written), logfields.Dir(outputRoot))
	return written, nil
}

func (w *Writer) writePage(page *content.Page, site *render.SiteContext, outputRoot string) error {
	var buf bytes.Buffer
	if err := w.engine.Render(&buf, site, page); err != nil {
		return err
	}

	outPath := filepath.Join(outputRoot, filepath.FromSlash(page.OutputPath))
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, outPath, err)
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, outPath, err)
	}

	w.logger.Debug("wrote page", logfields.File(page.SourcePath), logfields.Path(outPath))
	return nil
}
