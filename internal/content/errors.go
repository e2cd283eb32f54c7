// Package content models the source tree: Markdown files with optional
// front-matter become Pages, directories with an index.md become subtrees.
package content

import "errors"

// Sentinel errors for tree reading. All three are fatal to the build cycle
// that encounters them; discovery-level problems (non-Markdown files,
// directories without index.md) are logged and skipped instead.
var (
	// ErrFileAccess indicates a source file or directory could not be read.
	ErrFileAccess = errors.New("source file access failed")

	// ErrMetadataParse indicates malformed front-matter in a source file.
	ErrMetadataParse = errors.New("front-matter parse failed")

	// ErrConvert indicates the Markdown converter rejected a source body.
	ErrConvert = errors.New("markdown conversion failed")
)
