package site

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/sitegen/internal/logfields"
)

// CopyAssets merges the configured asset sources into outputRoot. Directory
// sources are copied recursively into outputRoot/<basename> with update-only
// semantics: a destination file is rewritten only when the source is newer.
// Single-file sources are copied unconditionally into outputRoot itself.
// Asset bytes are never transformed.
//
// Returns the number of files copied and the sources that did not exist;
// missing sources are skipped so a bare tree can still build.
func CopyAssets(sources []string, outputRoot string, logger *slog.Logger) (int, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	copied := 0
	var missing []string
	for _, src := range sources {
		info, err := os.Stat(src)
		if err != nil {
			if os.IsNotExist(err) {
				missing = append(missing, src)
				continue
			}
			return copied, missing, fmt.Errorf("%w: %s: %w", ErrAssetCopy, src, err)
		}

		if info.IsDir() {
			dst := filepath.Join(outputRoot, filepath.Base(src))
			n, err := copyDirMerge(src, dst)
			copied += n
			if err != nil {
				return copied, missing, err
			}
			logger.Debug("merged asset directory", logfields.Dir(src), logfields.Assets(n))
			continue
		}

		if err := copyFile(src, filepath.Join(outputRoot, filepath.Base(src)), false); err != nil {
			return copied, missing, err
		}
		copied++
		logger.Debug("copied asset file", logfields.File(src))
	}
	return copied, missing, nil
}

// copyDirMerge recursively merges src into dst, copying only files whose
// source is newer than the destination. Copied files keep the source's
// permissions and modification time so subsequent merges stay no-ops.
func copyDirMerge(src, dst string) (int, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrAssetCopy, src, err)
	}
	if err := os.MkdirAll(dst, srcInfo.Mode()); err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrAssetCopy, dst, err)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrAssetCopy, src, err)
	}

	copied := 0
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			n, err := copyDirMerge(srcPath, dstPath)
			copied += n
			if err != nil {
				return copied, err
			}
			continue
		}

		newer, err := sourceIsNewer(srcPath, dstPath)
		if err != nil {
			return copied, err
		}
		if !newer {
			continue
		}
		if err := copyFile(srcPath, dstPath, true); err != nil {
			return copied, err
		}
		copied++
	}
	return copied, nil
}

func sourceIsNewer(src, dst string) (bool, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrAssetCopy, src, err)
	}
	dstInfo, err := os.Stat(dst)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, fmt.Errorf("%w: %s: %w", ErrAssetCopy, dst, err)
	}
	return srcInfo.ModTime().After(dstInfo.ModTime()), nil
}

// copyFile copies a single file preserving permissions; preserveTimes also
// carries over the source modification time (used by the merge copy so the
// update check stays stable across runs).
func copyFile(src, dst string, preserveTimes bool) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrAssetCopy, src, err)
	}
	defer func() {
		_ = srcFile.Close()
	}()

	dstFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrAssetCopy, dst, err)
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		_ = dstFile.Close()
		return fmt.Errorf("%w: %s: %w", ErrAssetCopy, dst, err)
	}
	if err := dstFile.Close(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrAssetCopy, dst, err)
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrAssetCopy, src, err)
	}
	if err := os.Chmod(dst, srcInfo.Mode()); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrAssetCopy, dst, err)
	}
	if preserveTimes {
		if err := os.Chtimes(dst, srcInfo.ModTime(), srcInfo.ModTime()); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrAssetCopy, dst, err)
		}
	}
	return nil
}
