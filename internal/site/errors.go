package site

import "errors"

var (
	// ErrWrite indicates a filesystem failure while materializing output.
	// Fatal to the build cycle that hit it.
	ErrWrite = errors.New("output write failed")

	// ErrAssetCopy indicates a filesystem failure while copying an asset
	// source. Fatal to the build cycle.
	ErrAssetCopy = errors.New("asset copy failed")

	// ErrAssetMissing marks configured asset sources that do not exist.
	// Reported as a stage warning; the cycle continues without them.
	ErrAssetMissing = errors.New("asset source not found")
)
