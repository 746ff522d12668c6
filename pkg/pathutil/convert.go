// Package pathutil converts between absolute and relative paths.
//
// internal/walker, internal/scanner, and internal/replacer all operate on absolute paths
// internally, to avoid ambiguity once a root directory and a glob pattern are both in
// play. Tool responses convert the paths of matched and changed files back to
// root-relative paths at the boundary, so output stays stable across machines and reads
// cleanly in an editor or terminal; the skipped and file_errors lists keep absolute paths.
package pathutil

import (
	"path/filepath"
	"strings"

	"github.com/standardbeagle/sgmcp/internal/types"
)

// ToRelative converts an absolute path to relative based on a root directory.
// Falls back to the original path if conversion fails or path is already relative.
//
// Examples:
//   - ToRelative("/home/user/project/src/main.go", "/home/user/project") → "src/main.go"
//   - ToRelative("/other/location/file.go", "/home/user/project") → "/other/location/file.go" (outside root)
//   - ToRelative("src/main.go", "/home/user/project") → "src/main.go" (already relative)
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" {
		return absPath
	}
	if !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	relPath, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		return absPath
	}
	if strings.HasPrefix(relPath, "..") {
		return absPath
	}
	return relPath
}

// ToRelativeFileMatches converts every FileMatch's Path in place (on a copy) to be
// relative to rootDir, for the boundary between internal absolute-path bookkeeping and
// a tool response.
func ToRelativeFileMatches(results []types.FileMatch, rootDir string) []types.FileMatch {
	if len(results) == 0 {
		return results
	}
	converted := make([]types.FileMatch, len(results))
	copy(converted, results)
	for i := range converted {
		converted[i].Path = ToRelative(converted[i].Path, rootDir)
	}
	return converted
}

// ToRelativeFileResults converts every FileResult's Path to be relative to rootDir.
func ToRelativeFileResults(results []types.FileResult, rootDir string) []types.FileResult {
	if len(results) == 0 {
		return results
	}
	converted := make([]types.FileResult, len(results))
	copy(converted, results)
	for i := range converted {
		converted[i].Path = ToRelative(converted[i].Path, rootDir)
	}
	return converted
}
