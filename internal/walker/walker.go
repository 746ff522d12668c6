// Package walker implements the FileWalker: resolving a glob or direct path
// specification against a set of root directories into a deterministic, size-filtered
// sequence of candidate files.
package walker

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/sgmcp/internal/cerrors"
)

// DefaultMaxFileSize is the walker's default per-file size ceiling.
const DefaultMaxFileSize int64 = 50 * 1024 * 1024

// Candidate is one file the walker has confirmed is within root and under the size
// limit.
type Candidate struct {
	Path string
	Size int64
}

// Skipped records a file the walker found but excluded, and why — surfaced to callers
// as a non-fatal diagnostic rather than silently dropped.
type Skipped struct {
	Path   string
	Reason string
}

// Walker resolves path specs against a fixed set of root directories.
type Walker struct {
	roots       []string // absolute, symlink-resolved
	maxFileSize int64
}

// New builds a Walker confined to roots, each resolved to its real (symlink-free)
// absolute path so later containment checks can use a simple prefix test.
func New(roots []string, maxFileSize int64) (*Walker, error) {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	resolved := make([]string, 0, len(roots))
	for _, r := range roots {
		real, err := filepath.EvalSymlinks(r)
		if err != nil {
			return nil, cerrors.Wrap(cerrors.FileIOError, err, "resolving root %q", r)
		}
		abs, err := filepath.Abs(real)
		if err != nil {
			return nil, cerrors.Wrap(cerrors.FileIOError, err, "resolving root %q", r)
		}
		resolved = append(resolved, abs)
	}
	return &Walker{roots: resolved, maxFileSize: maxFileSize}, nil
}

// isGlob reports whether spec contains glob metacharacters.
func isGlob(spec string) bool {
	return strings.ContainsAny(spec, "*?[")
}

// Enumerate resolves pathSpec into candidates and skips. Candidates are sorted byte-wise
// by full path, so the order is deterministic (a prerequisite for cursor stability). This
// is not strictly per-directory depth-first order: a file "a.go" sorts before the
// contents of a sibling directory "a".
func (w *Walker) Enumerate(pathSpec string) ([]Candidate, []Skipped, error) {
	if isGlob(pathSpec) {
		return w.enumerateGlob(pathSpec)
	}
	return w.enumerateDirect(pathSpec)
}

func (w *Walker) enumerateDirect(path string) ([]Candidate, []Skipped, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, cerrors.Wrap(cerrors.FileIOError, err, "resolving %q", path)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, nil, cerrors.Wrap(cerrors.FileIOError, err, "resolving %q", path)
	}
	if !w.withinAnyRoot(real) {
		return nil, nil, cerrors.New(cerrors.PathEscapesRoot, "%q is outside all configured root directories", path)
	}

	info, err := os.Stat(real)
	if err != nil {
		return nil, nil, cerrors.Wrap(cerrors.FileIOError, err, "statting %q", path)
	}
	if info.IsDir() {
		return w.walkDir(real)
	}
	if info.Size() > w.maxFileSize {
		return nil, []Skipped{{Path: real, Reason: "exceeds max file size"}}, nil
	}
	return []Candidate{{Path: real, Size: info.Size()}}, nil, nil
}

func (w *Walker) enumerateGlob(pattern string) ([]Candidate, []Skipped, error) {
	var candidates []Candidate
	var skipped []Skipped
	seen := make(map[string]bool)

	for _, root := range w.roots {
		matches, err := doublestar.Glob(os.DirFS(root), pattern)
		if err != nil {
			return nil, nil, cerrors.Wrap(cerrors.InvalidParameters, err, "invalid glob %q", pattern)
		}
		sort.Strings(matches)
		for _, rel := range matches {
			full := filepath.Join(root, rel)
			if seen[full] {
				continue
			}
			seen[full] = true

			info, err := os.Lstat(full)
			if err != nil || info.IsDir() || info.Mode()&os.ModeSymlink != 0 {
				continue // directories never match as leaf files; symlinks outside root are never followed
			}
			if info.Size() > w.maxFileSize {
				skipped = append(skipped, Skipped{Path: full, Reason: "exceeds max file size"})
				continue
			}
			candidates = append(candidates, Candidate{Path: full, Size: info.Size()})
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Path < candidates[j].Path })
	return candidates, skipped, nil
}

// walkDir depth-first walks a directory that is itself the direct path target,
// visiting entries in alphabetical order per directory.
func (w *Walker) walkDir(root string) ([]Candidate, []Skipped, error) {
	var candidates []Candidate
	var skipped []Skipped

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if d.Type()&os.ModeSymlink != 0 {
			real, err := filepath.EvalSymlinks(path)
			if err != nil || !w.withinAnyRoot(real) {
				return nil
			}
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Size() > w.maxFileSize {
			skipped = append(skipped, Skipped{Path: path, Reason: "exceeds max file size"})
			return nil
		}
		candidates = append(candidates, Candidate{Path: path, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, nil, cerrors.Wrap(cerrors.FileIOError, err, "walking %q", root)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Path < candidates[j].Path })
	return candidates, skipped, nil
}

func (w *Walker) withinAnyRoot(path string) bool {
	for _, root := range w.roots {
		if path == root || strings.HasPrefix(path, root+string(os.PathSeparator)) {
			return true
		}
	}
	return false
}
