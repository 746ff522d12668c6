// Package shaper implements the ResponseShaper: turning a full, in-memory
// set of per-file matches into one paginated tool response — attaching a resumable
// cursor, switching to a lightweight summary once a result set is large enough that the
// full match bodies would dominate the response, windowing context lines around each
// match, and enforcing a hard per-response result cap.
package shaper

import (
	"sort"

	"github.com/standardbeagle/sgmcp/internal/cursor"
	"github.com/standardbeagle/sgmcp/pkg/pathutil"

	"github.com/standardbeagle/sgmcp/internal/types"
)

// Defaults for pagination and context-window sizing.
const (
	DefaultMaxResults          = 1000
	LightweightFileThreshold   = 10
	LightweightMatchThreshold  = 50
)

// Options controls one Shape call.
type Options struct {
	RootDir      string
	MaxResults   int    // 0 = DefaultMaxResults
	Cursor       string // opaque token from a prior response, "" to start at the beginning
	ContextLines int    // lines of source context before/after each match, 0 = none
	ForceSummary bool   // caller-requested summary mode regardless of result-set size

	// FileContents supplies each matched file's full source, keyed by the same absolute
	// path used in the input FileMatches, for context-line windowing. Nil or a missing
	// entry simply yields no context for that file's matches.
	FileContents map[string][]byte
}

// Page is one shaped response.
type Page struct {
	Files       []types.FileMatch // nil when Lightweight is true
	Summary     []FileSummary     // populated only when Lightweight is true
	Lightweight bool
	NextCursor  string // "" when no more results remain
	TotalFiles  int    // files with at least one match, across the whole (unpaginated) result set
	TotalMatches int   // matches across the whole (unpaginated) result set
}

// FileSummary is one file's match count plus its first match's line, reported in
// lightweight mode in place of full match bodies — enough for a caller to jump straight
// to the file without the full match bodies a non-lightweight page would carry.
type FileSummary struct {
	Path       string
	Line       int
	MatchCount int
}

// Shape pages, optionally summarizes, and attaches context to fileMatches (sorted by
// Path; Path must be absolute — shaper converts to root-relative at the response
// boundary via pkg/pathutil).
func Shape(fileMatches []types.FileMatch, opts Options) (Page, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	sorted := append([]types.FileMatch(nil), fileMatches...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	totalFiles := len(sorted)
	totalMatches := 0
	for _, fm := range sorted {
		totalMatches += len(fm.Matches)
	}

	startFileIdx, startMatchIdx, err := resumePosition(sorted, opts.Cursor)
	if err != nil {
		return Page{}, err
	}

	lightweight := opts.ForceSummary || totalFiles > LightweightFileThreshold || totalMatches > LightweightMatchThreshold

	var page Page
	page.TotalFiles = totalFiles
	page.TotalMatches = totalMatches
	page.Lightweight = lightweight

	taken := 0
	lastPath := ""
	lastMatchIdx := -1
	truncated := false

outer:
	for fi := startFileIdx; fi < len(sorted); fi++ {
		fm := sorted[fi]
		mStart := 0
		if fi == startFileIdx {
			mStart = startMatchIdx
		}

		var collected []types.MatchResult
		for mi := mStart; mi < len(fm.Matches); mi++ {
			if taken >= maxResults {
				truncated = true
				break outer
			}
			m := fm.Matches[mi]
			if opts.ContextLines > 0 {
				attachContext(&m, fm.Path, mi, opts)
			}
			if !lightweight {
				collected = append(collected, m)
			}
			taken++
			lastPath = fm.Path
			lastMatchIdx = mi
		}

		if lightweight {
			if n := len(fm.Matches) - mStart; n > 0 {
				page.Summary = append(page.Summary, FileSummary{
					Path:       fm.Path,
					Line:       fm.Matches[mStart].Start.Line,
					MatchCount: n,
				})
			}
		} else if len(collected) > 0 {
			page.Files = append(page.Files, types.FileMatch{Path: fm.Path, Matches: collected})
		}
	}

	if truncated {
		token, err := cursor.Encode(cursor.Cursor{
			LastCompletedPath:        lastPath,
			LastWithinFileMatchIndex: lastMatchIdx,
			MaxResultsSeen:           taken,
		})
		if err != nil {
			return Page{}, err
		}
		page.NextCursor = token
	}

	if opts.RootDir != "" {
		page.Files = pathutil.ToRelativeFileMatches(page.Files, opts.RootDir)
		for i := range page.Summary {
			page.Summary[i].Path = pathutil.ToRelative(page.Summary[i].Path, opts.RootDir)
		}
	}

	return page, nil
}

// resumePosition decodes an incoming cursor token (if any) into the (file index,
// match index) to resume at: the match immediately after the one the cursor recorded.
func resumePosition(sorted []types.FileMatch, token string) (int, int, error) {
	if token == "" {
		return 0, 0, nil
	}
	c, err := cursor.Decode(token)
	if err != nil {
		return 0, 0, err
	}
	for fi, fm := range sorted {
		if fm.Path != c.LastCompletedPath {
			continue
		}
		next := c.LastWithinFileMatchIndex + 1
		if next < len(fm.Matches) {
			return fi, next, nil
		}
		return fi + 1, 0, nil
	}
	// The recorded file no longer appears (e.g. it was deleted between calls): resume
	// from the first file alphabetically after it.
	for fi, fm := range sorted {
		if fm.Path > c.LastCompletedPath {
			return fi, 0, nil
		}
	}
	return len(sorted), 0, nil
}

// attachContext windows ContextLines of source around m using the tracked 1-indexed
// Start.Line, drawing from opts.FileContents[path] when available.
func attachContext(m *types.MatchResult, path string, _ int, opts Options) {
	content, ok := opts.FileContents[path]
	if !ok {
		return
	}
	lines := splitLines(content)
	before := window(lines, m.Start.Line-1-opts.ContextLines, m.Start.Line-1)
	after := window(lines, m.End.Line, m.End.Line+opts.ContextLines)
	m.ContextBefore = before
	m.ContextAfter = after
}

func splitLines(content []byte) []string {
	var lines []string
	start := 0
	for i, b := range content {
		if b == '\n' {
			lines = append(lines, string(content[start:i]))
			start = i + 1
		}
	}
	lines = append(lines, string(content[start:]))
	return lines
}

// window returns lines[max(lo,0):min(hi,len)], both bounds 0-indexed, hi exclusive.
func window(lines []string, lo, hi int) []string {
	if lo < 0 {
		lo = 0
	}
	if hi > len(lines) {
		hi = len(lines)
	}
	if lo >= hi {
		return nil
	}
	out := make([]string, hi-lo)
	copy(out, lines[lo:hi])
	return out
}
