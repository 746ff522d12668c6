// Package replacer implements the Replacer: turning a pattern's matches plus
// a literal replacement template into line-oriented Changes, and optionally writing them
// to disk atomically. Matches are applied right-to-left so earlier byte offsets never
// shift under a later edit; overlapping matches are resolved by keeping the earliest
// start and discarding anything that begins before it ends.
package replacer

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/sgmcp/internal/cerrors"
	"github.com/standardbeagle/sgmcp/internal/types"
)

var captureRe = regexp.MustCompile(`\$\$\$([A-Z_][A-Z0-9_]*)|\$([A-Z_][A-Z0-9_]*)`)

// Substitute renders template with literal verbatim substitution of $NAME/$$$NAME
// placeholders from captures — no whitespace, comma, or punctuation is inserted (spec
// multi-line capture re-indentation is explicitly out of scope).
func Substitute(template string, captures map[string]string) string {
	return captureRe.ReplaceAllStringFunc(template, func(tok string) string {
		m := captureRe.FindStringSubmatch(tok)
		name := m[1]
		if name == "" {
			name = m[2]
		}
		if v, ok := captures[name]; ok {
			return v
		}
		return tok
	})
}

// nonOverlapping filters matches (assumed sorted by StartByte ascending) down to the
// non-overlapping invariant: keep the earliest-starting match, skip any that
// begins before the previous kept match's end.
func nonOverlapping(matches []types.MatchResult) []types.MatchResult {
	var kept []types.MatchResult
	var lastEnd uint
	for _, m := range matches {
		if len(kept) > 0 && m.StartByte < lastEnd {
			continue
		}
		kept = append(kept, m)
		lastEnd = m.EndByte
	}
	return kept
}

// Apply computes the replaced content and per-line Changes for one file's matches
// against a replacement template. Matches need not be pre-sorted; Apply sorts and
// de-overlaps them itself.
func Apply(content string, matches []types.MatchResult, template string) (newContent string, changes []types.Change) {
	matches = append([]types.MatchResult(nil), matches...)
	sortByStart(matches)
	matches = nonOverlapping(matches)

	contentBytes := []byte(content)
	preLines := strings.Split(content, "\n")
	replacements := make([]string, len(matches))
	for i, m := range matches {
		replacements[i] = Substitute(template, m.Captures)
	}

	result := append([]byte(nil), contentBytes...)
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		result = append(result[:m.StartByte], append([]byte(replacements[i]), result[m.EndByte:]...)...)
	}
	newContent = string(result)
	postLines := strings.Split(newContent, "\n")

	// changedLines maps each touched original line number to its post-substitution line
	// index, via a running delta: once any earlier match's replacement spans a different
	// number of lines than the text it replaced, every later match's line shifts in
	// postLines, so indexing postLines with the unshifted original line number desyncs.
	changedLines := map[int]int{}
	delta := 0
	for i, m := range matches {
		origSpan := string(contentBytes[m.StartByte:m.EndByte])
		for line := m.Start.Line; line <= m.End.Line; line++ {
			if _, seen := changedLines[line]; !seen {
				changedLines[line] = line - 1 + delta
			}
		}
		delta += strings.Count(replacements[i], "\n") - strings.Count(origSpan, "\n")
	}
	for line, postIdx := range changedLines {
		pre := lineAt(preLines, line-1)
		post := lineAt(postLines, postIdx)
		if pre == post {
			continue
		}
		changes = append(changes, types.Change{Line: line, Pre: pre, Post: post})
	}
	sortChanges(changes)
	return newContent, changes
}

func lineAt(lines []string, idx int) string {
	if idx < 0 || idx >= len(lines) {
		return ""
	}
	return lines[idx]
}

func sortByStart(matches []types.MatchResult) {
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j].StartByte < matches[j-1].StartByte; j-- {
			matches[j], matches[j-1] = matches[j-1], matches[j]
		}
	}
}

func sortChanges(changes []types.Change) {
	for i := 1; i < len(changes); i++ {
		for j := i; j > 0 && changes[j].Line < changes[j-1].Line; j-- {
			changes[j], changes[j-1] = changes[j-1], changes[j]
		}
	}
}

// ContentHash computes the hash recorded as FileResult.FileHashBefore — a content hash,
// not a VCS hash, so it reflects exactly the bytes the operation read.
func ContentHash(content []byte) uint64 {
	return xxhash.Sum64(content)
}

// WriteResult is the outcome of applying and optionally persisting one file's changes.
type WriteResult struct {
	Path           string
	Changes        []types.Change
	FileHashBefore uint64
	Wrote          bool
}

// File reads path, applies template over matches, and — unless dryRun — writes the
// result back atomically via write-to-temp-then-rename. dry_run defaults to
// true at the tool-dispatch layer; this function takes the resolved flag directly.
func File(path string, matches []types.MatchResult, template string, dryRun bool) (WriteResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return WriteResult{}, cerrors.Wrap(cerrors.FileIOError, err, "reading %s", path).WithPath(path)
	}
	before := ContentHash(content)

	newContent, changes := Apply(string(content), matches, template)
	result := WriteResult{Path: path, Changes: changes, FileHashBefore: before}
	if dryRun || len(changes) == 0 {
		return result, nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".sgmcp-tmp-*")
	if err != nil {
		return result, cerrors.Wrap(cerrors.FileIOError, err, "creating temp file for %s", path).WithPath(path)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(newContent); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return result, cerrors.Wrap(cerrors.FileIOError, err, "writing %s", path).WithPath(path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return result, cerrors.Wrap(cerrors.FileIOError, err, "closing temp file for %s", path).WithPath(path)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return result, cerrors.Wrap(cerrors.FileIOError, err, "renaming temp file onto %s", path).WithPath(path)
	}
	result.Wrote = true
	return result, nil
}
