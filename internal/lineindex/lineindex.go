// Package lineindex converts byte offsets into 1-indexed line / 0-indexed column
// positions. Built once per source document and reused by every match the
// scanner produces against that document.
package lineindex

import "sort"

// Index is a precomputed table of newline byte offsets for one document.
type Index struct {
	newlines []uint // byte offset of each '\n' in the source
	size     uint
}

// Build scans src once and records every newline offset.
func Build(src []byte) *Index {
	idx := &Index{size: uint(len(src))}
	for i, b := range src {
		if b == '\n' {
			idx.newlines = append(idx.newlines, uint(i))
		}
	}
	return idx
}

// Position resolves a byte offset to (line, column): line is 1-indexed, column is
// 0-indexed UTF-8 byte offset within the line, matching Tree-sitter's own convention.
func (idx *Index) Position(offset uint) (line, column int) {
	// newlines[i] is the offset of the i-th '\n'; offset falls on line i+1 (1-indexed)
	// when it is past newlines[i-1] and at-or-before newlines[i].
	n := sort.Search(len(idx.newlines), func(i int) bool {
		return idx.newlines[i] >= offset
	})
	line = n + 1
	lineStart := uint(0)
	if n > 0 {
		lineStart = idx.newlines[n-1] + 1
	}
	column = int(offset - lineStart)
	return line, column
}

// LineCount returns the number of lines represented, including a trailing partial line.
func (idx *Index) LineCount() int {
	return len(idx.newlines) + 1
}
