package replacer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/sgmcp/internal/types"
)

func matchAt(start, end uint, line int, captures map[string]string) types.MatchResult {
	return types.MatchResult{
		Start:     types.Position{Line: line, Column: 0},
		End:       types.Position{Line: line, Column: 0},
		StartByte: start,
		EndByte:   end,
		Captures:  captures,
	}
}

func TestSubstituteVerbatim(t *testing.T) {
	out := Substitute("let $V = $E", map[string]string{"V": "x", "E": "1"})
	assert.Equal(t, "let x = 1", out)
}

func TestSubstituteVariadic(t *testing.T) {
	out := Substitute("f($$$ARGS)", map[string]string{"ARGS": "a, b, c"})
	assert.Equal(t, "f(a, b, c)", out)
}

func TestApplyTwoLineMatches(t *testing.T) {
	content := "var x = 1;\nvar y = 2;\n"
	matches := []types.MatchResult{
		matchAt(0, 9, 1, map[string]string{"V": "x", "E": "1"}),
		matchAt(11, 20, 2, map[string]string{"V": "y", "E": "2"}),
	}
	newContent, changes := Apply(content, matches, "let $V = $E")
	assert.Equal(t, "let x = 1;\nlet y = 2;\n", newContent)
	require.Len(t, changes, 2)
	assert.Equal(t, 1, changes[0].Line)
	assert.Equal(t, "var x = 1;", changes[0].Pre)
	assert.Equal(t, "let x = 1;", changes[0].Post)
}

func TestApplyTracksLineShiftFromEarlierMultiLineReplacement(t *testing.T) {
	content := "foo(1)\nbar(2)\n"
	matches := []types.MatchResult{
		matchAt(0, 6, 1, map[string]string{"V": "1"}),
		matchAt(7, 13, 2, map[string]string{"V": "2"}),
	}
	newContent, changes := Apply(content, matches, "wrap($V)\nextra()")
	assert.Equal(t, "wrap(1)\nextra()\nwrap(2)\nextra()\n", newContent)

	require.Len(t, changes, 2)
	byLine := map[int]types.Change{}
	for _, c := range changes {
		byLine[c.Line] = c
	}
	require.Contains(t, byLine, 1)
	assert.Equal(t, "foo(1)", byLine[1].Pre)
	assert.Equal(t, "wrap(1)", byLine[1].Post)

	require.Contains(t, byLine, 2)
	assert.Equal(t, "bar(2)", byLine[2].Pre, "second match's original line must still read from its own source line")
	assert.Equal(t, "wrap(2)", byLine[2].Post, "first match's extra line must not bleed into the second match's reported post text")
}

func TestApplyDropsOverlappingMatch(t *testing.T) {
	content := "abcdef"
	matches := []types.MatchResult{
		matchAt(0, 4, 1, map[string]string{"X": "ZZ"}),
		matchAt(2, 6, 1, map[string]string{"X": "YY"}), // overlaps [0,4)
	}
	_, changes := Apply(content, matches, "$X")
	require.Len(t, changes, 1, "overlapping second match must be dropped, not applied")
}

func TestFileDryRunLeavesFileUntouched(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("var x = 1;\n"), 0o644))

	matches := []types.MatchResult{matchAt(0, 10, 1, map[string]string{"V": "x", "E": "1"})}
	result, err := File(path, matches, "let $V = $E", true)
	require.NoError(t, err)
	assert.False(t, result.Wrote)
	require.Len(t, result.Changes, 1)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "var x = 1;\n", string(after))
}

func TestFileWritesWhenNotDryRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("var x = 1;\n"), 0o644))

	matches := []types.MatchResult{matchAt(0, 9, 1, map[string]string{"V": "x", "E": "1"})}
	result, err := File(path, matches, "let $V = $E", false)
	require.NoError(t, err)
	assert.True(t, result.Wrote)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "let x = 1;\n", string(after))
}
