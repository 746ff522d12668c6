package shaper

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/sgmcp/internal/types"
)

func sampleMatches(n int) []types.FileMatch {
	out := make([]types.FileMatch, n)
	for i := 0; i < n; i++ {
		out[i] = types.FileMatch{
			Path: fmt.Sprintf("/root/file%02d.go", i),
			Matches: []types.MatchResult{
				{Start: types.Position{Line: 1}, End: types.Position{Line: 1}, Text: "match"},
			},
		}
	}
	return out
}

func TestShapeFullModeBelowThresholds(t *testing.T) {
	page, err := Shape(sampleMatches(3), Options{RootDir: "/root"})
	require.NoError(t, err)
	assert.False(t, page.Lightweight)
	assert.Len(t, page.Files, 3)
	assert.Empty(t, page.NextCursor)
	assert.Equal(t, "file00.go", page.Files[0].Path)
}

func TestShapeLightweightOnManyFiles(t *testing.T) {
	page, err := Shape(sampleMatches(LightweightFileThreshold+1), Options{RootDir: "/root"})
	require.NoError(t, err)
	assert.True(t, page.Lightweight)
	assert.Nil(t, page.Files)
	assert.Len(t, page.Summary, LightweightFileThreshold+1)
}

func TestShapePaginatesWithCursor(t *testing.T) {
	matches := sampleMatches(5)
	first, err := Shape(matches, Options{RootDir: "/root", MaxResults: 2})
	require.NoError(t, err)
	require.NotEmpty(t, first.NextCursor)
	require.Len(t, first.Files, 2)

	second, err := Shape(matches, Options{RootDir: "/root", MaxResults: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Files, 2)
	assert.NotEqual(t, first.Files[0].Path, second.Files[0].Path)
}

func TestShapeExhaustsAllPagesWithoutDuplicationOrGaps(t *testing.T) {
	matches := sampleMatches(7)
	seen := map[string]bool{}
	tok := ""
	for {
		page, err := Shape(matches, Options{RootDir: "/root", MaxResults: 2, Cursor: tok})
		require.NoError(t, err)
		for _, f := range page.Files {
			require.False(t, seen[f.Path], "path %s seen twice", f.Path)
			seen[f.Path] = true
		}
		if page.NextCursor == "" {
			break
		}
		tok = page.NextCursor
	}
	assert.Len(t, seen, 7)
}

func TestShapeForceSummary(t *testing.T) {
	page, err := Shape(sampleMatches(1), Options{RootDir: "/root", ForceSummary: true})
	require.NoError(t, err)
	assert.True(t, page.Lightweight)
	require.Len(t, page.Summary, 1)
	assert.Equal(t, 1, page.Summary[0].MatchCount)
}

func TestShapeAttachesContextLines(t *testing.T) {
	content := []byte("a\nb\nc\nd\ne\n")
	matches := []types.FileMatch{
		{
			Path: "/root/f.go",
			Matches: []types.MatchResult{
				{Start: types.Position{Line: 3}, End: types.Position{Line: 3}, Text: "c"},
			},
		},
	}
	page, err := Shape(matches, Options{
		RootDir:      "/root",
		ContextLines: 1,
		FileContents: map[string][]byte{"/root/f.go": content},
	})
	require.NoError(t, err)
	require.Len(t, page.Files, 1)
	require.Len(t, page.Files[0].Matches, 1)
	m := page.Files[0].Matches[0]
	assert.Equal(t, []string{"b"}, m.ContextBefore)
	assert.Equal(t, []string{"d"}, m.ContextAfter)
}
