package pathutil

import (
	"testing"

	"github.com/standardbeagle/sgmcp/internal/types"
)

func TestToRelative(t *testing.T) {
	tests := []struct {
		name     string
		absPath  string
		rootDir  string
		expected string
	}{
		{"simple relative path", "/home/user/project/src/main.go", "/home/user/project", "src/main.go"},
		{"nested relative path", "/home/user/project/internal/core/search.go", "/home/user/project", "internal/core/search.go"},
		{"root level file", "/home/user/project/README.md", "/home/user/project", "README.md"},
		{"same directory", "/home/user/project", "/home/user/project", "."},
		{"already relative path", "src/main.go", "/home/user/project", "src/main.go"},
		{"path outside root - fallback to absolute", "/other/location/file.go", "/home/user/project", "/other/location/file.go"},
		{"empty root directory", "/home/user/project/file.go", "", "/home/user/project/file.go"},
		{"empty absolute path", "", "/home/user/project", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToRelative(tt.absPath, tt.rootDir); got != tt.expected {
				t.Errorf("ToRelative() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestToRelativeFileMatches(t *testing.T) {
	rootDir := "/home/user/project"
	input := []types.FileMatch{
		{Path: "/home/user/project/src/main.go"},
		{Path: "/home/user/project/README.md"},
	}
	results := ToRelativeFileMatches(input, rootDir)
	want := []string{"src/main.go", "README.md"}
	for i, r := range results {
		if r.Path != want[i] {
			t.Errorf("result %d: Path = %v, want %v", i, r.Path, want[i])
		}
	}
	if input[0].Path != "/home/user/project/src/main.go" {
		t.Errorf("input slice mutated, expected a copy")
	}
}

func TestToRelativeFileResultsEmpty(t *testing.T) {
	if got := ToRelativeFileResults(nil, "/home/user/project"); len(got) != 0 {
		t.Errorf("expected empty result, got %d elements", len(got))
	}
}
