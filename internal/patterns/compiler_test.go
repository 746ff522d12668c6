package patterns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/sgmcp/internal/cerrors"
)

func TestCompileCachesByLanguageAndSource(t *testing.T) {
	c, err := New(4)
	require.NoError(t, err)

	p1, err := c.Compile("go", "fmt.Println($X)")
	require.NoError(t, err)
	p2, err := c.Compile("go", "fmt.Println($X)")
	require.NoError(t, err)
	assert.Same(t, p1, p2)
	assert.Equal(t, 1, c.Len())
}

func TestCompileRejectsEmptySource(t *testing.T) {
	c, err := New(4)
	require.NoError(t, err)
	_, err = c.Compile("go", "")
	require.Error(t, err)
	assert.Equal(t, cerrors.InvalidPattern, cerrors.KindOf(err))
}

func TestCompileRejectsUnsupportedLanguage(t *testing.T) {
	c, err := New(4)
	require.NoError(t, err)
	_, err = c.Compile("ruby", "def foo; end")
	require.Error(t, err)
	assert.Equal(t, cerrors.UnsupportedLanguage, cerrors.KindOf(err))
}

func TestCompileEvictsLeastRecentlyUsed(t *testing.T) {
	c, err := New(1)
	require.NoError(t, err)

	_, err = c.Compile("go", "fmt.Println($X)")
	require.NoError(t, err)
	_, err = c.Compile("go", "fmt.Printf($X)")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len(), "capacity-1 cache must evict rather than grow")
}
