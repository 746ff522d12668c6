package lineindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPositionFirstLine(t *testing.T) {
	idx := Build([]byte("abc\ndef\nghi"))
	line, col := idx.Position(1)
	assert.Equal(t, 1, line)
	assert.Equal(t, 1, col)
}

func TestPositionAfterNewline(t *testing.T) {
	idx := Build([]byte("abc\ndef\nghi"))
	line, col := idx.Position(4) // 'd' of "def"
	assert.Equal(t, 2, line)
	assert.Equal(t, 0, col)
}

func TestPositionLastLineNoTrailingNewline(t *testing.T) {
	idx := Build([]byte("abc\ndef\nghi"))
	line, col := idx.Position(10) // 'i' of "ghi"
	assert.Equal(t, 3, line)
	assert.Equal(t, 2, col)
}

func TestLineCount(t *testing.T) {
	assert.Equal(t, 3, Build([]byte("a\nb\nc")).LineCount())
	assert.Equal(t, 1, Build([]byte("no newlines")).LineCount())
}
