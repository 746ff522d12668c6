package langtable

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalizeAliases(t *testing.T) {
	tag, ok := Canonicalize("js")
	assert.True(t, ok)
	assert.Equal(t, "javascript", tag)

	tag, ok = Canonicalize("rs")
	assert.True(t, ok)
	assert.Equal(t, "rust", tag)

	_, ok = Canonicalize("not-a-language")
	assert.False(t, ok)
}

func TestForExtension(t *testing.T) {
	tag, ok := ForExtension(".tsx")
	assert.True(t, ok)
	assert.Equal(t, "tsx", tag)

	tag, ok = ForExtension(".go")
	assert.True(t, ok)
	assert.Equal(t, "go", tag)
}

func TestHasGrammarDistinguishesRecognizedFromBound(t *testing.T) {
	assert.True(t, HasGrammar("go"))
	assert.True(t, HasGrammar("python"))
	assert.False(t, HasGrammar("ruby"), "ruby is recognized but has no bound grammar")
}

func TestNewParserUnknownTag(t *testing.T) {
	_, ok := NewParser("cobol")
	assert.False(t, ok)

	_, ok = NewParser("ruby")
	assert.False(t, ok, "recognized-but-ungrammared tags must not construct a parser")
}

func TestKnownTagsIncludesUngrammaredEntries(t *testing.T) {
	tags := KnownTags()
	assert.Contains(t, tags, "go")
	assert.Contains(t, tags, "ruby")
}
