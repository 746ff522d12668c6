package mcpserver

import (
	"github.com/standardbeagle/sgmcp/internal/cerrors"
	"github.com/standardbeagle/sgmcp/internal/didyoumean"
	"github.com/standardbeagle/sgmcp/internal/langtable"
)

// resolveLanguage canonicalizes tag and confirms it has a bound grammar, attaching a
// "did you mean" suggestion when the tag is close to a known
// one but not recognized at all.
func resolveLanguage(tag string) (string, error) {
	canon, ok := langtable.Canonicalize(tag)
	if !ok {
		err := cerrors.New(cerrors.UnsupportedLanguage, "language %q is not recognized", tag)
		if suggestion, found := didyoumean.Suggest(tag, langtable.KnownTags(), didyoumean.DefaultThreshold); found {
			err = err.WithSuggestion(suggestion)
		}
		return "", err
	}
	if !langtable.HasGrammar(canon) {
		return "", cerrors.New(cerrors.UnsupportedLanguage, "language %q is recognized but has no bound grammar", canon)
	}
	return canon, nil
}
