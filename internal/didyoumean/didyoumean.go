// Package didyoumean attaches a "did you mean" suggestion to an UnsupportedLanguage or
// NotFound error — the closest candidate by Jaro-Winkler similarity, stemmed so
// "replace"/"replacing" or "rule"/"rules" compare equal on their root.
package didyoumean

import (
	"strings"

	edlib "github.com/hbollon/go-edlib"
	"github.com/surgebase/porter2"
)

// DefaultThreshold is the minimum Jaro-Winkler similarity for a suggestion to be offered
// at all — below this, guessing is more likely to mislead than help.
const DefaultThreshold = 0.6

// Suggest returns the candidate closest to target by stemmed Jaro-Winkler similarity,
// and whether any candidate cleared threshold. Ties keep the first candidate in
// iteration order (candidates is assumed small and pre-sorted by the caller when order
// matters, e.g. internal/langtable.KnownTags()).
func Suggest(target string, candidates []string, threshold float64) (string, bool) {
	if target == "" || len(candidates) == 0 {
		return "", false
	}
	stemmedTarget := stem(target)

	best := ""
	bestScore := 0.0
	for _, candidate := range candidates {
		score, err := edlib.StringsSimilarity(stemmedTarget, stem(candidate), edlib.JaroWinkler)
		if err != nil {
			continue
		}
		if float64(score) > bestScore {
			bestScore = float64(score)
			best = candidate
		}
	}
	if bestScore < threshold {
		return "", false
	}
	return best, true
}

// stem lowercases and Porter2-stems a single word, leaving multi-word input (languages
// and rule ids are always single tokens) untouched beyond that.
func stem(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return s
	}
	return porter2.Stem(s)
}
