package patterns

import "strings"

// DefaultSimilarityThreshold is the minimum token-overlap ratio for two
// descriptions to be considered the same recurring series.
const DefaultSimilarityThreshold = 0.6

// minTokenLen filters out short noise tokens (reference digits, "of", "to").
const minTokenLen = 3

// Similarity computes the token-overlap ratio between two normalized
// descriptions: shared distinct tokens divided by the larger token-set size.
// Tokens of length <= 2 are ignored. Returns 0 when either side has no
// usable tokens. The measure is deliberately non-transitive; the greedy
// clusterer depends on that.
func Similarity(a, b string) float64 {
	tokensA := tokenSet(a)
	tokensB := tokenSet(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	matches := 0
	for tok := range tokensA {
		if tokensB[tok] {
			matches++
		}
	}

	larger := len(tokensA)
	if len(tokensB) > larger {
		larger = len(tokensB)
	}
	return float64(matches) / float64(larger)
}

// AreSimilar reports whether two normalized descriptions belong to the same
// recurring series. Empty strings never match anything; exact equality
// always matches.
func AreSimilar(a, b string, threshold float64) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	return Similarity(a, b) >= threshold
}

func tokenSet(s string) map[string]bool {
	fields := strings.Fields(s)
	set := make(map[string]bool, len(fields))
	for _, tok := range fields {
		if len(tok) >= minTokenLen {
			set[tok] = true
		}
	}
	return set
}
