package patterns

import (
	"fmt"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// maxDuplicateRank is the largest Levenshtein-style rank still treated as a
// near-duplicate description pair.
const maxDuplicateRank = 5

// DuplicateReviewItem flags two patterns whose representative descriptions
// are close enough that they may describe the same payee. The greedy
// clusterer's non-transitive similarity can split one series across two
// clusters; these items surface that for human review without merging
// anything.
type DuplicateReviewItem struct {
	PatternID      string
	OtherPatternID string
	Rank           int
	Message        string
}

// FindDuplicatePatterns ranks every pattern pair by fuzzy description
// closeness and returns the pairs under the duplicate threshold, in input
// order. Same-category pairs only; an MCA debit and a payroll run sharing
// a bank's name are not duplicates.
func FindDuplicatePatterns(detected []Pattern) []DuplicateReviewItem {
	var items []DuplicateReviewItem

	for i := 0; i < len(detected); i++ {
		for j := i + 1; j < len(detected); j++ {
			a, b := detected[i], detected[j]
			if a.Category != b.Category {
				continue
			}

			rank := fuzzy.RankMatchNormalizedFold(a.DescriptionPattern, b.DescriptionPattern)
			if rank < 0 {
				rank = fuzzy.RankMatchNormalizedFold(b.DescriptionPattern, a.DescriptionPattern)
			}
			if rank < 0 || rank > maxDuplicateRank {
				continue
			}

			items = append(items, DuplicateReviewItem{
				PatternID:      a.ID.String(),
				OtherPatternID: b.ID.String(),
				Rank:           rank,
				Message:        fmt.Sprintf("%q may be the same payee as %q", a.DescriptionPattern, b.DescriptionPattern),
			})
		}
	}

	return items
}
