package patterns

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// patternNamespace seeds deterministic pattern IDs. Reruns over an unchanged
// transaction set must reproduce the exact same pattern set, so IDs are
// derived from the scope and the first member rather than drawn at random.
var patternNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("ontrak/recurring-pattern"))

func patternID(opportunityID, firstMemberID uuid.UUID) uuid.UUID {
	seed := make([]byte, 0, 32)
	seed = append(seed, opportunityID[:]...)
	seed = append(seed, firstMemberID[:]...)
	return uuid.NewSHA1(patternNamespace, seed)
}

// Assemble turns analyzed clusters into the run output: persisted patterns,
// per-transaction annotations, and the scope rollup. Clusters below two
// members are re-validated out here even though the clusterer and analyzer
// already drop them. Annotation category and MCA flags mirror the owning
// pattern; only the anomaly flag is the member's own.
func Assemble(opportunityID uuid.UUID, stats []*ClusterStats) *RunOutput {
	out := &RunOutput{
		OpportunityID: opportunityID,
		Annotations:   make(map[uuid.UUID]Annotation),
		Rollup:        Rollup{TotalMCAPayments: decimal.Zero},
	}

	for _, cs := range stats {
		if cs == nil || cs.Count < 2 || len(cs.MemberIDs) < 2 {
			continue
		}

		p := Pattern{
			ID:                 patternID(opportunityID, cs.MemberIDs[0]),
			OpportunityID:      opportunityID,
			DescriptionPattern: cs.Description,
			Category:           cs.Category,
			Frequency:          cs.Frequency,
			AvgAmount:          cs.AvgAmount,
			MinAmount:          cs.MinAmount,
			MaxAmount:          cs.MaxAmount,
			TotalAmount:        cs.TotalAmount,
			TransactionCount:   cs.Count,
			FirstOccurrence:    cs.FirstOccurrence,
			LastOccurrence:     cs.LastOccurrence,
			IsMCA:              cs.IsMCA,
			ConfidenceScore:    cs.ConfidenceScore,
			MemberIDs:          cs.MemberIDs,
		}
		out.Patterns = append(out.Patterns, p)

		groupID := p.ID
		for _, memberID := range cs.MemberIDs {
			id := groupID
			out.Annotations[memberID] = Annotation{
				IsRecurring:      true,
				RecurringGroupID: &id,
				Category:         p.Category,
				IsMCA:            p.IsMCA,
				IsAnomaly:        cs.AnomalyIDs[memberID],
			}
		}

		if p.IsMCA {
			out.Rollup.TotalMCAPayments = out.Rollup.TotalMCAPayments.Add(p.TotalAmount)
		}
	}

	out.Rollup.RecurringPatternsCount = len(out.Patterns)
	return out
}
