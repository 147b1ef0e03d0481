package patterns

import (
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultAnomalyMultiplier is the fraction of the cluster average a member's
// magnitude may deviate before it is flagged. Aggressive on purpose: in a
// cluster with meaningful variance most members will be flagged.
const DefaultAnomalyMultiplier = 0.1

// Frequency bucket bounds in average days between occurrences. The ranges do
// not touch: averages that land between buckets (2-5 days, 9-12, 17-27,
// 33+) classify as irregular. The gaps are gap-tolerant by design.
const (
	dailyMaxInterval    = 1.5
	weeklyMinInterval   = 6
	weeklyMaxInterval   = 8
	biweeklyMinInterval = 13
	biweeklyMaxInterval = 16
	monthlyMinInterval  = 28
	monthlyMaxInterval  = 32
)

// Analyzer computes amount statistics, cadence, and anomaly flags for a
// cluster and delegates category scoring to the classifier.
type Analyzer struct {
	classifier        *Classifier
	anomalyMultiplier decimal.Decimal
}

// NewAnalyzer wires an analyzer to a classifier. anomalyMultiplier tunes the
// per-member deviation threshold; pass DefaultAnomalyMultiplier unless the
// caller has a reason to soften it.
func NewAnalyzer(classifier *Classifier, anomalyMultiplier float64) *Analyzer {
	if anomalyMultiplier <= 0 {
		anomalyMultiplier = DefaultAnomalyMultiplier
	}
	return &Analyzer{
		classifier:        classifier,
		anomalyMultiplier: decimal.NewFromFloat(anomalyMultiplier),
	}
}

// Analyze computes ClusterStats for one cluster. Returns nil for clusters
// with fewer than two members; the clusterer already filters those, this is
// the defensive re-check.
func (a *Analyzer) Analyze(cluster []Transaction) *ClusterStats {
	if len(cluster) < 2 {
		return nil
	}

	members := make([]Transaction, len(cluster))
	copy(members, cluster)
	sort.SliceStable(members, func(i, j int) bool {
		if !members[i].Date.Equal(members[j].Date) {
			return members[i].Date.Before(members[j].Date)
		}
		return members[i].ID.String() < members[j].ID.String()
	})

	count := decimal.NewFromInt(int64(len(members)))
	total := decimal.Zero
	minAmt := members[0].Magnitude()
	maxAmt := minAmt
	for _, t := range members {
		mag := t.Magnitude()
		total = total.Add(mag)
		if mag.LessThan(minAmt) {
			minAmt = mag
		}
		if mag.GreaterThan(maxAmt) {
			maxAmt = mag
		}
	}
	avg := total.Div(count)

	// Population variance over magnitudes. Only the anomaly check consumes
	// it, so float64 precision is enough.
	avgF := avg.InexactFloat64()
	var variance float64
	for _, t := range members {
		d := t.Magnitude().InexactFloat64() - avgF
		variance += d * d
	}
	variance /= float64(len(members))
	stdDev := math.Sqrt(variance)

	avgInterval := averageIntervalDays(members)
	frequency := bucketFrequency(avgInterval)

	threshold := avg.Mul(a.anomalyMultiplier)
	anomalies := make(map[uuid.UUID]bool)
	if stdDev > 0 {
		for _, t := range members {
			deviation := t.Magnitude().Sub(avg).Abs()
			if deviation.GreaterThan(threshold) {
				anomalies[t.ID] = true
			}
		}
	}

	verdict := a.classifier.Classify(members[0].Description, frequency, avg)

	memberIDs := make([]uuid.UUID, len(members))
	for i, t := range members {
		memberIDs[i] = t.ID
	}

	return &ClusterStats{
		Description:     members[0].Description,
		Category:        verdict.Category,
		Frequency:       frequency,
		AvgAmount:       avg,
		MinAmount:       minAmt,
		MaxAmount:       maxAmt,
		TotalAmount:     total,
		StdDev:          stdDev,
		AvgIntervalDays: avgInterval,
		Count:           len(members),
		FirstOccurrence: members[0].Date,
		LastOccurrence:  members[len(members)-1].Date,
		IsMCA:           verdict.IsMCA,
		ConfidenceScore: verdict.Confidence,
		MemberIDs:       memberIDs,
		AnomalyIDs:      anomalies,
	}
}

// averageIntervalDays returns the mean day-gap between consecutive sorted
// occurrences. Same-day clusters average to 0.
func averageIntervalDays(sorted []Transaction) float64 {
	var sum float64
	gaps := 0
	for i := 1; i < len(sorted); i++ {
		sum += sorted[i].Date.Sub(sorted[i-1].Date).Hours() / 24
		gaps++
	}
	if gaps == 0 {
		return 0
	}
	return sum / float64(gaps)
}

func bucketFrequency(avgInterval float64) Frequency {
	switch {
	case avgInterval <= dailyMaxInterval:
		return FrequencyDaily
	case avgInterval >= weeklyMinInterval && avgInterval <= weeklyMaxInterval:
		return FrequencyWeekly
	case avgInterval >= biweeklyMinInterval && avgInterval <= biweeklyMaxInterval:
		return FrequencyBiweekly
	case avgInterval >= monthlyMinInterval && avgInterval <= monthlyMaxInterval:
		return FrequencyMonthly
	default:
		return FrequencyIrregular
	}
}
