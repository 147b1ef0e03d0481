package patterns

import "sort"

// Cluster partitions transactions into recurring-series candidates using a
// greedy forward scan over the date-ascending order: each unused transaction
// seeds a cluster and claims every later unused transaction whose normalized
// description is similar. Clusters with fewer than two members are dropped;
// their transactions stay non-recurring. O(n^2) comparisons, which is fine
// for single-account statement histories.
//
// Cluster membership depends on the scan order. Date ascending with ID as
// the tiebreaker is the canonical order; changing it changes results.
func Cluster(transactions []Transaction, threshold float64) [][]Transaction {
	if len(transactions) == 0 {
		return nil
	}

	sorted := make([]Transaction, len(transactions))
	copy(sorted, transactions)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].ID.String() < sorted[j].ID.String()
	})

	for i := range sorted {
		if sorted[i].NormalizedDescription == "" {
			sorted[i].NormalizedDescription = Normalize(sorted[i].Description)
		}
	}

	used := make([]bool, len(sorted))
	var clusters [][]Transaction

	for i := range sorted {
		if used[i] {
			continue
		}
		// A record with neither a usable description nor a usable date
		// cannot be clustered or scored; leave it as an unused singleton
		// rather than poisoning the run.
		if sorted[i].NormalizedDescription == "" && sorted[i].Date.IsZero() {
			used[i] = true
			continue
		}

		used[i] = true
		cluster := []Transaction{sorted[i]}

		for j := i + 1; j < len(sorted); j++ {
			if used[j] {
				continue
			}
			if AreSimilar(sorted[i].NormalizedDescription, sorted[j].NormalizedDescription, threshold) {
				used[j] = true
				cluster = append(cluster, sorted[j])
			}
		}

		if len(cluster) >= 2 {
			clusters = append(clusters, cluster)
		}
	}

	return clusters
}
