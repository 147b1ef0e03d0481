package patterns

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAnalyzer() *Analyzer {
	return NewAnalyzer(NewClassifier(DefaultKeywordConfig()), DefaultAnomalyMultiplier)
}

func TestAnalyzer_Analyze(t *testing.T) {
	a := newTestAnalyzer()

	t.Run("rejects clusters below two members", func(t *testing.T) {
		assert.Nil(t, a.Analyze(nil))
		assert.Nil(t, a.Analyze([]Transaction{tx("ONDECK CAPITAL PMT", day(1), 50000)}))
	})

	t.Run("amount statistics", func(t *testing.T) {
		cluster := []Transaction{
			tx("GUSTO PAYROLL DIRECT", day(1), 400000),
			tx("GUSTO PAYROLL DIRECT", day(8), 420000),
			tx("GUSTO PAYROLL DIRECT", day(15), 440000),
		}

		cs := a.Analyze(cluster)
		require.NotNil(t, cs)
		assert.True(t, cs.AvgAmount.Equal(decimal.NewFromInt(4200)), "avg %s", cs.AvgAmount)
		assert.True(t, cs.MinAmount.Equal(decimal.NewFromInt(4000)))
		assert.True(t, cs.MaxAmount.Equal(decimal.NewFromInt(4400)))
		assert.True(t, cs.TotalAmount.Equal(decimal.NewFromInt(12600)))
		assert.Equal(t, 3, cs.Count)
		assert.Equal(t, day(1), cs.FirstOccurrence)
		assert.Equal(t, day(15), cs.LastOccurrence)

		// min <= avg <= max and total == count*avg.
		assert.True(t, cs.MinAmount.LessThanOrEqual(cs.AvgAmount))
		assert.True(t, cs.AvgAmount.LessThanOrEqual(cs.MaxAmount))
		diff := cs.TotalAmount.Sub(cs.AvgAmount.Mul(decimal.NewFromInt(int64(cs.Count)))).Abs()
		assert.True(t, diff.LessThan(decimal.NewFromFloat(1e-6)))
	})

	t.Run("credit side is the magnitude when debit is zero", func(t *testing.T) {
		cluster := []Transaction{
			{ID: uuid.New(), Date: day(1), Description: "ZELLE FROM CUSTOMER ACME", CreditMinor: 100000},
			{ID: uuid.New(), Date: day(8), Description: "ZELLE FROM CUSTOMER ACME", CreditMinor: 100000},
		}

		cs := a.Analyze(cluster)
		require.NotNil(t, cs)
		assert.True(t, cs.AvgAmount.Equal(decimal.NewFromInt(1000)))
	})

	t.Run("sorts members by date before analysis", func(t *testing.T) {
		cluster := []Transaction{
			tx("ONDECK CAPITAL PMT", day(3), 50000),
			tx("ONDECK CAPITAL PMT", day(1), 50000),
			tx("ONDECK CAPITAL PMT", day(2), 50000),
		}

		cs := a.Analyze(cluster)
		require.NotNil(t, cs)
		assert.Equal(t, FrequencyDaily, cs.Frequency)
		assert.Equal(t, day(1), cs.FirstOccurrence)
	})

	t.Run("same day cluster averages to zero interval", func(t *testing.T) {
		cluster := []Transaction{
			tx("ONDECK CAPITAL PMT", day(1), 50000),
			tx("ONDECK CAPITAL PMT", day(1), 50000),
		}

		cs := a.Analyze(cluster)
		require.NotNil(t, cs)
		assert.Equal(t, FrequencyDaily, cs.Frequency)
	})
}

func TestBucketFrequency_Boundaries(t *testing.T) {
	tests := []struct {
		interval float64
		want     Frequency
	}{
		{0, FrequencyDaily},
		{1.0, FrequencyDaily},
		{1.5, FrequencyDaily},
		{1.51, FrequencyIrregular},
		{5.99, FrequencyIrregular},
		{6, FrequencyWeekly},
		{7, FrequencyWeekly},
		{8, FrequencyWeekly},
		{8.01, FrequencyIrregular},
		{12.99, FrequencyIrregular},
		{13, FrequencyBiweekly},
		{16, FrequencyBiweekly},
		{16.5, FrequencyIrregular},
		{27.9, FrequencyIrregular},
		{28, FrequencyMonthly},
		{30, FrequencyMonthly},
		{32, FrequencyMonthly},
		{33, FrequencyIrregular},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, bucketFrequency(tt.interval), "interval %v", tt.interval)
	}
}

func TestAnalyzer_AnomalyFlags(t *testing.T) {
	a := newTestAnalyzer()

	t.Run("zero variance flags nothing", func(t *testing.T) {
		cluster := []Transaction{
			tx("ONDECK CAPITAL PMT", day(1), 50000),
			tx("ONDECK CAPITAL PMT", day(2), 50000),
			tx("ONDECK CAPITAL PMT", day(3), 50000),
		}

		cs := a.Analyze(cluster)
		require.NotNil(t, cs)
		assert.Empty(t, cs.AnomalyIDs)
	})

	t.Run("deviation beyond a tenth of the average flags the member", func(t *testing.T) {
		outlier := tx("ONDECK CAPITAL PMT", day(3), 80000)
		cluster := []Transaction{
			tx("ONDECK CAPITAL PMT", day(1), 50000),
			tx("ONDECK CAPITAL PMT", day(2), 50000),
			outlier,
		}

		cs := a.Analyze(cluster)
		require.NotNil(t, cs)
		// avg = 600; |800-600| = 200 > 60, |500-600| = 100 > 60: the check
		// runs per member against the cluster's own average, so steady
		// members near a skewed average get flagged too.
		assert.True(t, cs.AnomalyIDs[outlier.ID])
		assert.Len(t, cs.AnomalyIDs, 3)
	})

	t.Run("softened multiplier flags only the outlier", func(t *testing.T) {
		soft := NewAnalyzer(NewClassifier(DefaultKeywordConfig()), 0.25)
		outlier := tx("ONDECK CAPITAL PMT", day(3), 80000)
		cluster := []Transaction{
			tx("ONDECK CAPITAL PMT", day(1), 50000),
			tx("ONDECK CAPITAL PMT", day(2), 50000),
			outlier,
		}

		cs := soft.Analyze(cluster)
		require.NotNil(t, cs)
		assert.True(t, cs.AnomalyIDs[outlier.ID])
		assert.Len(t, cs.AnomalyIDs, 1)
	})
}
