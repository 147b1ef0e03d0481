package patterns

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_EmptyInput(t *testing.T) {
	e := NewEngine(DefaultConfig())
	out := e.Run(uuid.New(), nil)

	require.NotNil(t, out)
	assert.Empty(t, out.Patterns)
	assert.Empty(t, out.Annotations)
	assert.Equal(t, 0, out.Rollup.RecurringPatternsCount)
	assert.True(t, out.Rollup.TotalMCAPayments.IsZero())
}

// Daily MCA pulls: one cluster of three, mca_lender at clamped confidence.
func TestEngine_MCADailyScenario(t *testing.T) {
	e := NewEngine(DefaultConfig())
	scope := uuid.New()

	txs := []Transaction{
		{ID: uuid.New(), OpportunityID: scope, Date: day(1), Description: "ONDECK CAPITAL PMT", DebitMinor: 50000},
		{ID: uuid.New(), OpportunityID: scope, Date: day(2), Description: "ONDECK CAPITAL PMT", DebitMinor: 50000},
		{ID: uuid.New(), OpportunityID: scope, Date: day(3), Description: "ONDECK CAPITAL PMT", DebitMinor: 50000},
	}

	out := e.Run(scope, txs)
	require.Len(t, out.Patterns, 1)

	p := out.Patterns[0]
	assert.Equal(t, "ONDECK CAPITAL PMT", p.DescriptionPattern)
	assert.Equal(t, 3, p.TransactionCount)
	assert.Equal(t, FrequencyDaily, p.Frequency)
	assert.Equal(t, CategoryMCALender, p.Category)
	assert.True(t, p.IsMCA)
	assert.Equal(t, 95, p.ConfidenceScore)
	assert.True(t, p.AvgAmount.Equal(decimal.NewFromInt(500)))
	assert.True(t, p.TotalAmount.Equal(decimal.NewFromInt(1500)))

	assert.Equal(t, 1, out.Rollup.RecurringPatternsCount)
	assert.True(t, out.Rollup.TotalMCAPayments.Equal(decimal.NewFromInt(1500)))

	for _, txn := range txs {
		ann, ok := out.Annotations[txn.ID]
		require.True(t, ok)
		assert.True(t, ann.IsRecurring)
		require.NotNil(t, ann.RecurringGroupID)
		assert.Equal(t, p.ID, *ann.RecurringGroupID)
		assert.Equal(t, CategoryMCALender, ann.Category)
		assert.True(t, ann.IsMCA)
	}
}

// Weekly payroll: cluster of two, payroll at 80, not MCA.
func TestEngine_WeeklyPayrollScenario(t *testing.T) {
	e := NewEngine(DefaultConfig())
	scope := uuid.New()

	txs := []Transaction{
		{ID: uuid.New(), OpportunityID: scope, Date: day(1), Description: "PAYROLL DIRECT DEP", DebitMinor: 200000},
		{ID: uuid.New(), OpportunityID: scope, Date: day(8), Description: "PAYROLL DIRECT DEP", DebitMinor: 200000},
	}

	out := e.Run(scope, txs)
	require.Len(t, out.Patterns, 1)

	p := out.Patterns[0]
	assert.Equal(t, FrequencyWeekly, p.Frequency)
	assert.Equal(t, CategoryPayroll, p.Category)
	assert.Equal(t, 80, p.ConfidenceScore)
	assert.False(t, p.IsMCA)
	assert.True(t, out.Rollup.TotalMCAPayments.IsZero())
}

// An unmatched transaction yields no patterns and no annotation.
func TestEngine_UnmatchedSingleton(t *testing.T) {
	e := NewEngine(DefaultConfig())
	scope := uuid.New()

	lone := Transaction{ID: uuid.New(), OpportunityID: scope, Date: day(1), Description: "WIRE IN CUSTOMER INVOICE", CreditMinor: 750000}
	out := e.Run(scope, []Transaction{lone})

	assert.Empty(t, out.Patterns)
	_, annotated := out.Annotations[lone.ID]
	assert.False(t, annotated)
	assert.Equal(t, 0, out.Rollup.RecurringPatternsCount)
}

// Rerunning over an unchanged set reproduces the identical pattern set,
// deterministic IDs included.
func TestEngine_Deterministic(t *testing.T) {
	e := NewEngine(DefaultConfig())
	scope := uuid.New()
	gen := NewTestDataGeneratorWithSeed(7)
	txs := gen.StatementHistory(scope, day(1))

	first := e.Run(scope, txs)
	second := e.Run(scope, txs)

	require.Equal(t, len(first.Patterns), len(second.Patterns))
	assert.Equal(t, first.Patterns, second.Patterns)
	assert.Equal(t, first.Annotations, second.Annotations)
	assert.Equal(t, first.Rollup.RecurringPatternsCount, second.Rollup.RecurringPatternsCount)
	assert.True(t, first.Rollup.TotalMCAPayments.Equal(second.Rollup.TotalMCAPayments))
}

func TestEngine_GeneratedStatementHistory(t *testing.T) {
	e := NewEngine(DefaultConfig())
	scope := uuid.New()
	gen := NewTestDataGeneratorWithSeed(11)
	txs := gen.StatementHistory(scope, day(1))

	out := e.Run(scope, txs)
	require.NotEmpty(t, out.Patterns)

	categories := make(map[Category]bool)
	for _, p := range out.Patterns {
		categories[p.Category] = true

		// Structural invariants for every emitted pattern.
		assert.GreaterOrEqual(t, p.TransactionCount, 2)
		assert.Equal(t, p.TransactionCount, len(p.MemberIDs))
		assert.True(t, p.MinAmount.LessThanOrEqual(p.AvgAmount))
		assert.True(t, p.AvgAmount.LessThanOrEqual(p.MaxAmount))
		diff := p.TotalAmount.Sub(p.AvgAmount.Mul(decimal.NewFromInt(int64(p.TransactionCount)))).Abs()
		assert.True(t, diff.LessThan(decimal.NewFromFloat(1e-6)))
		assert.False(t, p.FirstOccurrence.After(p.LastOccurrence))

		for _, memberID := range p.MemberIDs {
			ann, ok := out.Annotations[memberID]
			require.True(t, ok, "member %s missing annotation", memberID)
			require.NotNil(t, ann.RecurringGroupID)
			assert.Equal(t, p.ID, *ann.RecurringGroupID)
		}
	}

	assert.True(t, categories[CategoryMCALender], "generated MCA series not detected")
	assert.True(t, categories[CategoryPayroll], "generated payroll series not detected")
}

func TestEngine_ConfigDefaults(t *testing.T) {
	// A zero config behaves like the stock tuning.
	e := NewEngine(Config{})
	scope := uuid.New()

	txs := []Transaction{
		{ID: uuid.New(), OpportunityID: scope, Date: day(1), Description: "ONDECK CAPITAL PMT", DebitMinor: 50000},
		{ID: uuid.New(), OpportunityID: scope, Date: day(2), Description: "ONDECK CAPITAL PMT", DebitMinor: 50000},
	}

	out := e.Run(scope, txs)
	require.Len(t, out.Patterns, 1)
	assert.True(t, out.Patterns[0].IsMCA)
}

func TestEngine_MalformedRecordDoesNotAbortRun(t *testing.T) {
	e := NewEngine(DefaultConfig())
	scope := uuid.New()

	txs := []Transaction{
		{ID: uuid.New(), OpportunityID: scope, Description: "###"}, // no date, no usable description
		{ID: uuid.New(), OpportunityID: scope, Date: day(1), Description: "ONDECK CAPITAL PMT", DebitMinor: 50000},
		{ID: uuid.New(), OpportunityID: scope, Date: day(2), Description: "ONDECK CAPITAL PMT", DebitMinor: 50000},
	}

	out := e.Run(scope, txs)
	require.Len(t, out.Patterns, 1)
	assert.Equal(t, 2, out.Patterns[0].TransactionCount)
}

func day2(d int, hour int) time.Time {
	return time.Date(2024, time.January, d, hour, 0, 0, 0, time.UTC)
}

func TestEngine_FractionalGapsFallIrregular(t *testing.T) {
	e := NewEngine(DefaultConfig())
	scope := uuid.New()

	// Gaps of 4 days land in the hole between daily and weekly.
	txs := []Transaction{
		{ID: uuid.New(), OpportunityID: scope, Date: day2(1, 9), Description: "VENDOR ACME SUPPLY ORDER", DebitMinor: 90000},
		{ID: uuid.New(), OpportunityID: scope, Date: day2(5, 9), Description: "VENDOR ACME SUPPLY ORDER", DebitMinor: 90000},
		{ID: uuid.New(), OpportunityID: scope, Date: day2(9, 9), Description: "VENDOR ACME SUPPLY ORDER", DebitMinor: 90000},
	}

	out := e.Run(scope, txs)
	require.Len(t, out.Patterns, 1)
	assert.Equal(t, FrequencyIrregular, out.Patterns[0].Frequency)
}
