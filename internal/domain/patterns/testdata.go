package patterns

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

// TestDataGenerator builds realistic statement histories using gofakeit.
// Seeded generators are reproducible, which the determinism tests rely on.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

// NewTestDataGenerator creates a generator with a random seed.
func NewTestDataGenerator() *TestDataGenerator {
	return &TestDataGenerator{faker: gofakeit.New(0)}
}

// NewTestDataGeneratorWithSeed creates a reproducible generator.
func NewTestDataGeneratorWithSeed(seed int64) *TestDataGenerator {
	return &TestDataGenerator{faker: gofakeit.New(seed)}
}

var mcaLenderNames = []string{
	"ONDECK CAPITAL", "KABBAGE FUNDING", "FORWARD FINANCING",
	"RAPID ADVANCE", "BLUEVINE CAPITAL", "FUNDBOX MERCHANT",
}

var noiseDescriptions = []string{
	"CHECK DEPOSIT", "ATM WITHDRAWAL", "POS PURCHASE HARDWARE STORE",
	"CARD PURCHASE RESTAURANT", "WIRE IN CUSTOMER INVOICE",
	"ZELLE FROM CUSTOMER", "DEPOSIT BRANCH",
}

// Series generates a recurring debit series: count occurrences spaced
// intervalDays apart, same description, amounts jittered within
// jitterMinor of baseMinor.
func (g *TestDataGenerator) Series(scope uuid.UUID, description string, start time.Time, count, intervalDays int, baseMinor, jitterMinor int64) []Transaction {
	txs := make([]Transaction, count)
	for i := 0; i < count; i++ {
		amount := baseMinor
		if jitterMinor > 0 {
			amount += int64(g.faker.Number(int(-jitterMinor), int(jitterMinor)))
		}
		txs[i] = Transaction{
			ID:            uuid.New(),
			OpportunityID: scope,
			Date:          start.AddDate(0, 0, i*intervalDays),
			Description:   description,
			DebitMinor:    amount,
		}
	}
	return txs
}

// MCASeries generates a daily lender-debit series for a random MCA funder.
func (g *TestDataGenerator) MCASeries(scope uuid.UUID, start time.Time, count int) []Transaction {
	lender := mcaLenderNames[g.faker.Number(0, len(mcaLenderNames)-1)]
	base := int64(g.faker.Number(20000, 100000)) // $200-$1000 per pull
	return g.Series(scope, lender+" PMT", start, count, 1, base, 0)
}

// Noise generates one-off transactions that should never cluster together.
// Each description is used at most once so no two noise rows are similar.
func (g *TestDataGenerator) Noise(scope uuid.UUID, start time.Time, count int) []Transaction {
	if count > len(noiseDescriptions) {
		count = len(noiseDescriptions)
	}
	txs := make([]Transaction, count)
	for i := 0; i < count; i++ {
		desc := noiseDescriptions[i]
		tx := Transaction{
			ID:            uuid.New(),
			OpportunityID: scope,
			Date:          start.AddDate(0, 0, g.faker.Number(0, 60)),
			Description:   desc,
		}
		if g.faker.Bool() {
			tx.DebitMinor = int64(g.faker.Number(500, 500000))
		} else {
			tx.CreditMinor = int64(g.faker.Number(500, 500000))
		}
		txs[i] = tx
	}
	return txs
}

// StatementHistory generates a plausible small-business statement: an MCA
// daily pull, weekly payroll, monthly rent, and surrounding noise.
func (g *TestDataGenerator) StatementHistory(scope uuid.UUID, start time.Time) []Transaction {
	var txs []Transaction
	txs = append(txs, g.MCASeries(scope, start, 20)...)
	txs = append(txs, g.Series(scope, "GUSTO PAYROLL DIRECT", start, 8, 7, 420000, 15000)...)
	txs = append(txs, g.Series(scope, "PROPERTY MGMT RENT LEASE", start, 2, 30, 350000, 0)...)
	txs = append(txs, g.Noise(scope, start, 10)...)
	return txs
}
