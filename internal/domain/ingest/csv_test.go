package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVLoader_SingleAmountColumn(t *testing.T) {
	input := `date,description,amount
2026-03-02,ONDECK CAPITAL DAILY ACH,-450.00
2026-03-03,ONDECK CAPITAL DAILY ACH,-450.00
2026-03-04,CUSTOMER DEPOSIT,"1,200.00"
`
	scope := uuid.New()
	result, err := NewCSVLoader(Options{}).Load(strings.NewReader(input), scope)
	require.NoError(t, err)

	require.Len(t, result.Transactions, 3)
	assert.Equal(t, 3, result.TotalRows)
	assert.Equal(t, 3, result.LoadedRows)
	assert.Empty(t, result.Errors)

	first := result.Transactions[0]
	assert.Equal(t, scope, first.OpportunityID)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, "ONDECK CAPITAL DAILY ACH", first.Description)
	assert.Equal(t, int64(45000), first.DebitMinor)
	assert.Zero(t, first.CreditMinor)

	deposit := result.Transactions[2]
	assert.Zero(t, deposit.DebitMinor)
	assert.Equal(t, int64(120000), deposit.CreditMinor)
}

func TestCSVLoader_DebitCreditColumns(t *testing.T) {
	input := `date,description,debit,credit
01/05/2026,GUSTO PAYROLL,2500.00,
01/12/2026,CUSTOMER DEPOSIT,,900.00
`
	result, err := NewCSVLoader(Options{}).Load(strings.NewReader(input), uuid.New())
	require.NoError(t, err)
	require.Len(t, result.Transactions, 2)

	assert.Equal(t, int64(250000), result.Transactions[0].DebitMinor)
	assert.Equal(t, int64(90000), result.Transactions[1].CreditMinor)
	assert.Equal(t, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), result.Transactions[0].Date)
}

func TestCSVLoader_CollectsRowErrors(t *testing.T) {
	input := `date,description,amount
2026-03-02,GOOD ROW,-10.00
not-a-date,BAD DATE,-10.00
2026-03-04,,-10.00
2026-03-05,BAD AMOUNT,abc
2026-03-06,ZERO AMOUNT,0.00
`
	result, err := NewCSVLoader(Options{}).Load(strings.NewReader(input), uuid.New())
	require.NoError(t, err)

	assert.Len(t, result.Transactions, 1)
	require.Len(t, result.Errors, 4)
	assert.Equal(t, "date", result.Errors[0].Column)
	assert.Equal(t, 3, result.Errors[0].Row)
	assert.Equal(t, "description", result.Errors[1].Column)
	assert.Equal(t, "amount", result.Errors[2].Column)
	assert.Contains(t, result.Errors[3].Message, "zero amount")
}

func TestCSVLoader_SkipsBlankDateRows(t *testing.T) {
	input := `date,description,amount
2026-03-02,KEEP ME,-10.00
,,
,TRAILING SUMMARY LINE,
`
	result, err := NewCSVLoader(Options{}).Load(strings.NewReader(input), uuid.New())
	require.NoError(t, err)
	assert.Len(t, result.Transactions, 1)
	assert.Equal(t, 2, result.SkippedRows)
	assert.Empty(t, result.Errors)
}

func TestCSVLoader_StableIDs(t *testing.T) {
	input := `date,description,amount
2026-03-02,ONDECK CAPITAL DAILY ACH,-450.00
2026-03-03,ONDECK CAPITAL DAILY ACH,-450.00
`
	scope := uuid.New()
	loader := NewCSVLoader(Options{})

	first, err := loader.Load(strings.NewReader(input), scope)
	require.NoError(t, err)
	second, err := loader.Load(strings.NewReader(input), scope)
	require.NoError(t, err)

	require.Len(t, first.Transactions, 2)
	assert.Equal(t, first.Transactions[0].ID, second.Transactions[0].ID)
	assert.Equal(t, first.Transactions[1].ID, second.Transactions[1].ID)
	assert.NotEqual(t, first.Transactions[0].ID, first.Transactions[1].ID,
		"identical rows on different lines still get distinct ids")
}

func TestCSVLoader_AlternateHeadersAndDelimiter(t *testing.T) {
	input := "posted date;payee;withdrawal;deposit\n2026-02-10;COMCAST INTERNET SVC;89.99;\n"
	result, err := NewCSVLoader(Options{Delimiter: ';'}).Load(strings.NewReader(input), uuid.New())
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, "COMCAST INTERNET SVC", result.Transactions[0].Description)
	assert.Equal(t, int64(8999), result.Transactions[0].DebitMinor)
}

func TestParseDate_PreferredFormatWins(t *testing.T) {
	// 02/03 is ambiguous; the preferred format resolves it as day-first.
	got, err := parseDate("02/03/2026", "02/01/2006")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), got)
}
