// Package ingest loads bank-statement exports (CSV and XLSX) into the
// transaction model the pattern engine consumes. Row-level problems are
// collected, not fatal: underwriters routinely upload statements with a few
// mangled lines and the rest of the file is still worth analyzing.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"

	"github.com/go-none-none/ontrak-solutions-capital-fast-sub002/internal/domain/patterns"
	"github.com/go-none-none/ontrak-solutions-capital-fast-sub002/pkg/money"
)

// statementRow is a raw CSV row. The tags cover the header variants seen in
// the bank exports merchants actually upload; gocsv matches by header name.
type statementRow struct {
	Date       string `csv:"date"`
	PostedDate string `csv:"posted date"`
	TxnDate    string `csv:"transaction date"`

	Description string `csv:"description"`
	Payee       string `csv:"payee"`
	Memo        string `csv:"memo"`
	Details     string `csv:"details"`

	Amount string `csv:"amount"`

	Debit      string `csv:"debit"`
	Withdrawal string `csv:"withdrawal"`

	Credit  string `csv:"credit"`
	Deposit string `csv:"deposit"`

	Category string `csv:"category"`
}

// RowError describes a single unparseable statement line.
type RowError struct {
	Row     int
	Column  string
	Message string
	Raw     string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d, column %s: %s", e.Row, e.Column, e.Message)
}

// LoadResult is the outcome of loading one statement file.
type LoadResult struct {
	Transactions []patterns.Transaction
	Errors       []RowError
	TotalRows    int
	LoadedRows   int
	SkippedRows  int
}

// Options configures statement loading.
type Options struct {
	Delimiter  rune   // zero means comma
	DateFormat string // tried first when set; common formats are the fallback
}

// CSVLoader parses CSV statement exports.
type CSVLoader struct {
	opts Options
}

// NewCSVLoader creates a loader with the given options.
func NewCSVLoader(opts Options) *CSVLoader {
	return &CSVLoader{opts: opts}
}

// Load reads every transaction row from a CSV statement, attributing them to
// one opportunity. Rows that fail to parse land in the result's Errors.
func (l *CSVLoader) Load(reader io.Reader, opportunityID uuid.UUID) (*LoadResult, error) {
	result := &LoadResult{
		Transactions: make([]patterns.Transaction, 0, 256),
	}

	if l.opts.Delimiter != 0 {
		gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
			r := csv.NewReader(in)
			r.Comma = l.opts.Delimiter
			r.LazyQuotes = true
			r.TrimLeadingSpace = true
			return r
		})
		defer gocsv.SetCSVReader(gocsv.DefaultCSVReader)
	}

	var rows []statementRow
	if err := gocsv.Unmarshal(reader, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}

	result.TotalRows = len(rows)

	for i, row := range rows {
		rowNum := i + 2 // 1-indexed plus header

		fields := rowFields{
			date:        coalesce(row.Date, row.PostedDate, row.TxnDate),
			description: coalesce(row.Description, row.Payee, row.Memo, row.Details),
			amount:      strings.TrimSpace(row.Amount),
			debit:       coalesce(row.Debit, row.Withdrawal),
			credit:      coalesce(row.Credit, row.Deposit),
		}

		tx, rowErr := buildTransaction(opportunityID, rowNum, fields, l.opts.DateFormat)
		if rowErr != nil {
			result.Errors = append(result.Errors, *rowErr)
			continue
		}
		if tx == nil {
			result.SkippedRows++
			continue
		}

		result.Transactions = append(result.Transactions, *tx)
		result.LoadedRows++
	}

	return result, nil
}

// rowFields holds the resolved cell values for one statement row regardless
// of which source format produced them.
type rowFields struct {
	date        string
	description string
	amount      string
	debit       string
	credit      string
}

// buildTransaction turns one resolved row into a Transaction. A nil, nil
// return means an intentionally skipped row (blank / no date).
func buildTransaction(opportunityID uuid.UUID, rowNum int, f rowFields, dateFormat string) (*patterns.Transaction, *RowError) {
	if f.date == "" {
		return nil, nil
	}

	date, err := parseDate(f.date, dateFormat)
	if err != nil {
		return nil, &RowError{Row: rowNum, Column: "date", Message: err.Error(), Raw: f.date}
	}

	if f.description == "" {
		return nil, &RowError{Row: rowNum, Column: "description", Message: "missing description"}
	}

	var debitMinor, creditMinor int64
	switch {
	case f.amount != "":
		minor, err := money.ParseAmount(f.amount)
		if err != nil {
			return nil, &RowError{Row: rowNum, Column: "amount", Message: err.Error(), Raw: f.amount}
		}
		// Signed single-amount exports: negative is money out.
		if minor < 0 {
			debitMinor = -minor
		} else {
			creditMinor = minor
		}
	case f.debit != "" || f.credit != "":
		if f.debit != "" {
			minor, err := money.ParseAmount(f.debit)
			if err != nil {
				return nil, &RowError{Row: rowNum, Column: "debit", Message: err.Error(), Raw: f.debit}
			}
			if minor < 0 {
				minor = -minor
			}
			debitMinor = minor
		}
		if debitMinor == 0 && f.credit != "" {
			minor, err := money.ParseAmount(f.credit)
			if err != nil {
				return nil, &RowError{Row: rowNum, Column: "credit", Message: err.Error(), Raw: f.credit}
			}
			if minor < 0 {
				minor = -minor
			}
			creditMinor = minor
		}
	default:
		return nil, &RowError{Row: rowNum, Column: "amount", Message: "no amount found"}
	}

	if debitMinor == 0 && creditMinor == 0 {
		return nil, &RowError{Row: rowNum, Column: "amount", Message: "zero amount"}
	}

	desc := cleanDescription(f.description)

	return &patterns.Transaction{
		ID:            rowID(opportunityID, rowNum, date, desc, debitMinor, creditMinor),
		OpportunityID: opportunityID,
		Date:          date,
		Description:   desc,
		DebitMinor:    debitMinor,
		CreditMinor:   creditMinor,
	}, nil
}

var rowNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("ontrak/statement-row"))

// rowID derives a stable transaction id from the row's content so reloading
// the same file yields the same ids, and downstream pattern ids with them.
func rowID(opportunityID uuid.UUID, rowNum int, date time.Time, desc string, debitMinor, creditMinor int64) uuid.UUID {
	seed := fmt.Sprintf("%s|%d|%s|%s|%d|%d",
		opportunityID, rowNum, date.Format("2006-01-02"), desc, debitMinor, creditMinor)
	return uuid.NewSHA1(rowNamespace, []byte(seed))
}

var dateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"2006/01/02",
	"Jan 2, 2006",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"01/02/2006 15:04",
}

func parseDate(s, preferred string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if preferred != "" {
		if t, err := time.Parse(preferred, s); err == nil {
			return t, nil
		}
	}
	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %s", s)
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func cleanDescription(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
