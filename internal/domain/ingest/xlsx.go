package ingest

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/go-none-none/ontrak-solutions-capital-fast-sub002/internal/domain/patterns"
)

// XLSXLoader parses Excel statement exports.
type XLSXLoader struct {
	opts Options
}

// NewXLSXLoader creates a loader with the given options.
func NewXLSXLoader(opts Options) *XLSXLoader {
	return &XLSXLoader{opts: opts}
}

// Load reads transaction rows from the first suitable worksheet. Header
// columns are matched by name the same way the CSV loader matches tags.
func (l *XLSXLoader) Load(reader io.Reader, opportunityID uuid.UUID) (*LoadResult, error) {
	result := &LoadResult{
		Transactions: make([]patterns.Transaction, 0, 256),
	}

	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := findStatementSheet(f)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return result, nil
	}

	cols := mapColumns(rows[0])

	for i := 1; i < len(rows); i++ {
		rowNum := i + 1
		result.TotalRows++

		get := func(idx int) string {
			if idx < 0 || idx >= len(rows[i]) {
				return ""
			}
			return strings.TrimSpace(rows[i][idx])
		}

		fields := rowFields{
			date:        get(cols.date),
			description: get(cols.description),
			amount:      get(cols.amount),
			debit:       get(cols.debit),
			credit:      get(cols.credit),
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

type columnIndexes struct {
	date        int
	description int
	amount      int
	debit       int
	credit      int
}

func findStatementSheet(f *excelize.File) string {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ""
	}
	for _, preferred := range []string{"transactions", "statement", "activity", "sheet1"} {
		for _, sheet := range sheets {
			if strings.EqualFold(sheet, preferred) {
				return sheet
			}
		}
	}
	return sheets[0]
}

func mapColumns(headers []string) columnIndexes {
	cols := columnIndexes{date: -1, description: -1, amount: -1, debit: -1, credit: -1}

	match := func(h string, keywords ...string) bool {
		for _, kw := range keywords {
			if strings.Contains(h, kw) {
				return true
			}
		}
		return false
	}

	for i, header := range headers {
		h := strings.ToLower(strings.TrimSpace(header))
		switch {
		case cols.date < 0 && match(h, "date"):
			cols.date = i
		case cols.description < 0 && match(h, "description", "payee", "memo", "details"):
			cols.description = i
		case cols.debit < 0 && match(h, "debit", "withdrawal"):
			cols.debit = i
		case cols.credit < 0 && match(h, "credit", "deposit"):
			cols.credit = i
		case cols.amount < 0 && match(h, "amount"):
			cols.amount = i
		}
	}
	return cols
}
