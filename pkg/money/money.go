// Package money provides minor-unit monetary parsing and formatting for
// bank-statement amounts. Arithmetic on integer cents avoids float drift;
// go-money handles currency display and shopspring/decimal handles parsing.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// USD is the only currency the underwriting flow handles today.
const USD = "USD"

// ErrEmptyAmount is returned when an amount cell is blank.
var ErrEmptyAmount = errors.New("empty amount")

// ParseAmount converts a statement amount string to minor units. Accepts the
// usual bank-export shapes: "$1,234.56", "1234.56", "(500.00)" for negative,
// "500.00-", and bare integers. The sign is preserved in the result.
func ParseAmount(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, ErrEmptyAmount
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	if strings.HasSuffix(s, "-") {
		negative = true
		s = s[:len(s)-1]
	}
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}

	s = strings.Map(func(r rune) rune {
		switch r {
		case '$', ',', ' ':
			return -1
		}
		return r
	}, s)
	if s == "" {
		return 0, ErrEmptyAmount
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", raw, err)
	}

	minor := d.Shift(2).Round(0).IntPart()
	if negative {
		minor = -minor
	}
	return minor, nil
}

// FormatMinor renders minor units for display, e.g. 123456 -> "$1,234.56".
func FormatMinor(minor int64, currencyCode string) string {
	if currencyCode == "" {
		currencyCode = USD
	}
	return money.New(minor, currencyCode).Display()
}

// FormatDecimal renders a major-unit decimal amount for display.
func FormatDecimal(amount decimal.Decimal, currencyCode string) string {
	return FormatMinor(amount.Shift(2).Round(0).IntPart(), currencyCode)
}

// MajorUnits converts minor units to an exact major-unit decimal.
func MajorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
