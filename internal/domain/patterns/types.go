// Package patterns implements recurring-payment detection and classification
// over a merchant's bank-transaction history. The engine is a pure in-memory
// pass: transactions in, classified patterns and per-transaction annotations
// out. Persistence belongs to the repository layer.
package patterns

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category is the classification assigned to a recurring pattern.
type Category string

const (
	CategoryMCALender     Category = "mca_lender"
	CategoryPayroll       Category = "payroll"
	CategoryRentLease     Category = "rent_lease"
	CategoryUtilities     Category = "utilities"
	CategoryTransfers     Category = "transfers"
	CategoryBankFees      Category = "bank_fees"
	CategorySubscriptions Category = "subscriptions"
	CategoryOther         Category = "other"
)

// Frequency describes how often a recurring pattern repeats.
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyBiweekly  Frequency = "biweekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyIrregular Frequency = "irregular"
)

// Transaction is a single bank-statement line. Exactly one of DebitMinor or
// CreditMinor is non-zero; the non-zero side is the transaction's magnitude.
// Annotation fields are written by the Result Assembler, never by ingestion.
type Transaction struct {
	ID            uuid.UUID
	OpportunityID uuid.UUID
	Date          time.Time
	Description   string
	// NormalizedDescription is the token-comparable form of Description.
	// Populated lazily by the engine when empty.
	NormalizedDescription string
	DebitMinor            int64
	CreditMinor           int64

	// Output annotations.
	IsRecurring      bool
	RecurringGroupID *uuid.UUID
	Category         Category
	IsMCA            bool
	IsAnomaly        bool
}

// Magnitude returns the non-zero side of the transaction in major units,
// regardless of debit/credit direction.
func (t Transaction) Magnitude() decimal.Decimal {
	if t.DebitMinor > 0 {
		return decimal.New(t.DebitMinor, -2)
	}
	return decimal.New(t.CreditMinor, -2)
}

// Pattern is the persisted summary of one detected recurring group.
type Pattern struct {
	ID                 uuid.UUID
	OpportunityID      uuid.UUID
	DescriptionPattern string
	Category           Category
	Frequency          Frequency
	AvgAmount          decimal.Decimal
	MinAmount          decimal.Decimal
	MaxAmount          decimal.Decimal
	TotalAmount        decimal.Decimal
	TransactionCount   int
	FirstOccurrence    time.Time
	LastOccurrence     time.Time
	IsMCA              bool
	ConfidenceScore    int
	MemberIDs          []uuid.UUID
}

// Annotation is the per-transaction output written back by a run. Category
// and IsMCA mirror the owning pattern; IsAnomaly is the member's own flag.
type Annotation struct {
	IsRecurring      bool
	RecurringGroupID *uuid.UUID
	Category         Category
	IsMCA            bool
	IsAnomaly        bool
}

// Rollup aggregates one run for a scope.
type Rollup struct {
	RecurringPatternsCount int
	TotalMCAPayments       decimal.Decimal
}

// ClusterStats carries the analyzed statistics for one cluster before it is
// assembled into a Pattern.
type ClusterStats struct {
	Description     string
	Category        Category
	Frequency       Frequency
	AvgAmount       decimal.Decimal
	MinAmount       decimal.Decimal
	MaxAmount       decimal.Decimal
	TotalAmount     decimal.Decimal
	StdDev          float64
	AvgIntervalDays float64
	Count           int
	FirstOccurrence time.Time
	LastOccurrence  time.Time
	IsMCA           bool
	ConfidenceScore int
	MemberIDs       []uuid.UUID
	// AnomalyIDs holds the members whose magnitude deviates from the cluster
	// average beyond the configured multiplier.
	AnomalyIDs map[uuid.UUID]bool
}

// RunOutput is the all-or-nothing result of one engine pass over a scope.
type RunOutput struct {
	OpportunityID uuid.UUID
	Patterns      []Pattern
	Annotations   map[uuid.UUID]Annotation
	Rollup        Rollup
	Duplicates    []DuplicateReviewItem
}
