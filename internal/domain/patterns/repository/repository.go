// Package repository persists detected patterns and transaction annotations.
package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/go-none-none/ontrak-solutions-capital-fast-sub002/internal/domain/patterns"
)

// DB is the subset of pgxpool.Pool the repository needs. pgxmock satisfies
// it too, which is what the tests run against.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PatternRepository is the persistence boundary for the detection engine.
// ReplacePatterns is all-or-nothing: a completed run fully supersedes the
// prior pattern set for its scope, and a failed run leaves it untouched.
type PatternRepository interface {
	// ListTransactions loads the full transaction history for one
	// opportunity, date ascending.
	ListTransactions(ctx context.Context, opportunityID uuid.UUID) ([]patterns.Transaction, error)

	// ReplacePatterns atomically swaps the scope's pattern set: prior
	// patterns and annotations are cleared and the run's output applied
	// inside a single transaction.
	ReplacePatterns(ctx context.Context, out *patterns.RunOutput) error

	// ListPatterns returns the scope's current pattern set with member ids
	// reconstructed from transaction annotations.
	ListPatterns(ctx context.Context, opportunityID uuid.UUID) ([]patterns.Pattern, error)

	// ListStaleOpportunities returns scopes whose transactions are newer
	// than their latest pattern run (or that have never been analyzed).
	ListStaleOpportunities(ctx context.Context, limit int) ([]uuid.UUID, error)
}
