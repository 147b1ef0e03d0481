package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/go-none-none/ontrak-solutions-capital-fast-sub002/internal/domain/patterns"
)

// PostgresPatternRepository implements PatternRepository on PostgreSQL.
type PostgresPatternRepository struct {
	db DB
}

// NewPostgresPatternRepository creates a PostgreSQL pattern repository.
func NewPostgresPatternRepository(db DB) *PostgresPatternRepository {
	return &PostgresPatternRepository{db: db}
}

// ListTransactions loads the scope's transaction history, date ascending
// with id as the tiebreaker so the engine's scan order is reproducible.
func (r *PostgresPatternRepository) ListTransactions(ctx context.Context, opportunityID uuid.UUID) ([]patterns.Transaction, error) {
	query := `
		SELECT id, opportunity_id, txn_date, description, normalized_description,
			debit_minor, credit_minor, is_recurring, recurring_group_id,
			category, is_mca, is_anomaly
		FROM bank_transactions
		WHERE opportunity_id = $1
		ORDER BY txn_date, id`

	rows, err := r.db.Query(ctx, query, opportunityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []patterns.Transaction
	for rows.Next() {
		var t patterns.Transaction
		var category *string
		err := rows.Scan(
			&t.ID,
			&t.OpportunityID,
			&t.Date,
			&t.Description,
			&t.NormalizedDescription,
			&t.DebitMinor,
			&t.CreditMinor,
			&t.IsRecurring,
			&t.RecurringGroupID,
			&category,
			&t.IsMCA,
			&t.IsAnomaly,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if category != nil {
			t.Category = patterns.Category(*category)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// ReplacePatterns swaps the scope's pattern set in one transaction: clear
// prior annotations, delete prior patterns, insert the new set, apply the
// new annotations. Readers never observe a partial state.
func (r *PostgresPatternRepository) ReplacePatterns(ctx context.Context, out *patterns.RunOutput) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin pattern swap: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		UPDATE bank_transactions
		SET is_recurring = false, recurring_group_id = NULL, category = NULL,
			is_mca = false, is_anomaly = false
		WHERE opportunity_id = $1`, out.OpportunityID)
	if err != nil {
		return fmt.Errorf("failed to clear annotations: %w", err)
	}

	_, err = tx.Exec(ctx, `DELETE FROM recurring_patterns WHERE opportunity_id = $1`, out.OpportunityID)
	if err != nil {
		return fmt.Errorf("failed to delete prior patterns: %w", err)
	}

	insertPattern := `
		INSERT INTO recurring_patterns (
			id, opportunity_id, description_pattern, category, frequency,
			avg_amount_minor, min_amount_minor, max_amount_minor, total_amount_minor,
			transaction_count, first_occurrence, last_occurrence, is_mca, confidence_score
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	for _, p := range out.Patterns {
		_, err = tx.Exec(ctx, insertPattern,
			p.ID,
			p.OpportunityID,
			p.DescriptionPattern,
			string(p.Category),
			string(p.Frequency),
			toMinor(p.AvgAmount),
			toMinor(p.MinAmount),
			toMinor(p.MaxAmount),
			toMinor(p.TotalAmount),
			p.TransactionCount,
			p.FirstOccurrence,
			p.LastOccurrence,
			p.IsMCA,
			p.ConfidenceScore,
		)
		if err != nil {
			return fmt.Errorf("failed to insert pattern %s: %w", p.ID, err)
		}
	}

	annotate := `
		UPDATE bank_transactions
		SET is_recurring = $2, recurring_group_id = $3, category = $4,
			is_mca = $5, is_anomaly = $6
		WHERE id = $1`

	for _, txnID := range sortedAnnotationIDs(out.Annotations) {
		ann := out.Annotations[txnID]
		_, err = tx.Exec(ctx, annotate,
			txnID,
			ann.IsRecurring,
			ann.RecurringGroupID,
			string(ann.Category),
			ann.IsMCA,
			ann.IsAnomaly,
		)
		if err != nil {
			return fmt.Errorf("failed to annotate transaction %s: %w", txnID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit pattern swap: %w", err)
	}
	return nil
}

// ListPatterns returns the scope's pattern set. Member ids come from the
// transactions' recurring_group_id annotations, occurrence order.
func (r *PostgresPatternRepository) ListPatterns(ctx context.Context, opportunityID uuid.UUID) ([]patterns.Pattern, error) {
	query := `
		SELECT p.id, p.opportunity_id, p.description_pattern, p.category, p.frequency,
			p.avg_amount_minor, p.min_amount_minor, p.max_amount_minor, p.total_amount_minor,
			p.transaction_count, p.first_occurrence, p.last_occurrence, p.is_mca, p.confidence_score,
			COALESCE(
				(SELECT array_agg(t.id::text ORDER BY t.txn_date, t.id)
				 FROM bank_transactions t
				 WHERE t.recurring_group_id = p.id),
				'{}')
		FROM recurring_patterns p
		WHERE p.opportunity_id = $1
		ORDER BY p.first_occurrence, p.id`

	rows, err := r.db.Query(ctx, query, opportunityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list patterns: %w", err)
	}
	defer rows.Close()

	var result []patterns.Pattern
	for rows.Next() {
		var p patterns.Pattern
		var category, frequency string
		var avgMinor, minMinor, maxMinor, totalMinor int64
		var memberIDs []string
		err := rows.Scan(
			&p.ID,
			&p.OpportunityID,
			&p.DescriptionPattern,
			&category,
			&frequency,
			&avgMinor,
			&minMinor,
			&maxMinor,
			&totalMinor,
			&p.TransactionCount,
			&p.FirstOccurrence,
			&p.LastOccurrence,
			&p.IsMCA,
			&p.ConfidenceScore,
			&memberIDs,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pattern: %w", err)
		}

		p.Category = patterns.Category(category)
		p.Frequency = patterns.Frequency(frequency)
		p.AvgAmount = decimal.New(avgMinor, -2)
		p.MinAmount = decimal.New(minMinor, -2)
		p.MaxAmount = decimal.New(maxMinor, -2)
		p.TotalAmount = decimal.New(totalMinor, -2)

		p.MemberIDs = make([]uuid.UUID, 0, len(memberIDs))
		for _, raw := range memberIDs {
			id, parseErr := uuid.Parse(raw)
			if parseErr != nil {
				return nil, fmt.Errorf("invalid member id %q: %w", raw, parseErr)
			}
			p.MemberIDs = append(p.MemberIDs, id)
		}

		result = append(result, p)
	}
	return result, rows.Err()
}

// ListStaleOpportunities returns scopes whose newest transaction postdates
// their latest pattern run, or that have transactions but no patterns yet.
func (r *PostgresPatternRepository) ListStaleOpportunities(ctx context.Context, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT t.opportunity_id
		FROM bank_transactions t
		GROUP BY t.opportunity_id
		HAVING max(t.created_at) > COALESCE(
			(SELECT max(p.created_at) FROM recurring_patterns p WHERE p.opportunity_id = t.opportunity_id),
			'-infinity'::timestamptz)
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale opportunities: %w", err)
	}
	defer rows.Close()

	var scopes []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan opportunity id: %w", err)
		}
		scopes = append(scopes, id)
	}
	return scopes, rows.Err()
}

// toMinor converts a major-unit decimal to integer cents for storage.
// Averages with repeating expansions round to the nearest cent.
func toMinor(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// sortedAnnotationIDs fixes the annotation write order so runs are
// reproducible and deadlock-free under concurrent scopes.
func sortedAnnotationIDs(annotations map[uuid.UUID]patterns.Annotation) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(annotations))
	for id := range annotations {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}
