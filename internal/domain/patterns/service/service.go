// Package service orchestrates pattern detection runs: load the scope's
// transactions, run the pure engine, and persist the result atomically.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/go-none-none/ontrak-solutions-capital-fast-sub002/internal/domain/patterns"
	"github.com/go-none-none/ontrak-solutions-capital-fast-sub002/internal/domain/patterns/repository"
	"github.com/go-none-none/ontrak-solutions-capital-fast-sub002/pkg/money"
)

// RunResult is what a completed analysis run hands back to the caller.
type RunResult struct {
	OpportunityID    uuid.UUID
	Patterns         []patterns.Pattern
	Rollup           patterns.Rollup
	Duplicates       []patterns.DuplicateReviewItem
	TransactionCount int
	AnnotatedCount   int
	Elapsed          time.Duration
}

// Service runs the detection engine against persisted transaction history.
// Runs for the same opportunity are serialized with a per-scope lock: the
// engine assumes it owns the full transaction set for the duration of its
// pass, and two interleaved replace operations would clobber each other.
type Service struct {
	repo   repository.PatternRepository
	engine *patterns.Engine
	logger *slog.Logger

	mu         sync.Mutex
	scopeLocks map[uuid.UUID]*sync.Mutex

	indexMu sync.Mutex
	indexes map[uuid.UUID]*patterns.SearchIndex
}

// NewService wires a pattern detection service.
func NewService(repo repository.PatternRepository, engine *patterns.Engine, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		engine:     engine,
		logger:     logger,
		scopeLocks: make(map[uuid.UUID]*sync.Mutex),
		indexes:    make(map[uuid.UUID]*patterns.SearchIndex),
	}
}

// AnalyzeOpportunity runs one full detection pass for a scope and atomically
// replaces its persisted pattern set. An empty transaction history is a
// valid run: it clears any stale patterns and returns a zero rollup.
func (s *Service) AnalyzeOpportunity(ctx context.Context, opportunityID uuid.UUID) (*RunResult, error) {
	lock := s.scopeLock(opportunityID)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()

	txs, err := s.repo.ListTransactions(ctx, opportunityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	out := s.engine.Run(opportunityID, txs)

	if err := s.repo.ReplacePatterns(ctx, out); err != nil {
		return nil, fmt.Errorf("failed to persist pattern run: %w", err)
	}

	s.refreshIndex(opportunityID, out.Patterns)

	result := &RunResult{
		OpportunityID:    opportunityID,
		Patterns:         out.Patterns,
		Rollup:           out.Rollup,
		Duplicates:       out.Duplicates,
		TransactionCount: len(txs),
		AnnotatedCount:   len(out.Annotations),
		Elapsed:          time.Since(start),
	}

	s.logger.Info("pattern analysis completed",
		slog.String("opportunity_id", opportunityID.String()),
		slog.Int("transactions", result.TransactionCount),
		slog.Int("patterns", result.Rollup.RecurringPatternsCount),
		slog.Int("duplicates_for_review", len(result.Duplicates)),
		slog.String("total_mca_payments", money.FormatDecimal(result.Rollup.TotalMCAPayments, money.USD)),
		slog.Duration("elapsed", result.Elapsed),
	)

	return result, nil
}

// ReanalyzeStale re-runs analysis for every scope whose transactions are
// newer than its latest pattern run. A failing scope is logged and skipped;
// one bad scope must not starve the rest.
func (s *Service) ReanalyzeStale(ctx context.Context, limit int) (int, error) {
	scopes, err := s.repo.ListStaleOpportunities(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to find stale opportunities: %w", err)
	}

	completed := 0
	for _, scope := range scopes {
		if ctx.Err() != nil {
			return completed, ctx.Err()
		}
		if _, err := s.AnalyzeOpportunity(ctx, scope); err != nil {
			s.logger.Error("stale reanalysis failed",
				slog.String("opportunity_id", scope.String()),
				slog.Any("error", err),
			)
			continue
		}
		completed++
	}
	return completed, nil
}

// SearchPatterns runs a free-text query over a scope's detected patterns.
// The index from the latest run is used when present; otherwise it is
// rebuilt from the persisted pattern set.
func (s *Service) SearchPatterns(ctx context.Context, opportunityID uuid.UUID, query string, limit int) ([]patterns.PatternSearchResult, error) {
	s.indexMu.Lock()
	idx, ok := s.indexes[opportunityID]
	s.indexMu.Unlock()

	if !ok {
		stored, err := s.repo.ListPatterns(ctx, opportunityID)
		if err != nil {
			return nil, fmt.Errorf("failed to load patterns for search: %w", err)
		}
		rebuilt, err := patterns.NewSearchIndex()
		if err != nil {
			return nil, err
		}
		if err := rebuilt.IndexPatterns(stored); err != nil {
			rebuilt.Close()
			return nil, err
		}
		s.indexMu.Lock()
		if existing, raced := s.indexes[opportunityID]; raced {
			rebuilt.Close()
			idx = existing
		} else {
			s.indexes[opportunityID] = rebuilt
			idx = rebuilt
		}
		s.indexMu.Unlock()
	}

	return idx.Search(query, limit)
}

// ListPatterns exposes the persisted pattern set for a scope.
func (s *Service) ListPatterns(ctx context.Context, opportunityID uuid.UUID) ([]patterns.Pattern, error) {
	return s.repo.ListPatterns(ctx, opportunityID)
}

func (s *Service) scopeLock(opportunityID uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.scopeLocks[opportunityID]
	if !ok {
		lock = &sync.Mutex{}
		s.scopeLocks[opportunityID] = lock
	}
	return lock
}

func (s *Service) refreshIndex(opportunityID uuid.UUID, detected []patterns.Pattern) {
	idx, err := patterns.NewSearchIndex()
	if err != nil {
		s.logger.Warn("pattern search index unavailable", slog.Any("error", err))
		return
	}
	if err := idx.IndexPatterns(detected); err != nil {
		s.logger.Warn("pattern search indexing failed", slog.Any("error", err))
		idx.Close()
		return
	}

	s.indexMu.Lock()
	if old, ok := s.indexes[opportunityID]; ok {
		old.Close()
	}
	s.indexes[opportunityID] = idx
	s.indexMu.Unlock()
}
