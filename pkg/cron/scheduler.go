// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/go-none-none/ontrak-solutions-capital-fast-sub002/internal/domain/patterns/service"
	"github.com/go-none-none/ontrak-solutions-capital-fast-sub002/pkg/config"
)

// Scheduler re-runs pattern analysis for opportunities whose transaction
// history has changed since their last run.
type Scheduler struct {
	cron     *cron.Cron
	patterns *service.Service
	cfg      config.SchedulerConfig
	logger   *slog.Logger
}

// NewScheduler creates a new job scheduler.
func NewScheduler(patterns *service.Service, cfg config.SchedulerConfig, logger *slog.Logger) *Scheduler {
	// Standard 5-field cron format, no seconds.
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:     c,
		patterns: patterns,
		cfg:      cfg,
		logger:   logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.cfg.Spec, s.reanalyzeStaleOpportunities)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.String("spec", s.cfg.Spec),
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers the stale re-analysis (for testing/admin).
func (s *Scheduler) RunNow() {
	go s.reanalyzeStaleOpportunities()
}

func (s *Scheduler) reanalyzeStaleOpportunities() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	s.logger.Info("starting stale opportunity re-analysis")

	completed, err := s.patterns.ReanalyzeStale(ctx, s.cfg.BatchLimit)
	if err != nil {
		s.logger.Error("stale opportunity re-analysis failed", slog.Any("error", err))
		return
	}

	s.logger.Info("stale opportunity re-analysis completed",
		slog.Int("opportunities_analyzed", completed),
	)
}
