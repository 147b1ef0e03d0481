// Command analyzer detects and classifies recurring payment patterns in
// merchant bank-transaction histories.
//
// Modes:
//
//	analyzer -file statement.csv          analyze one statement file, no database
//	analyzer -opportunity <uuid>          analyze one stored opportunity
//	analyzer -daemon                      run the nightly re-analysis scheduler
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/go-none-none/ontrak-solutions-capital-fast-sub002/internal/domain/ingest"
	"github.com/go-none-none/ontrak-solutions-capital-fast-sub002/internal/domain/patterns"
	"github.com/go-none-none/ontrak-solutions-capital-fast-sub002/pkg/config"
	"github.com/go-none-none/ontrak-solutions-capital-fast-sub002/pkg/money"
)

func main() {
	var (
		filePath      = flag.String("file", "", "analyze a statement file (csv or xlsx) without a database")
		opportunityID = flag.String("opportunity", "", "analyze one stored opportunity by id")
		daemon        = flag.Bool("daemon", false, "run the re-analysis scheduler")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging.Level)

	switch {
	case *filePath != "":
		if err := analyzeFile(*filePath, cfg, logger); err != nil {
			logger.Error("file analysis failed", slog.Any("error", err))
			os.Exit(1)
		}
	case *opportunityID != "":
		if err := analyzeOpportunity(*opportunityID, cfg, logger); err != nil {
			logger.Error("opportunity analysis failed", slog.Any("error", err))
			os.Exit(1)
		}
	case *daemon:
		if err := runDaemon(cfg, logger); err != nil {
			logger.Error("daemon failed", slog.Any("error", err))
			os.Exit(1)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// analyzeFile runs the engine over a statement file without touching the
// database and prints the detected patterns.
func analyzeFile(path string, cfg *config.Config, logger *slog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open statement: %w", err)
	}
	defer f.Close()

	scope := uuid.New()

	var result *ingest.LoadResult
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		result, err = ingest.NewXLSXLoader(ingest.Options{}).Load(f, scope)
	default:
		result, err = ingest.NewCSVLoader(ingest.Options{}).Load(f, scope)
	}
	if err != nil {
		return err
	}

	for _, rowErr := range result.Errors {
		logger.Warn("skipped statement row", slog.String("detail", rowErr.Error()))
	}
	logger.Info("statement loaded",
		slog.Int("rows", result.TotalRows),
		slog.Int("loaded", result.LoadedRows),
		slog.Int("skipped", result.SkippedRows),
		slog.Int("errors", len(result.Errors)),
	)

	engine := newEngine(cfg.Engine)
	out := engine.Run(scope, result.Transactions)
	printRun(out)
	return nil
}

func analyzeOpportunity(rawID string, cfg *config.Config, logger *slog.Logger) error {
	scope, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid opportunity id %q: %w", rawID, err)
	}

	deps, err := InitDependencies(cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Cleanup()

	result, err := deps.PatternService.AnalyzeOpportunity(context.Background(), scope)
	if err != nil {
		return err
	}

	printRun(&patterns.RunOutput{
		OpportunityID: result.OpportunityID,
		Patterns:      result.Patterns,
		Rollup:        result.Rollup,
		Duplicates:    result.Duplicates,
	})
	return nil
}

func runDaemon(cfg *config.Config, logger *slog.Logger) error {
	deps, err := InitDependencies(cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Cleanup()

	if !cfg.Scheduler.Enabled {
		return fmt.Errorf("scheduler is disabled; set SCHEDULER_ENABLED=true")
	}
	if err := deps.Scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("shutting down", slog.String("signal", sig.String()))
	return nil
}

func printRun(out *patterns.RunOutput) {
	fmt.Printf("opportunity %s: %d recurring patterns, total MCA payments %s\n\n",
		out.OpportunityID,
		out.Rollup.RecurringPatternsCount,
		money.FormatDecimal(out.Rollup.TotalMCAPayments, money.USD),
	)

	for _, p := range out.Patterns {
		fmt.Printf("%-40s  %-12s  %-9s  x%-3d  avg %-12s  conf %d%%",
			p.DescriptionPattern,
			p.Category,
			p.Frequency,
			p.TransactionCount,
			money.FormatDecimal(p.AvgAmount, money.USD),
			p.ConfidenceScore,
		)
		if p.IsMCA {
			fmt.Print("  [MCA]")
		}
		fmt.Println()
	}

	if len(out.Duplicates) > 0 {
		fmt.Println("\npossible duplicate patterns:")
		for _, d := range out.Duplicates {
			fmt.Printf("  %s\n", d.Message)
		}
	}
}
