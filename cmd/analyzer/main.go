package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/maltedev/arbitrage-scanner/internal/app"
	"github.com/maltedev/arbitrage-scanner/internal/config"
	"github.com/maltedev/arbitrage-scanner/internal/logger"
	"github.com/maltedev/arbitrage-scanner/internal/models"
	"github.com/maltedev/arbitrage-scanner/internal/report"
	"github.com/maltedev/arbitrage-scanner/internal/scraper"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Invalid configuration: %v\n", err)
		return 1
	}

	log := logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stack, err := app.Build(cfg, log)
	if err != nil {
		log.Error("failed to build pipeline", logger.Err(err))
		return 1
	}
	defer func() {
		if err := stack.Close(); err != nil {
			log.Warn("failed to close browser", logger.Err(err))
		}
	}()

	categories := opts.categories
	if opts.autoDiscover {
		log.Info("discovering best-seller categories", "max", opts.maxCategories)
		categories = stack.Scraper.DiscoverCategories(ctx, opts.maxCategories)
	}

	rows, err := stack.Scraper.FindOpportunities(ctx, categories, opts.filters)
	if errors.Is(err, scraper.ErrNoCategories) {
		fmt.Fprintln(stderr, "No categories to scan. Provide URLs or use auto-discover.")
		return 1
	}
	if err != nil {
		log.Error("scan failed", logger.Err(err))
		return 1
	}

	log.Info("scan finished", "opportunities", len(rows), "requests", stack.Gateway.Counts())

	report.Summary(stdout, len(rows), len(categories))
	if len(rows) == 0 {
		return 0
	}

	if err := report.WriteTable(stdout, rows); err != nil {
		log.Error("failed to print table", logger.Err(err))
		return 1
	}

	if opts.writeCSV {
		path, err := writeReport(opts.outputDir, rows, time.Now())
		if err != nil {
			log.Error("failed to write report", logger.Err(err))
			return 1
		}
		fmt.Fprintf(stdout, "Report written to %s\n", path)
	}

	return 0
}

func writeReport(dir string, rows []models.Opportunity, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, report.FileName(now))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report: %w", err)
	}

	if err := report.WriteCSV(f, rows); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close report: %w", err)
	}

	slog.Debug("report written", "path", path, "rows", len(rows))
	return path, nil
}
