package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/auri-health/data-pipeline/internal/config"
	"github.com/auri-health/data-pipeline/internal/storage"
	"github.com/auri-health/data-pipeline/internal/summary"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Optional positional dates: auri-summaries [start [end]], defaulting to
	// today for both.
	today := time.Now().UTC().Truncate(24 * time.Hour)
	start, err := parseDate(flag.Arg(0), today)
	if err != nil {
		log.Error("invalid start date", "value", flag.Arg(0), "error", err)
		os.Exit(1)
	}
	end, err := parseDate(flag.Arg(1), start)
	if err != nil {
		log.Error("invalid end date", "value", flag.Arg(1), "error", err)
		os.Exit(1)
	}
	if end.Before(start) {
		log.Error("end date is before start date",
			"start", start.Format("2006-01-02"), "end", end.Format("2006-01-02"))
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	dsn := cfg.Database.DSN()

	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	ctx := context.Background()

	db, err := storage.New(ctx, dsn, log)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	agg := summary.New(db, log, summary.Options{
		UserID:     cfg.Import.UserID,
		DeviceID:   cfg.Import.DeviceID,
		Source:     cfg.Import.Source,
		InputDir:   cfg.Summaries.InputDir,
		ArchiveDir: cfg.Summaries.ArchiveDir,
	})

	stats, err := agg.Run(ctx, start, end)
	if err != nil {
		log.Error("aggregation failed", "error", err)
		os.Exit(1)
	}

	log.Info("aggregation stats",
		"days_summarized", stats.DaysSummarized,
		"files_processed", stats.FilesProcessed,
		"files_archived", stats.FilesArchived,
		"failures", stats.Failures,
	)
	log.Info("aggregation complete")
}

func parseDate(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		return fallback, nil
	}
	return time.Parse("2006-01-02", s)
}
