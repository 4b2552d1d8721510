package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/auri-health/data-pipeline/internal/bucket"
	"github.com/auri-health/data-pipeline/internal/config"
	"github.com/auri-health/data-pipeline/internal/importer"
	"github.com/auri-health/data-pipeline/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	userID := flag.String("user", "", "user id to import (overrides config)")
	historical := flag.Bool("historical", false, "process every file, not just today's")
	dumpDir := flag.String("dump", "", "write raw payloads to this directory instead of importing")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *userID != "" {
		cfg.Import.UserID = *userID
	}
	if cfg.Import.UserID == "" {
		log.Error("no user id: set import.user_id or pass -user")
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

	objects := bucket.New(cfg.Storage.URL, cfg.Storage.ServiceKey, cfg.Storage.Bucket)

	var state *importer.StateDB
	if cfg.Import.StateDir != "" && *dumpDir == "" {
		state, err = importer.OpenStateDB(cfg.Import.StateDir)
		if err != nil {
			log.Error("failed to open state db", "error", err)
			os.Exit(1)
		}
		defer state.Close()
	}

	imp := importer.New(objects, db, state, log, importer.Options{
		UserID:     cfg.Import.UserID,
		DeviceID:   cfg.Import.DeviceID,
		Source:     cfg.Import.Source,
		Historical: *historical,
		DumpDir:    *dumpDir,
	})

	stats, err := imp.Run(ctx)
	if err != nil {
		log.Error("import failed", "error", err)
		printStats(log, stats)
		os.Exit(1)
	}

	printStats(log, stats)
	log.Info("import complete")
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	log.Info("import stats",
		"files_processed", stats.FilesProcessed,
		"files_failed", stats.FilesFailed,
		"files_skipped", stats.FilesSkipped,
		"activities_inserted", stats.ActivitiesInserted,
		"heart_rates_inserted", stats.HeartRatesInserted,
		"step_readings_inserted", stats.StepReadingsInserted,
		"sleep_stages_inserted", stats.SleepStagesInserted,
		"sleep_movements_inserted", stats.SleepMovementsInserted,
		"sleep_levels_inserted", stats.SleepLevelsInserted,
		"sleep_heart_rates_inserted", stats.SleepHeartRatesInserted,
		"steps_totals_merged", stats.StepsTotalsMerged,
		"records_succeeded", stats.RecordsSucceeded,
		"records_failed", stats.RecordsFailed,
		"records_skipped", stats.RecordsSkipped,
	)
}
