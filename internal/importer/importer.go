// Package importer drives one import run: list a user's export files in the
// storage bucket, classify each into canonical rows, and persist them.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/auri-health/data-pipeline/internal/bucket"
	"github.com/auri-health/data-pipeline/internal/classify"
	"github.com/auri-health/data-pipeline/internal/models"
	"github.com/auri-health/data-pipeline/internal/storage"
)

// ObjectStore is the bucket surface the importer needs.
type ObjectStore interface {
	List(ctx context.Context, prefix string) ([]bucket.Object, error)
	Download(ctx context.Context, path string) ([]byte, error)
}

// Store is the database surface the importer needs.
type Store interface {
	InsertActivities(ctx context.Context, rows []models.ActivityRow) (int64, error)
	InsertHeartRates(ctx context.Context, rows []models.HeartRateRow) (int64, error)
	InsertStepReadings(ctx context.Context, rows []models.StepReadingRow) (int64, error)
	InsertSleepStages(ctx context.Context, rows []models.SleepStageRow) (int64, error)
	InsertSleepMovements(ctx context.Context, rows []models.SleepMovementRow) (int64, error)
	InsertSleepLevels(ctx context.Context, rows []models.SleepLevelRow) (int64, error)
	InsertSleepHeartRates(ctx context.Context, rows []models.SleepHeartRateRow) (int64, error)
	MergeStepsTotal(ctx context.Context, userID, deviceID, source string, date time.Time, steps int64) error
	StartImportLog(ctx context.Context, userID, source string) (int64, error)
	FinishImportLog(ctx context.Context, id int64, log storage.ImportLog) error
}

// Options controls one import run.
type Options struct {
	UserID     string
	DeviceID   string
	Source     string
	Historical bool   // process every file, not just today's
	DumpDir    string // when set, write raw payloads here instead of importing
}

// Stats tracks import progress across one run.
type Stats struct {
	FilesProcessed int
	FilesFailed    int
	FilesSkipped   int

	ActivitiesInserted      int64
	HeartRatesInserted      int64
	StepReadingsInserted    int64
	SleepStagesInserted     int64
	SleepMovementsInserted  int64
	SleepLevelsInserted     int64
	SleepHeartRatesInserted int64
	StepsTotalsMerged       int

	RecordsSucceeded int
	RecordsFailed    int
	RecordsSkipped   int
}

// RowsInserted sums every table's insert count.
func (s *Stats) RowsInserted() int64 {
	return s.ActivitiesInserted + s.HeartRatesInserted + s.StepReadingsInserted +
		s.SleepStagesInserted + s.SleepMovementsInserted + s.SleepLevelsInserted +
		s.SleepHeartRatesInserted
}

// Importer pulls a user's export files from the bucket into the database.
type Importer struct {
	objects ObjectStore
	store   Store
	state   *StateDB
	log     *slog.Logger
	opts    Options
	stats   Stats

	now func() time.Time
}

// New creates an Importer. state may be nil, in which case no processed-file
// skipping happens.
func New(objects ObjectStore, store Store, state *StateDB, log *slog.Logger, opts Options) *Importer {
	return &Importer{
		objects: objects,
		store:   store,
		state:   state,
		log:     log,
		opts:    opts,
		now:     time.Now,
	}
}

// Run executes the import. Per-file failures are logged and counted; only a
// failure to list the bucket aborts the run.
func (imp *Importer) Run(ctx context.Context) (*Stats, error) {
	started := imp.now()

	logID, err := imp.store.StartImportLog(ctx, imp.opts.UserID, imp.opts.Source)
	if err != nil {
		// The log row is bookkeeping; the import itself still proceeds.
		imp.log.Warn("could not start import log", "error", err)
	}

	runErr := imp.run(ctx)
	imp.finishLog(ctx, logID, started, runErr)
	return &imp.stats, runErr
}

func (imp *Importer) run(ctx context.Context) error {
	prefix := imp.opts.UserID + "/"
	objects, err := imp.objects.List(ctx, prefix)
	if err != nil {
		return fmt.Errorf("listing bucket objects: %w", err)
	}
	imp.log.Info("listed export files", "user_id", imp.opts.UserID, "count", len(objects))

	for _, obj := range objects {
		if !imp.wantsObject(obj) {
			imp.stats.FilesSkipped++
			continue
		}
		if err := imp.processObject(ctx, prefix+obj.Name); err != nil {
			imp.log.Warn("file import failed", "file", obj.Name, "error", err)
			imp.stats.FilesFailed++
		}
	}
	return nil
}

// nameDate matches the export date embedded in file names like
// heart-rate-2024-01-15.json.
var nameDate = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// wantsObject decides whether an object belongs to this run. Daily runs only
// touch today's files, judged by the date in the file name so that an export
// uploaded late still lands on its own day; the object's modification day is
// the fallback for undated names. Historical and dump runs take everything.
func (imp *Importer) wantsObject(obj bucket.Object) bool {
	if strings.HasPrefix(obj.Name, "user_summary_") {
		// Daily summary files are the aggregator's input, not the importer's.
		return false
	}
	if imp.opts.Historical || imp.opts.DumpDir != "" {
		return true
	}
	if date := nameDate.FindString(obj.Name); date != "" {
		return date == imp.now().UTC().Format("2006-01-02")
	}
	modified := obj.UpdatedAt
	if modified == nil {
		modified = obj.CreatedAt
	}
	if modified == nil {
		return true
	}
	return models.Day(*modified).Equal(models.Day(imp.now()))
}

func (imp *Importer) processObject(ctx context.Context, path string) error {
	content, err := imp.objects.Download(ctx, path)
	if err != nil {
		return fmt.Errorf("downloading: %w", err)
	}

	if imp.opts.DumpDir != "" {
		return imp.dump(path, content)
	}

	hash := HashBytes(content)
	if imp.state != nil {
		done, err := imp.state.IsProcessed(path, hash)
		if err != nil {
			return fmt.Errorf("checking state: %w", err)
		}
		if done {
			imp.log.Debug("already imported", "file", path)
			imp.stats.FilesSkipped++
			return nil
		}
	}

	name := filepath.Base(path)
	classifier, ok := classify.ForFile(name, imp.opts.DeviceID, imp.opts.Source, imp.log)
	if !ok {
		imp.log.Warn("no classifier for file", "file", name)
		imp.stats.FilesSkipped++
		return nil
	}

	batch, recStats, err := classifier.Classify(imp.opts.UserID, content)
	if err != nil {
		return fmt.Errorf("classifying: %w", err)
	}
	imp.stats.RecordsSucceeded += recStats.Succeeded
	imp.stats.RecordsFailed += recStats.Failed
	imp.stats.RecordsSkipped += recStats.Skipped

	if err := imp.persist(ctx, name, batch); err != nil {
		return err
	}

	if imp.state != nil {
		if err := imp.state.MarkProcessed(path, hash); err != nil {
			imp.log.Warn("could not record processed file", "file", path, "error", err)
		}
	}
	imp.stats.FilesProcessed++
	return nil
}

// persist writes every populated slice of a batch, logging per-table counts.
func (imp *Importer) persist(ctx context.Context, name string, batch *classify.Batch) error {
	type insert struct {
		table string
		count *int64
		run   func() (int64, error)
	}
	inserts := []insert{
		{"user_activities", &imp.stats.ActivitiesInserted,
			func() (int64, error) { return imp.store.InsertActivities(ctx, batch.Activities) }},
		{"heart_rate_readings", &imp.stats.HeartRatesInserted,
			func() (int64, error) { return imp.store.InsertHeartRates(ctx, batch.HeartRates) }},
		{"step_readings", &imp.stats.StepReadingsInserted,
			func() (int64, error) { return imp.store.InsertStepReadings(ctx, batch.StepReadings) }},
		{"sleep_stages", &imp.stats.SleepStagesInserted,
			func() (int64, error) { return imp.store.InsertSleepStages(ctx, batch.SleepStages) }},
		{"sleep_movements", &imp.stats.SleepMovementsInserted,
			func() (int64, error) { return imp.store.InsertSleepMovements(ctx, batch.SleepMovements) }},
		{"sleep_levels", &imp.stats.SleepLevelsInserted,
			func() (int64, error) { return imp.store.InsertSleepLevels(ctx, batch.SleepLevels) }},
		{"sleep_heart_rates", &imp.stats.SleepHeartRatesInserted,
			func() (int64, error) { return imp.store.InsertSleepHeartRates(ctx, batch.SleepHeartRates) }},
	}

	for _, ins := range inserts {
		inserted, err := ins.run()
		if err != nil {
			return fmt.Errorf("inserting into %s: %w", ins.table, err)
		}
		if inserted > 0 {
			imp.log.Info("inserted rows", "file", name, "table", ins.table, "rows", inserted)
		}
		*ins.count += inserted
	}

	if batch.StepsTotal != nil {
		err := imp.store.MergeStepsTotal(ctx, imp.opts.UserID, imp.opts.DeviceID,
			imp.opts.Source, batch.StepsTotal.Date, batch.StepsTotal.Steps)
		if err != nil {
			return fmt.Errorf("merging steps total: %w", err)
		}
		imp.stats.StepsTotalsMerged++
		imp.log.Info("merged daily step total", "file", name,
			"date", batch.StepsTotal.Date.Format("2006-01-02"), "steps", batch.StepsTotal.Steps)
	}
	return nil
}

// dump writes a raw payload under DumpDir, mirroring the bucket layout.
func (imp *Importer) dump(path string, content []byte) error {
	dest := filepath.Join(imp.opts.DumpDir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating dump dir: %w", err)
	}
	if err := os.WriteFile(dest, content, 0o644); err != nil {
		return fmt.Errorf("writing dump file: %w", err)
	}
	imp.stats.FilesProcessed++
	return nil
}

func (imp *Importer) finishLog(ctx context.Context, logID int64, started time.Time, runErr error) {
	if logID == 0 {
		return
	}
	entry := storage.ImportLog{
		Status:         "completed",
		FilesProcessed: imp.stats.FilesProcessed,
		FilesFailed:    imp.stats.FilesFailed,
		FilesSkipped:   imp.stats.FilesSkipped,
		RowsInserted:   imp.stats.RowsInserted(),
		DurationMS:     imp.now().Sub(started).Milliseconds(),
	}
	if runErr != nil {
		entry.Status = "failed"
		msg := runErr.Error()
		entry.ErrorMessage = &msg
	}
	if err := imp.store.FinishImportLog(ctx, logID, entry); err != nil {
		imp.log.Warn("could not finish import log", "error", err)
	}
}
