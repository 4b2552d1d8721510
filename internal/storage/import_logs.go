package storage

import (
	"context"
	"fmt"
	"time"
)

// ImportLog is one row in import_logs tracking a single import run.
type ImportLog struct {
	ID             int64
	UserID         string
	Source         string
	Status         string
	FilesProcessed int
	FilesFailed    int
	FilesSkipped   int
	RowsInserted   int64
	DurationMS     int64
	ErrorMessage   *string
	StartedAt      time.Time
}

// StartImportLog records the beginning of an import run and returns its id.
func (db *DB) StartImportLog(ctx context.Context, userID, source string) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO import_logs (user_id, source, status, started_at)
		 VALUES ($1, $2, 'running', now())
		 RETURNING id`,
		userID, source).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("starting import log: %w", err)
	}
	return id, nil
}

// FinishImportLog records the outcome of an import run.
func (db *DB) FinishImportLog(ctx context.Context, id int64, log ImportLog) error {
	_, err := db.Pool.Exec(ctx,
		`UPDATE import_logs
		 SET status = $2, files_processed = $3, files_failed = $4, files_skipped = $5,
		     rows_inserted = $6, duration_ms = $7, error_message = $8, finished_at = now()
		 WHERE id = $1`,
		id, log.Status, log.FilesProcessed, log.FilesFailed, log.FilesSkipped,
		log.RowsInserted, log.DurationMS, log.ErrorMessage)
	if err != nil {
		return fmt.Errorf("finishing import log: %w", err)
	}
	return nil
}
