// Package classify turns one raw export file's JSON into canonical rows for
// a single measurement family.
package classify

import (
	"log/slog"
	"strings"
	"time"

	"github.com/auri-health/data-pipeline/internal/models"
)

// Stats counts per-record outcomes for one classified file. Record-level
// failures are recovered locally; only a structural failure of the whole
// payload surfaces as an error from Classify.
type Stats struct {
	Succeeded int
	Failed    int
	Skipped   int
}

// StepsTotal is a single-day step total. It does not produce reading rows;
// it merges into that day's daily summary instead.
type StepsTotal struct {
	Date  time.Time
	Steps int64
}

// Batch is the canonical output of one classified file.
type Batch struct {
	Activities      []models.ActivityRow
	HeartRates      []models.HeartRateRow
	StepReadings    []models.StepReadingRow
	SleepStages     []models.SleepStageRow
	SleepMovements  []models.SleepMovementRow
	SleepLevels     []models.SleepLevelRow
	SleepHeartRates []models.SleepHeartRateRow
	StepsTotal      *StepsTotal
}

// Classifier converts one file's content into canonical rows for a user.
type Classifier interface {
	Classify(userID string, content []byte) (*Batch, Stats, error)
}

// ForFile selects a classifier by filename substring. First match wins;
// unmatched names are the caller's problem (skipped with a warning).
func ForFile(name, deviceID, source string, log *slog.Logger) (Classifier, bool) {
	switch {
	case strings.Contains(name, "activities-"):
		return NewActivityClassifier(deviceID, source, log), true
	case strings.Contains(name, "heart-rate-"):
		return NewHeartRateClassifier(deviceID, source, log), true
	case strings.Contains(name, "sleep-"):
		return NewSleepClassifier(deviceID, source, log), true
	case strings.Contains(name, "steps-"):
		return NewStepsClassifier(deviceID, source, log), true
	}
	return nil, false
}
