package classify

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/auri-health/data-pipeline/internal/models"
	"github.com/auri-health/data-pipeline/internal/resolve"
)

// StepsClassifier accepts a bare number (one day's total), an array of
// tuple/object samples, or a singular object. Single daily values merge into
// the day's summary rather than producing reading rows.
type StepsClassifier struct {
	deviceID string
	source   string
	log      *slog.Logger
	// now is injectable for tests; the bare-number variant carries no date
	// of its own, so the export day is assumed to be today.
	now func() time.Time
}

// NewStepsClassifier creates a steps classifier.
func NewStepsClassifier(deviceID, source string, log *slog.Logger) *StepsClassifier {
	return &StepsClassifier{deviceID: deviceID, source: source, log: log, now: time.Now}
}

// Classify converts one steps file. Unrecognized shapes are logged and yield
// an empty batch, not an error.
func (c *StepsClassifier) Classify(userID string, content []byte) (*Batch, Stats, error) {
	var stats Stats
	batch := &Batch{}

	switch DetectStepsShape(content) {
	case ShapeNumber:
		total, err := strconv.ParseFloat(strings.TrimSpace(string(content)), 64)
		if err != nil {
			return nil, stats, fmt.Errorf("parsing steps total: %w", err)
		}
		batch.StepsTotal = &StepsTotal{
			Date:  models.Day(c.now().UTC()),
			Steps: int64(total),
		}
		stats.Succeeded++

	case ShapeArray:
		v, err := resolve.DecodeValue(content)
		if err != nil {
			return nil, stats, fmt.Errorf("parsing steps payload: %w", err)
		}
		items, _ := v.([]any)
		for i, item := range items {
			row, err := c.reading(userID, item)
			if err != nil {
				c.log.Warn("skipping step reading", "index", i, "error", err)
				stats.Failed++
				continue
			}
			batch.StepReadings = append(batch.StepReadings, *row)
			stats.Succeeded++
		}

	case ShapeObject:
		v, err := resolve.DecodeValue(content)
		if err != nil {
			return nil, stats, fmt.Errorf("parsing steps payload: %w", err)
		}
		rec, _ := v.(*resolve.Record)
		steps, ok := resolve.FirstNumber(rec, "steps", "value")
		if !ok {
			c.log.Warn("could not find steps data in expected formats", "keys", rec.Keys())
			return batch, stats, nil
		}
		rawTS, ok := resolve.First(rec, "timestamp", "time", "date")
		if !ok {
			c.log.Warn("steps object has no timestamp field")
			stats.Failed++
			return batch, stats, nil
		}
		ts, err := models.ParseInstant(rawTS)
		if err != nil {
			c.log.Warn("skipping steps object", "error", err)
			stats.Failed++
			return batch, stats, nil
		}
		batch.StepsTotal = &StepsTotal{Date: models.Day(ts), Steps: int64(steps)}
		stats.Succeeded++

	default:
		// Invalid JSON is structural; a valid payload of some other shape
		// just has no steps data.
		if _, err := resolve.DecodeValue(content); err != nil {
			return nil, stats, fmt.Errorf("parsing steps payload: %w", err)
		}
		c.log.Warn("could not find steps data in any expected shape")
	}

	return batch, stats, nil
}

func (c *StepsClassifier) reading(userID string, item any) (*models.StepReadingRow, error) {
	switch v := item.(type) {
	case []any:
		if len(v) < 2 {
			return nil, fmt.Errorf("tuple has %d elements, want 2", len(v))
		}
		ts, err := models.ParseInstant(v[0])
		if err != nil {
			return nil, err
		}
		steps, ok := resolve.Number(v[1])
		if !ok {
			return nil, fmt.Errorf("non-numeric step count")
		}
		return &models.StepReadingRow{
			UserID: userID, DeviceID: c.deviceID, Source: c.source,
			Timestamp: ts, Steps: int64(steps),
		}, nil

	case *resolve.Record:
		steps, ok := resolve.FirstNumber(v, "steps", "value")
		if !ok {
			return nil, fmt.Errorf("no step count field")
		}
		rawTS, ok := resolve.First(v, "timestamp", "time", "date", "startTimeGMT")
		if !ok {
			return nil, fmt.Errorf("no timestamp field")
		}
		ts, err := models.ParseInstant(rawTS)
		if err != nil {
			return nil, err
		}
		dev := c.deviceID
		if d, ok := resolve.FirstString(v, "deviceId", "device_id"); ok {
			dev = d
		}
		return &models.StepReadingRow{
			UserID: userID, DeviceID: dev, Source: c.source,
			Timestamp: ts, Steps: int64(steps),
		}, nil
	}
	return nil, fmt.Errorf("unsupported step element %T", item)
}
