package classify

import (
	"fmt"
	"log/slog"

	"github.com/auri-health/data-pipeline/internal/models"
	"github.com/auri-health/data-pipeline/internal/resolve"
)

// HeartRateClassifier accepts the four observed heart-rate payload shapes:
// a bare array, or an array wrapped in heartRateValues/data/readings.
// Each element is either a [timestamp, value] tuple or an aliased object.
type HeartRateClassifier struct {
	deviceID string
	source   string
	log      *slog.Logger
}

// NewHeartRateClassifier creates a heart-rate classifier.
func NewHeartRateClassifier(deviceID, source string, log *slog.Logger) *HeartRateClassifier {
	return &HeartRateClassifier{deviceID: deviceID, source: source, log: log}
}

// Classify converts one heart-rate file into HeartRateRows. Invalid JSON is
// structural and fails the file; a valid payload in an unrecognized shape is
// logged and yields an empty batch.
func (c *HeartRateClassifier) Classify(userID string, content []byte) (*Batch, Stats, error) {
	var stats Stats
	batch := &Batch{}

	v, err := resolve.DecodeValue(content)
	if err != nil {
		return nil, stats, fmt.Errorf("parsing heart rate payload: %w", err)
	}

	shape := DetectHeartRateShape(content)
	if shape == ShapeUnknown {
		c.log.Warn("could not find heart rate data in any expected shape")
		return batch, stats, nil
	}

	items, deviceID, err := c.extract(v, shape)
	if err != nil {
		return nil, stats, fmt.Errorf("reading heart rate payload: %w", err)
	}
	if deviceID == "" {
		deviceID = c.deviceID
	}

	for i, item := range items {
		row, err := c.reading(userID, deviceID, item)
		if err != nil {
			c.log.Warn("skipping heart rate reading", "index", i, "error", err)
			stats.Failed++
			continue
		}
		if row == nil {
			// Null heart rate: dropped before persistence.
			stats.Skipped++
			continue
		}
		batch.HeartRates = append(batch.HeartRates, *row)
		stats.Succeeded++
	}
	return batch, stats, nil
}

// extract pulls the reading array and any file-level device id out of the
// detected shape.
func (c *HeartRateClassifier) extract(v any, shape PayloadShape) ([]any, string, error) {
	if shape == ShapeArray {
		items, ok := v.([]any)
		if !ok {
			return nil, "", fmt.Errorf("expected array, got %T", v)
		}
		return items, "", nil
	}

	wrapper, ok := v.(*resolve.Record)
	if !ok {
		return nil, "", fmt.Errorf("expected object, got %T", v)
	}

	var field string
	switch shape {
	case ShapeWrappedValues:
		field = "heartRateValues"
	case ShapeWrappedData:
		field = "data"
	case ShapeWrappedReadings:
		field = "readings"
	}
	raw, _ := wrapper.Get(field)
	items, ok := raw.([]any)
	if !ok {
		return nil, "", fmt.Errorf("field %q is not an array", field)
	}

	deviceID, _ := resolve.FirstString(wrapper, "deviceId", "device_id", "device")
	if deviceID == "" {
		if meta, ok := wrapper.Get("metadata"); ok {
			if metaRec, ok := meta.(*resolve.Record); ok {
				deviceID, _ = resolve.FirstString(metaRec, "deviceId")
			}
		}
	}
	return items, deviceID, nil
}

// reading converts one element. A nil row with nil error means the reading
// had no heart-rate value and is dropped.
func (c *HeartRateClassifier) reading(userID, deviceID string, item any) (*models.HeartRateRow, error) {
	switch v := item.(type) {
	case []any:
		// Tuple shape: [timestamp, value]
		if len(v) < 2 {
			return nil, fmt.Errorf("tuple has %d elements, want 2", len(v))
		}
		ts, err := models.ParseInstant(v[0])
		if err != nil {
			return nil, err
		}
		hr, ok := resolve.Number(v[1])
		if !ok {
			return nil, nil
		}
		return &models.HeartRateRow{
			UserID:      userID,
			DeviceID:    deviceID,
			Source:      c.source,
			Timestamp:   ts,
			HeartRate:   hr,
			ReadingType: models.ReadingTypeContinuous,
		}, nil

	case *resolve.Record:
		rawTS, ok := resolve.First(v, "timestamp", "time", "date")
		if !ok {
			return nil, fmt.Errorf("no timestamp field")
		}
		ts, err := models.ParseInstant(rawTS)
		if err != nil {
			return nil, err
		}
		hr, ok := resolve.FirstNumber(v, "heartRate", "value", "bpm")
		if !ok {
			return nil, nil
		}
		dev := deviceID
		if d, ok := resolve.FirstString(v, "deviceId", "device_id", "device"); ok {
			dev = d
		}
		return &models.HeartRateRow{
			UserID:      userID,
			DeviceID:    dev,
			Source:      c.source,
			Timestamp:   ts,
			HeartRate:   hr,
			ReadingType: models.ReadingTypeContinuous,
		}, nil
	}
	return nil, fmt.Errorf("unsupported reading element %T", item)
}
