package classify

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/auri-health/data-pipeline/internal/models"
	"github.com/auri-health/data-pipeline/internal/resolve"
)

// sleepStageAliases maps each stage to its candidate duration fields, in
// priority order.
var sleepStageAliases = []struct {
	stage   string
	aliases []string
}{
	{models.StageDeep, []string{"deepSleepSeconds", "deepSleep"}},
	{models.StageLight, []string{"lightSleepSeconds", "lightSleep"}},
	{models.StageREM, []string{"remSleepSeconds", "remSleep"}},
	{models.StageAwake, []string{"awakeSleepSeconds", "awakeSleep"}},
}

// startTimeCandidates is the priority order for resolving a sleep session's
// start instant before falling back to the heuristic key scan.
var startTimeCandidates = []string{"sleepStartTimestampGMT", "startTimeGMT", "startTimeLocal"}

// SleepClassifier handles bare objects, arrays, sleepData/data wrappers, and
// the richer composite shape that carries movement, level, and heart-rate
// sub-series alongside the dailySleepDTO.
type SleepClassifier struct {
	deviceID string
	source   string
	log      *slog.Logger
}

// NewSleepClassifier creates a sleep classifier.
func NewSleepClassifier(deviceID, source string, log *slog.Logger) *SleepClassifier {
	return &SleepClassifier{deviceID: deviceID, source: source, log: log}
}

// Classify converts one sleep file into stage, movement, level, and
// heart-rate rows. A record without a resolvable start time fails; a record
// with zero valid stages counts as skipped.
func (c *SleepClassifier) Classify(userID string, content []byte) (*Batch, Stats, error) {
	var stats Stats

	records, err := c.records(content)
	if err != nil {
		return nil, stats, err
	}

	batch := &Batch{}
	for i, rec := range records {
		switch c.record(userID, rec, batch) {
		case recordOK:
			stats.Succeeded++
		case recordSkipped:
			stats.Skipped++
		case recordFailed:
			c.log.Warn("no valid timestamp found in sleep record", "index", i)
			stats.Failed++
		}
	}
	return batch, stats, nil
}

// records normalizes every supported payload shape into a flat record list.
func (c *SleepClassifier) records(content []byte) ([]*resolve.Record, error) {
	shape := DetectSleepShape(content)
	if shape == ShapeUnknown {
		return nil, fmt.Errorf("unparseable sleep payload")
	}

	v, err := resolve.DecodeValue(content)
	if err != nil {
		return nil, fmt.Errorf("parsing sleep payload: %w", err)
	}

	switch shape {
	case ShapeArray:
		items, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("expected array, got %T", v)
		}
		return onlyRecords(items), nil

	case ShapeWrappedSleepData, ShapeWrappedData:
		wrapper, ok := v.(*resolve.Record)
		if !ok {
			return nil, fmt.Errorf("expected object, got %T", v)
		}
		field := "sleepData"
		if shape == ShapeWrappedData {
			field = "data"
		}
		raw, _ := wrapper.Get(field)
		items, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("field %q is not an array", field)
		}
		return onlyRecords(items), nil

	case ShapeComposite:
		wrapper, ok := v.(*resolve.Record)
		if !ok {
			return nil, fmt.Errorf("expected object, got %T", v)
		}
		return []*resolve.Record{flattenComposite(wrapper)}, nil

	default: // ShapeObject
		rec, ok := v.(*resolve.Record)
		if !ok {
			return nil, fmt.Errorf("expected object, got %T", v)
		}
		return []*resolve.Record{rec}, nil
	}
}

func onlyRecords(items []any) []*resolve.Record {
	out := make([]*resolve.Record, 0, len(items))
	for _, it := range items {
		if rec, ok := it.(*resolve.Record); ok {
			out = append(out, rec)
		}
	}
	return out
}

// flattenComposite merges the dailySleepDTO with its sibling sub-series into
// one record so the extraction path is the same for every shape.
func flattenComposite(wrapper *resolve.Record) *resolve.Record {
	out := resolve.NewRecord()
	if dto, ok := wrapper.Get("dailySleepDTO"); ok {
		if dtoRec, ok := dto.(*resolve.Record); ok {
			for _, k := range dtoRec.Keys() {
				v, _ := dtoRec.Get(k)
				out.Set(k, v)
			}
		}
	}
	if mv, ok := wrapper.Get("sleepMovement"); ok {
		out.Set("movementData", mv)
	}
	for _, k := range []string{"sleepLevels", "sleepHeartRate", "restingHeartRate", "skinTempDataExists"} {
		if v, ok := wrapper.Get(k); ok {
			out.Set(k, v)
		}
	}
	return out
}

type recordStatus int

const (
	recordOK recordStatus = iota
	recordSkipped
	recordFailed
)

func (c *SleepClassifier) record(userID string, rec *resolve.Record, batch *Batch) recordStatus {
	start, ok := c.resolveStart(rec)
	if !ok {
		return recordFailed
	}

	sleepID := models.SleepID(userID, start)
	restingHR := optNumber(rec, "restingHeartRate")
	skinTemp := false
	if v, ok := rec.Get("skinTempDataExists"); ok {
		skinTemp, _ = v.(bool)
	}

	var stageCount int
	for _, def := range sleepStageAliases {
		dur, ok := resolve.FirstNumber(rec, def.aliases...)
		if !ok || dur <= 0 {
			// Zero or non-numeric durations are omitted, never stored as zero.
			continue
		}
		batch.SleepStages = append(batch.SleepStages, models.SleepStageRow{
			UserID:           userID,
			DeviceID:         c.deviceID,
			Source:           c.source,
			SleepID:          sleepID,
			Timestamp:        start,
			Stage:            def.stage,
			DurationSeconds:  dur,
			RestingHeartRate: restingHR,
			HasSkinTempData:  skinTemp,
		})
		stageCount++
	}

	c.movements(userID, sleepID, start, rec, batch)
	c.levels(userID, sleepID, rec, batch)
	c.sleepHeartRates(userID, sleepID, rec, batch)

	if stageCount == 0 {
		return recordSkipped
	}
	return recordOK
}

// resolveStart tries the known start-time fields in priority order, then
// falls back to scanning every time/date-looking key in insertion order.
func (c *SleepClassifier) resolveStart(rec *resolve.Record) (time.Time, bool) {
	for _, key := range startTimeCandidates {
		v, ok := rec.Get(key)
		if !ok || v == nil {
			continue
		}
		t, err := models.ParseInstant(v)
		if err != nil {
			c.log.Warn("failed to parse sleep start field", "field", key, "error", err)
			continue
		}
		return t, true
	}
	for _, cand := range resolve.ScanKeys(rec, "time", "date") {
		t, err := models.ParseInstant(cand.Value)
		if err != nil {
			continue
		}
		c.log.Info("resolved sleep start via heuristic scan", "field", cand.Key)
		return t, true
	}
	return time.Time{}, false
}

// movements extracts the movement sub-series. Object samples carry their own
// start instant; bare numeric samples are spread proportionally across the
// session duration.
func (c *SleepClassifier) movements(userID, sleepID string, start time.Time, rec *resolve.Record, batch *Batch) {
	raw, ok := resolve.First(rec, "movementData", "sleepMovement")
	if !ok {
		return
	}
	items, ok := raw.([]any)
	if !ok || len(items) == 0 {
		return
	}

	duration, _ := resolve.FirstNumber(rec, "durationInSeconds", "sleepTimeSeconds")
	step := time.Duration(0)
	if duration > 0 {
		step = time.Duration(duration/float64(len(items))*1000) * time.Millisecond
	}

	for i, item := range items {
		switch v := item.(type) {
		case *resolve.Record:
			rawTS, ok := resolve.First(v, "startGMT", "timestamp", "time")
			if !ok {
				continue
			}
			ts, err := models.ParseInstant(rawTS)
			if err != nil {
				continue
			}
			level, ok := resolve.FirstNumber(v, "activityLevel", "value")
			if !ok {
				continue
			}
			batch.SleepMovements = append(batch.SleepMovements, models.SleepMovementRow{
				UserID: userID, DeviceID: c.deviceID, Source: c.source,
				SleepID: sleepID, Timestamp: ts, MovementValue: level,
			})
		default:
			if step == 0 {
				// Without a session duration the samples cannot be placed on
				// the timeline; a shared timestamp would collapse them into
				// one row at the conflict key.
				continue
			}
			val, ok := resolve.Number(item)
			if !ok {
				continue
			}
			batch.SleepMovements = append(batch.SleepMovements, models.SleepMovementRow{
				UserID: userID, DeviceID: c.deviceID, Source: c.source,
				SleepID: sleepID, Timestamp: start.Add(time.Duration(i) * step), MovementValue: val,
			})
		}
	}
}

func (c *SleepClassifier) levels(userID, sleepID string, rec *resolve.Record, batch *Batch) {
	raw, ok := rec.Get("sleepLevels")
	if !ok {
		return
	}
	items, ok := raw.([]any)
	if !ok {
		return
	}
	for _, item := range items {
		lv, ok := item.(*resolve.Record)
		if !ok {
			continue
		}
		rawStart, ok1 := lv.Get("startGMT")
		rawEnd, ok2 := lv.Get("endGMT")
		if !ok1 || !ok2 {
			continue
		}
		startT, err1 := models.ParseInstant(rawStart)
		endT, err2 := models.ParseInstant(rawEnd)
		if err1 != nil || err2 != nil {
			continue
		}
		level, _ := resolve.FirstNumber(lv, "activityLevel")
		batch.SleepLevels = append(batch.SleepLevels, models.SleepLevelRow{
			UserID: userID, DeviceID: c.deviceID, Source: c.source,
			SleepID: sleepID, StartTime: startT, EndTime: endT, ActivityLevel: level,
		})
	}
}

func (c *SleepClassifier) sleepHeartRates(userID, sleepID string, rec *resolve.Record, batch *Batch) {
	raw, ok := rec.Get("sleepHeartRate")
	if !ok {
		return
	}
	items, ok := raw.([]any)
	if !ok {
		return
	}
	for _, item := range items {
		hr, ok := item.(*resolve.Record)
		if !ok {
			continue
		}
		rawTS, ok := resolve.First(hr, "startGMT", "timestamp", "time")
		if !ok {
			continue
		}
		ts, err := models.ParseInstant(rawTS)
		if err != nil {
			continue
		}
		value, ok := resolve.FirstNumber(hr, "value", "heartRate")
		if !ok {
			continue
		}
		batch.SleepHeartRates = append(batch.SleepHeartRates, models.SleepHeartRateRow{
			UserID: userID, DeviceID: c.deviceID, Source: c.source,
			SleepID: sleepID, Timestamp: ts, HeartRate: value,
		})
	}
}
