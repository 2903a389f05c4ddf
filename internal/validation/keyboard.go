package validation

import (
	"fmt"
	"time"

	"behaviorgate/internal/models"
)

// keystrokeBase anchors synthesized keystroke timestamps when no event in
// the sequence carries one.
var keystrokeBase = time.Unix(0, 0).UTC()

// SynthesizeTimestamps returns a copy of events in which every event without
// a timestamp is stamped from the summed durations (ms) of the events before
// it. The clock follows the most recent real timestamp; events ahead of the
// first real timestamp count back from it, and a sequence with none starts
// at keystrokeBase.
func SynthesizeTimestamps(events []models.KeystrokeEvent) []models.KeystrokeEvent {
	out := make([]models.KeystrokeEvent, len(events))

	base := keystrokeBase
	var lead float64
	for _, ev := range events {
		if ev.Timestamp != "" {
			if t, err := ParseTimestamp(ev.Timestamp); err == nil {
				base = t.Add(-millis(lead))
			}
			break
		}
		lead += ev.Duration
	}

	var elapsed float64
	for i, ev := range events {
		if ev.Timestamp == "" {
			ev.Timestamp = base.Add(millis(elapsed)).Format(time.RFC3339Nano)
		} else if t, err := ParseTimestamp(ev.Timestamp); err == nil {
			base, elapsed = t, 0
		}
		out[i] = ev
		elapsed += ev.Duration
	}
	return out
}

func millis(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

// AnalyzeKeyboard derives timing metrics from a key sequence. The entropy
// metric is the mean key press duration.
func AnalyzeKeyboard(events []models.KeystrokeEvent, p Policy) (bool, models.KeyboardMetrics, error) {
	if len(events) < MinKeystrokes {
		return false, models.KeyboardMetrics{}, nil
	}

	events = SynthesizeTimestamps(events)

	var pressDurations []float64
	for _, ev := range events {
		if ev.KeyPressDuration != nil {
			pressDurations = append(pressDurations, *ev.KeyPressDuration)
		}
	}

	var intervals []float64
	prev, err := ParseTimestamp(events[0].Timestamp)
	if err != nil {
		return false, models.KeyboardMetrics{}, fmt.Errorf("keystroke 0: %w", err)
	}
	for i := 1; i < len(events); i++ {
		current, err := ParseTimestamp(events[i].Timestamp)
		if err != nil {
			return false, models.KeyboardMetrics{}, fmt.Errorf("keystroke %d: %w", i, err)
		}
		intervals = append(intervals, float64(current.Sub(prev))/float64(time.Millisecond))
		prev = current
	}

	if len(pressDurations) == 0 || len(intervals) == 0 {
		return false, models.KeyboardMetrics{}, nil
	}

	metrics := models.KeyboardMetrics{
		TotalKeystrokes: len(events),
		AverageInterval: mean(intervals),
		Entropy:         mean(pressDurations),
	}
	if !finite(metrics.AverageInterval, metrics.Entropy) {
		return false, models.KeyboardMetrics{}, nil
	}

	return metrics.Entropy >= p.MinKeyPressEntropy, metrics, nil
}
