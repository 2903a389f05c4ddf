package validation

import (
	"fmt"
	"math"
	"time"

	"behaviorgate/internal/models"
)

// AnalyzeMouse derives movement metrics from a chronological cursor trace
// and checks them against the speed bounds in p. A malformed timestamp is
// returned as an error; every other outcome is a plain verdict.
func AnalyzeMouse(samples []models.CursorSample, p Policy) (bool, models.MouseMetrics, error) {
	if len(samples) < MinCursorSamples {
		return false, models.MouseMetrics{}, nil
	}

	times := make([]time.Time, len(samples))
	for i, sample := range samples {
		t, err := ParseTimestamp(sample.Timestamp)
		if err != nil {
			return false, models.MouseMetrics{}, fmt.Errorf("cursor sample %d: %w", i, err)
		}
		times[i] = t
	}

	var (
		totalDistance float64
		totalTime     float64
		speeds        []float64
		accelerations []float64
	)

	for i := 1; i < len(samples); i++ {
		distance := math.Hypot(samples[i].X-samples[i-1].X, samples[i].Y-samples[i-1].Y)
		elapsed := times[i].Sub(times[i-1]).Seconds()

		totalDistance += distance
		totalTime += elapsed

		if elapsed <= 0 {
			continue
		}

		speed := distance / elapsed
		speeds = append(speeds, speed)

		if n := len(speeds); n >= 2 {
			accelerations = append(accelerations, (speeds[n-1]-speeds[n-2])/elapsed)
		}
	}

	metrics := models.MouseMetrics{
		TotalDistance: totalDistance,
		TotalTime:     totalTime,
		MaxSpeed:      maxOf(speeds),
		Acceleration:  mean(accelerations),
		Entropy:       mean(speeds),
	}
	if totalTime != 0 {
		metrics.AverageSpeed = totalDistance / totalTime
	}

	// Overflowing coordinates cannot be scored or encoded.
	if !finite(metrics.TotalDistance, metrics.TotalTime, metrics.AverageSpeed,
		metrics.MaxSpeed, metrics.Acceleration, metrics.Entropy) {
		return false, models.MouseMetrics{}, nil
	}

	valid := metrics.AverageSpeed >= p.MinAverageSpeed &&
		metrics.AverageSpeed <= p.MaxAverageSpeed &&
		metrics.MaxSpeed <= p.MaxPeakSpeed

	return valid, metrics, nil
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func maxOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return false
		}
	}
	return true
}
