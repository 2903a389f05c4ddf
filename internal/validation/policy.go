package validation

const (
	// MinCursorSamples is the smallest cursor trace that yields a movement.
	MinCursorSamples = 2
	// MinKeystrokes is the smallest key sequence the keyboard analyzer scores.
	MinKeystrokes = 5
)

// Policy carries the plausibility thresholds applied by the analyzers and
// the session check.
type Policy struct {
	MinAverageSpeed float64
	MaxAverageSpeed float64
	MaxPeakSpeed    float64

	MinKeyPressEntropy float64

	MinTimeOnPage float64
	MinIdleTime   float64

	// FinalMinIdleTime backs the aggregator's last idle-time check and is
	// tuned separately from MinIdleTime.
	FinalMinIdleTime float64
}

func DefaultPolicy() Policy {
	return Policy{
		MinAverageSpeed:    1,
		MaxAverageSpeed:    500,
		MaxPeakSpeed:       1000,
		MinKeyPressEntropy: 1.0,
		MinTimeOnPage:      3,
		MinIdleTime:        3,
		FinalMinIdleTime:   3,
	}
}
