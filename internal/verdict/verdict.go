package verdict

import (
	"errors"
	"fmt"
	"strings"

	"behaviorgate/internal/models"
	"behaviorgate/internal/validation"
)

var ErrMissingBehaviorData = errors.New("missing user behavior data")

// Input is everything a single verification looks at.
type Input struct {
	IPAddress string
	UserAgent string
	Behavior  *models.BehaviorData
}

// Evaluation is the folded outcome of every check for one request.
type Evaluation struct {
	Results  models.ValidationResults
	Mouse    models.MouseMetrics
	Keyboard models.KeyboardMetrics
	Features []float64
	Failures []string
}

func (e Evaluation) IsBot() bool {
	return len(e.Failures) > 0
}

// Notes is the human readable failure list stored with the audit record.
func (e Evaluation) Notes() string {
	return strings.Join(e.Failures, ", ")
}

// Evaluate runs every check in canonical order and never stops at the first
// failure. Errors are reserved for malformed input the checks cannot score,
// such as unparseable timestamps.
func Evaluate(in Input, p validation.Policy) (Evaluation, error) {
	if in.Behavior == nil {
		return Evaluation{}, ErrMissingBehaviorData
	}
	b := in.Behavior

	var ev Evaluation
	fail := func(reason string) {
		ev.Failures = append(ev.Failures, reason)
	}

	ev.Results.IPValid = in.IPAddress != "" && validation.ValidateIP(in.IPAddress)
	if !ev.Results.IPValid {
		fail(validation.ReasonInvalidIP)
	}

	ev.Results.UserAgentValid = in.UserAgent != "" && validation.ValidateUserAgent(in.UserAgent)
	if !ev.Results.UserAgentValid {
		fail(validation.ReasonInvalidUserAgent)
	}

	ev.Results.FingerprintPresent = validation.ValidateFingerprint(b.BrowserFingerprint)
	if !ev.Results.FingerprintPresent {
		fail(validation.ReasonInvalidFingerprint)
	}

	sessionValid, sessionReason := validation.CheckSession(b.TimeOnPage, b.IdleTime, p)
	ev.Results.SessionDurationValid = sessionValid
	if !sessionValid {
		fail(sessionReason)
	}

	if len(b.CursorData) == 0 {
		fail(validation.ReasonMissingMouse)
	} else {
		valid, metrics, err := validation.AnalyzeMouse(b.CursorData, p)
		if err != nil {
			return ev, fmt.Errorf("analyze mouse movement: %w", err)
		}
		ev.Results.MouseMovementValid = valid
		ev.Mouse = metrics
		if !valid {
			fail(validation.ReasonInvalidMouse)
		}
	}

	if len(b.KeystrokeData) == 0 {
		fail(validation.ReasonMissingKeyboard)
	} else {
		valid, metrics, err := validation.AnalyzeKeyboard(b.KeystrokeData, p)
		if err != nil {
			return ev, fmt.Errorf("analyze keyboard input: %w", err)
		}
		ev.Results.KeyboardInputValid = valid
		ev.Keyboard = metrics
		if !valid {
			fail(validation.ReasonInvalidKeyboard)
		}
	}

	if !validation.HasDeviceInfo(b.DeviceInfo) {
		fail(validation.ReasonMissingDeviceInfo)
	}

	orientation, orientationReason := validation.CheckOrientation(b.DeviceInfo, b.DeviceOrientation)
	ev.Results.DeviceOrientationValid = orientation
	if orientation != nil && !*orientation {
		fail(orientationReason)
	}

	// Final idle check, tuned by FinalMinIdleTime independently of the
	// session check.
	if b.IdleTime != nil && *b.IdleTime < p.FinalMinIdleTime && !ev.hasFailure(validation.ReasonLowIdleTime) {
		fail(validation.ReasonLowIdleTime)
	}

	ev.Features = Features(b)
	return ev, nil
}

func (e Evaluation) hasFailure(reason string) bool {
	for _, f := range e.Failures {
		if f == reason {
			return true
		}
	}
	return false
}

// Features builds the model feature vector:
// cursor, click and keystroke counts, time on page, idle time, copy/paste
// count and zoom level. Missing values are zero.
func Features(b *models.BehaviorData) []float64 {
	return []float64{
		float64(len(b.CursorData)),
		float64(len(b.ClickData)),
		float64(len(b.KeystrokeData)),
		valueOrZero(b.TimeOnPage),
		valueOrZero(b.IdleTime),
		float64(len(b.CopyPasteData)),
		valueOrZero(b.ZoomLevel),
	}
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
