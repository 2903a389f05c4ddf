package verdict

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"behaviorgate/internal/models"
	"behaviorgate/internal/validation"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func ptr(v float64) *float64 { return &v }

func humanBehavior() *models.BehaviorData {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	cursor := make([]models.CursorSample, 4)
	for i := range cursor {
		cursor[i] = models.CursorSample{
			X:         float64(i * 60),
			Y:         float64(i * 80),
			Timestamp: start.Add(time.Duration(i) * time.Second).Format(time.RFC3339Nano),
		}
	}

	keys := make([]models.KeystrokeEvent, 6)
	for i := range keys {
		keys[i] = models.KeystrokeEvent{Key: "x", Duration: 140, KeyPressDuration: ptr(85)}
	}

	return &models.BehaviorData{
		CursorData:         cursor,
		ClickData:          []models.ClickEvent{{Element: "button", X: 10, Y: 20}},
		KeystrokeData:      keys,
		TimeOnPage:         ptr(32.5),
		IdleTime:           ptr(4),
		CopyPasteData:      []models.CopyPasteEvent{{Action: "paste", Field: "email"}},
		ZoomLevel:          ptr(1.25),
		DeviceInfo:         &models.DeviceInfo{DeviceType: "desktop", Browser: "Chrome", OS: "Windows"},
		BrowserFingerprint: "fp-7f3a9c",
	}
}

func humanInput() Input {
	return Input{IPAddress: "198.51.100.23", UserAgent: chromeUA, Behavior: humanBehavior()}
}

func TestEvaluate_Human(t *testing.T) {
	ev, err := Evaluate(humanInput(), validation.DefaultPolicy())
	require.NoError(t, err)

	assert.False(t, ev.IsBot())
	assert.Empty(t, ev.Failures)
	assert.Empty(t, ev.Notes())

	assert.True(t, ev.Results.IPValid)
	assert.True(t, ev.Results.UserAgentValid)
	assert.True(t, ev.Results.FingerprintPresent)
	assert.True(t, ev.Results.SessionDurationValid)
	assert.True(t, ev.Results.MouseMovementValid)
	assert.True(t, ev.Results.KeyboardInputValid)
	assert.Nil(t, ev.Results.DeviceOrientationValid)

	assert.InDelta(t, 100, ev.Mouse.AverageSpeed, 1e-9)
	assert.Equal(t, 6, ev.Keyboard.TotalKeystrokes)
	assert.Equal(t, []float64{4, 1, 6, 32.5, 4, 1, 1.25}, ev.Features)
}

func TestEvaluate_InvalidIPOnly(t *testing.T) {
	in := humanInput()
	in.IPAddress = "999.999.999.999"

	ev, err := Evaluate(in, validation.DefaultPolicy())
	require.NoError(t, err)

	assert.True(t, ev.IsBot())
	assert.Equal(t, []string{validation.ReasonInvalidIP}, ev.Failures)
	assert.False(t, ev.Results.IPValid)
}

func TestEvaluate_LowIdleTime(t *testing.T) {
	in := humanInput()
	in.Behavior.IdleTime = ptr(2)

	ev, err := Evaluate(in, validation.DefaultPolicy())
	require.NoError(t, err)

	assert.True(t, ev.IsBot())
	assert.Equal(t, []string{validation.ReasonLowIdleTime}, ev.Failures)
	assert.False(t, ev.Results.SessionDurationValid)
}

func TestEvaluate_FinalIdleCheckUsesOwnThreshold(t *testing.T) {
	p := validation.DefaultPolicy()
	p.MinIdleTime = 1
	p.FinalMinIdleTime = 5

	ev, err := Evaluate(humanInput(), p)
	require.NoError(t, err)

	assert.True(t, ev.Results.SessionDurationValid)
	assert.Equal(t, []string{validation.ReasonLowIdleTime}, ev.Failures)
}

func TestEvaluate_CollectsEveryFailureInOrder(t *testing.T) {
	in := Input{
		IPAddress: "",
		UserAgent: "curl/8.4.0 (x86_64-pc-linux-gnu)",
		Behavior: &models.BehaviorData{
			DeviceInfo:        &models.DeviceInfo{DeviceType: "mobile"},
			DeviceOrientation: &models.DeviceOrientation{Alpha: ptr(0), Beta: ptr(0), Gamma: ptr(0)},
		},
	}

	ev, err := Evaluate(in, validation.DefaultPolicy())
	require.NoError(t, err)

	assert.Equal(t, []string{
		validation.ReasonInvalidIP,
		validation.ReasonInvalidUserAgent,
		validation.ReasonInvalidFingerprint,
		validation.ReasonMissingSession,
		validation.ReasonMissingMouse,
		validation.ReasonMissingKeyboard,
		validation.ReasonInvalidOrientation,
	}, ev.Failures)
	require.NotNil(t, ev.Results.DeviceOrientationValid)
	assert.False(t, *ev.Results.DeviceOrientationValid)
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 0, 0}, ev.Features)
}

func TestEvaluate_MissingDeviceInfo(t *testing.T) {
	in := humanInput()
	in.Behavior.DeviceInfo = nil

	ev, err := Evaluate(in, validation.DefaultPolicy())
	require.NoError(t, err)
	assert.Equal(t, []string{validation.ReasonMissingDeviceInfo}, ev.Failures)
	assert.Nil(t, ev.Results.DeviceOrientationValid)
}

func TestEvaluate_MobileWithLiveSensor(t *testing.T) {
	in := humanInput()
	in.Behavior.DeviceInfo.DeviceType = "mobile"
	in.Behavior.DeviceOrientation = &models.DeviceOrientation{Alpha: ptr(12), Beta: ptr(48), Gamma: ptr(-7)}

	ev, err := Evaluate(in, validation.DefaultPolicy())
	require.NoError(t, err)
	assert.False(t, ev.IsBot())
	require.NotNil(t, ev.Results.DeviceOrientationValid)
	assert.True(t, *ev.Results.DeviceOrientationValid)
}

func TestEvaluate_ShortTracesFailValidation(t *testing.T) {
	in := humanInput()
	in.Behavior.CursorData = in.Behavior.CursorData[:1]
	in.Behavior.KeystrokeData = in.Behavior.KeystrokeData[:3]

	ev, err := Evaluate(in, validation.DefaultPolicy())
	require.NoError(t, err)
	assert.Equal(t, []string{validation.ReasonInvalidMouse, validation.ReasonInvalidKeyboard}, ev.Failures)
	assert.Equal(t, "Mouse movement validation failed, Keyboard input validation failed", ev.Notes())
}

func TestEvaluate_Errors(t *testing.T) {
	_, err := Evaluate(Input{IPAddress: "198.51.100.23"}, validation.DefaultPolicy())
	assert.ErrorIs(t, err, ErrMissingBehaviorData)

	in := humanInput()
	in.Behavior.CursorData[2].Timestamp = "garbage"
	_, err = Evaluate(in, validation.DefaultPolicy())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analyze mouse movement")
}
