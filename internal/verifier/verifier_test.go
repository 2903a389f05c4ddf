package verifier

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"behaviorgate/internal/metrics"
	"behaviorgate/internal/models"
	"behaviorgate/internal/signals"
	"behaviorgate/internal/validation"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type fakeStore struct {
	mu          sync.Mutex
	behaviors   []models.UserBehavior
	logs        []models.VerificationLog
	behaviorErr error
	logErr      error
	// logFailures fails that many log writes before succeeding.
	logFailures int
}

func (f *fakeStore) CreateUserBehavior(ctx context.Context, b *models.UserBehavior) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.behaviorErr != nil {
		return f.behaviorErr
	}
	b.ID = uuid.NewString()
	f.behaviors = append(f.behaviors, *b)
	return nil
}

func (f *fakeStore) CreateVerificationLog(ctx context.Context, entry *models.VerificationLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.logErr != nil {
		return f.logErr
	}
	if f.logFailures > 0 {
		f.logFailures--
		return errors.New("deadline exceeded")
	}
	entry.ID = uuid.NewString()
	f.logs = append(f.logs, *entry)
	return nil
}

type fakePublisher struct {
	published []models.VerificationLog
}

func (p *fakePublisher) Publish(entry models.VerificationLog) {
	p.published = append(p.published, entry)
}

func ptr(v float64) *float64 { return &v }

func humanBehavior() *models.BehaviorData {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	cursor := make([]models.CursorSample, 3)
	for i := range cursor {
		cursor[i] = models.CursorSample{
			X:         float64(i * 60),
			Y:         float64(i * 80),
			Timestamp: start.Add(time.Duration(i) * time.Second).Format(time.RFC3339Nano),
		}
	}

	keys := make([]models.KeystrokeEvent, 5)
	for i := range keys {
		keys[i] = models.KeystrokeEvent{Key: "a", Duration: 110, KeyPressDuration: ptr(70)}
	}

	return &models.BehaviorData{
		CursorData:         cursor,
		KeystrokeData:      keys,
		TimeOnPage:         ptr(20),
		IdleTime:           ptr(6),
		DeviceInfo:         &models.DeviceInfo{DeviceType: "desktop"},
		GeoLocation:        &models.GeoLocation{Latitude: 52.37, Longitude: 4.89},
		BrowserFingerprint: "fp-abc",
	}
}

func humanSignals() signals.Signals {
	return signals.Signals{IPAddress: "198.51.100.7", UserAgent: chromeUA}
}

func newService(store *fakeStore, pub Publisher) *Service {
	return NewService(store, pub, metrics.NewMetrics(), validation.DefaultPolicy(), zerolog.Nop())
}

func TestVerify_Accepted(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}

	result, err := newService(store, pub).Verify(context.Background(), humanSignals(), humanBehavior())
	require.NoError(t, err)

	assert.True(t, result.Accepted)
	assert.Empty(t, result.Failures)

	require.Len(t, store.behaviors, 1)
	require.Len(t, store.logs, 1)

	entry := store.logs[0]
	require.NotNil(t, entry.UserBehaviorID)
	assert.Equal(t, store.behaviors[0].ID, *entry.UserBehaviorID)
	assert.False(t, entry.IsBot)
	assert.Equal(t, "fp-abc", entry.BrowserFingerprint)
	assert.Equal(t, 52.37, *entry.ReportedLatitude)
	assert.Equal(t, []float64{3, 0, 5, 20, 6, 0, 0}, entry.ModelFeatures)

	require.Len(t, pub.published, 1)
	assert.Equal(t, entry.ID, pub.published[0].ID)
}

func TestVerify_Rejected(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}

	sig := humanSignals()
	sig.IPAddress = "999.999.999.999"

	result, err := newService(store, pub).Verify(context.Background(), sig, humanBehavior())
	require.NoError(t, err)

	assert.False(t, result.Accepted)
	assert.Equal(t, []string{validation.ReasonInvalidIP}, result.Failures)
	assert.Empty(t, store.behaviors, "raw telemetry is only kept for accepted requests")
	require.Len(t, store.logs, 1)
	assert.True(t, store.logs[0].IsBot)
	assert.Nil(t, store.logs[0].UserBehaviorID)
	assert.Equal(t, validation.ReasonInvalidIP, store.logs[0].Notes)
}

func TestVerify_DuplicatePayloadsAreIndependent(t *testing.T) {
	store := &fakeStore{}
	svc := newService(store, nil)

	behavior := humanBehavior()
	for i := 0; i < 2; i++ {
		result, err := svc.Verify(context.Background(), humanSignals(), behavior)
		require.NoError(t, err)
		assert.True(t, result.Accepted)
	}

	require.Len(t, store.logs, 2)
	require.Len(t, store.behaviors, 2)
	assert.NotEqual(t, store.logs[0].ID, store.logs[1].ID)
	assert.NotEqual(t, store.behaviors[0].ID, store.behaviors[1].ID)
}

func TestVerify_MissingBehaviorData(t *testing.T) {
	store := &fakeStore{}

	result, err := newService(store, nil).Verify(context.Background(), humanSignals(), nil)
	require.NoError(t, err)

	assert.False(t, result.Accepted)
	assert.Equal(t, []string{ReasonMissingBehaviorData}, result.Failures)
	require.Len(t, store.logs, 1)
	assert.True(t, store.logs[0].IsBot)
	assert.Equal(t, ReasonMissingBehaviorData, store.logs[0].Notes)
}

func TestVerify_InternalErrorWritesPartialLog(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}

	behavior := humanBehavior()
	behavior.CursorData[1].Timestamp = "not a time"

	_, err := newService(store, pub).Verify(context.Background(), humanSignals(), behavior)
	require.Error(t, err)

	require.Len(t, store.logs, 1)
	entry := store.logs[0]
	assert.True(t, entry.IsBot)
	assert.Contains(t, entry.Notes, "Internal error: ")
	assert.Contains(t, entry.Notes, "not a time")
	assert.Equal(t, "fp-abc", entry.BrowserFingerprint)
	assert.Empty(t, store.behaviors)

	assert.True(t, entry.ValidationResults.IPValid)
	assert.True(t, entry.ValidationResults.UserAgentValid)
	assert.True(t, entry.ValidationResults.FingerprintPresent)
	assert.True(t, entry.ValidationResults.SessionDurationValid)
}

func TestVerify_BehaviorStoreFailure(t *testing.T) {
	store := &fakeStore{behaviorErr: errors.New("disk full")}

	_, err := newService(store, nil).Verify(context.Background(), humanSignals(), humanBehavior())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	require.Len(t, store.logs, 1)
	assert.True(t, store.logs[0].IsBot)
	assert.Nil(t, store.logs[0].UserBehaviorID)
}

func TestVerify_LogStoreFailure(t *testing.T) {
	store := &fakeStore{logErr: errors.New("connection refused")}
	pub := &fakePublisher{}

	_, err := newService(store, pub).Verify(context.Background(), humanSignals(), humanBehavior())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store verification log")
	assert.Empty(t, pub.published)
}

func TestVerify_LogWriteRetriedAsPartialLog(t *testing.T) {
	store := &fakeStore{logFailures: 1}
	pub := &fakePublisher{}

	_, err := newService(store, pub).Verify(context.Background(), humanSignals(), humanBehavior())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store verification log")

	require.Len(t, store.logs, 1)
	entry := store.logs[0]
	assert.True(t, entry.IsBot)
	assert.Contains(t, entry.Notes, "Internal error: store verification log")
	assert.Nil(t, entry.UserBehaviorID)
	require.Len(t, pub.published, 1)
}

func TestVerify_OverflowingCursorIsRejected(t *testing.T) {
	store := &fakeStore{}

	behavior := humanBehavior()
	behavior.CursorData = behavior.CursorData[:2]
	behavior.CursorData[0].X, behavior.CursorData[0].Y = -1e308, 0
	behavior.CursorData[1].X, behavior.CursorData[1].Y = 1e308, 0

	result, err := newService(store, nil).Verify(context.Background(), humanSignals(), behavior)
	require.NoError(t, err)

	assert.False(t, result.Accepted)
	assert.Equal(t, []string{validation.ReasonInvalidMouse}, result.Failures)

	require.Len(t, store.logs, 1)
	assert.Equal(t, models.MouseMetrics{}, store.logs[0].MouseMetrics)
	_, err = json.Marshal(store.logs[0])
	assert.NoError(t, err)
}

func TestReject(t *testing.T) {
	store := &fakeStore{}

	result, err := newService(store, nil).Reject(context.Background(), humanSignals(), ReasonInvalidBody)
	require.NoError(t, err)

	assert.False(t, result.Accepted)
	assert.Equal(t, []string{ReasonInvalidBody}, result.Failures)
	require.Len(t, store.logs, 1)
	assert.Equal(t, "198.51.100.7", store.logs[0].IPAddress)
	assert.Equal(t, []float64{}, store.logs[0].ModelFeatures)
}
