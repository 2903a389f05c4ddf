package verifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"behaviorgate/internal/metrics"
	"behaviorgate/internal/models"
	"behaviorgate/internal/signals"
	"behaviorgate/internal/validation"
	"behaviorgate/internal/verdict"
)

// Reasons recorded for requests that never reach the checks.
const (
	ReasonMissingBody         = "Missing request body"
	ReasonInvalidBody         = "Invalid JSON body"
	ReasonMissingBehaviorData = "Missing user behavior data"
)

type Store interface {
	CreateUserBehavior(ctx context.Context, behavior *models.UserBehavior) error
	CreateVerificationLog(ctx context.Context, entry *models.VerificationLog) error
}

type Publisher interface {
	Publish(entry models.VerificationLog)
}

// Result is the outcome of one verification attempt.
type Result struct {
	Log      models.VerificationLog
	Accepted bool
	Failures []string
}

type Service struct {
	store     Store
	publisher Publisher
	metrics   *metrics.Metrics
	policy    validation.Policy
	logger    zerolog.Logger
	now       func() time.Time
}

// NewService wires the verification pipeline. publisher and m may be nil.
func NewService(store Store, publisher Publisher, m *metrics.Metrics, policy validation.Policy, logger zerolog.Logger) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		metrics:   m,
		policy:    policy,
		logger:    logger.With().Str("component", "verifier").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Verify scores the telemetry, persists the raw payload when accepted and
// writes the audit record. A returned error means the request could not be
// scored or stored; a best-effort audit record has been attempted.
func (s *Service) Verify(ctx context.Context, sig signals.Signals, behavior *models.BehaviorData) (*Result, error) {
	if behavior == nil {
		return s.Reject(ctx, sig, ReasonMissingBehaviorData)
	}

	entry := s.newLog(sig, behavior)

	ev, err := verdict.Evaluate(verdict.Input{
		IPAddress: sig.IPAddress,
		UserAgent: sig.UserAgent,
		Behavior:  behavior,
	}, s.policy)

	entry.MouseMetrics = ev.Mouse
	entry.KeyboardMetrics = ev.Keyboard
	entry.ValidationResults = ev.Results
	if err != nil {
		return nil, s.fail(ctx, &entry, fmt.Errorf("evaluate request: %w", err))
	}
	entry.ModelFeatures = ev.Features
	entry.IsBot = ev.IsBot()
	entry.Notes = ev.Notes()

	if !entry.IsBot {
		raw := &models.UserBehavior{CreatedAt: entry.Timestamp, Data: *behavior}
		if err := s.store.CreateUserBehavior(ctx, raw); err != nil {
			s.metrics.ObserveStoreError("create_user_behavior")
			return nil, s.fail(ctx, &entry, fmt.Errorf("store user behavior: %w", err))
		}
		entry.UserBehaviorID = &raw.ID
	}

	if err := s.store.CreateVerificationLog(ctx, &entry); err != nil {
		s.metrics.ObserveStoreError("create_verification_log")
		return nil, s.fail(ctx, &entry, fmt.Errorf("store verification log: %w", err))
	}

	s.finish(entry, ev.Failures)

	return &Result{Log: entry, Accepted: !entry.IsBot, Failures: ev.Failures}, nil
}

// Reject records a request that could not be evaluated at all, such as a
// missing or undecodable body.
func (s *Service) Reject(ctx context.Context, sig signals.Signals, reason string) (*Result, error) {
	entry := s.newLog(sig, nil)
	entry.IsBot = true
	entry.Notes = reason
	entry.ModelFeatures = []float64{}

	if err := s.store.CreateVerificationLog(ctx, &entry); err != nil {
		s.metrics.ObserveStoreError("create_verification_log")
		return nil, fmt.Errorf("store verification log: %w", err)
	}

	failures := []string{reason}
	s.finish(entry, failures)

	return &Result{Log: entry, Failures: failures}, nil
}

func (s *Service) newLog(sig signals.Signals, behavior *models.BehaviorData) models.VerificationLog {
	entry := models.VerificationLog{
		Timestamp: s.now(),
		IPAddress: sig.IPAddress,
		UserAgent: sig.UserAgent,
	}
	if behavior == nil {
		return entry
	}

	entry.BrowserFingerprint = behavior.BrowserFingerprint
	entry.TimeOnPage = behavior.TimeOnPage
	entry.IdleTime = behavior.IdleTime
	if geo := behavior.GeoLocation; geo != nil {
		lat, lon := geo.Latitude, geo.Longitude
		entry.ReportedLatitude = &lat
		entry.ReportedLongitude = &lon
	}
	return entry
}

// fail writes the partial audit record with the error text and returns err.
func (s *Service) fail(ctx context.Context, entry *models.VerificationLog, err error) error {
	entry.IsBot = true
	entry.Notes = "Internal error: " + err.Error()
	entry.UserBehaviorID = nil
	if entry.ModelFeatures == nil {
		entry.ModelFeatures = []float64{}
	}

	if werr := s.store.CreateVerificationLog(ctx, entry); werr != nil {
		s.metrics.ObserveStoreError("create_verification_log")
		s.logger.Error().Err(werr).Msg("failed to store partial verification log")
		return errors.Join(err, werr)
	}

	s.publish(*entry)
	return err
}

func (s *Service) finish(entry models.VerificationLog, failures []string) {
	s.metrics.ObserveVerdict(entry.IsBot, failures)
	s.publish(entry)

	s.logger.Info().
		Str("log_id", entry.ID).
		Str("ip", entry.IPAddress).
		Bool("is_bot", entry.IsBot).
		Strs("failures", failures).
		Msg("verification completed")
}

func (s *Service) publish(entry models.VerificationLog) {
	if s.publisher != nil {
		s.publisher.Publish(entry)
	}
}
