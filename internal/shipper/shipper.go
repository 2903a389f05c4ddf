package shipper

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"behaviorgate/internal/models"
)

const (
	defaultQueueCapacity = 1024
	writeTimeout         = 5 * time.Second

	// maxBatch bounds the records sent per WriteMessages call. The writer
	// flushes a partition batch once it holds maxBatch messages or
	// batchTimeout has passed.
	maxBatch     = 100
	batchTimeout = 10 * time.Millisecond
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config selects the Kafka topic audit records are streamed to.
type Config struct {
	Enabled       bool
	Brokers       []string
	Topic         string
	QueueCapacity int
}

// DropObserver is told about every record dropped on backpressure.
type DropObserver interface {
	ObserveShipperDrop()
}

// AuditShipper streams persisted audit records to Kafka in the background.
// Publish never blocks; records are dropped when the queue is full.
type AuditShipper struct {
	writer  messageWriter
	ch      chan models.VerificationLog
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	started atomic.Bool
	drops   DropObserver
	logger  zerolog.Logger
	enabled bool
}

func NewAuditShipper(cfg Config, drops DropObserver, logger zerolog.Logger) (*AuditShipper, error) {
	if !cfg.Enabled {
		return &AuditShipper{logger: logger}, nil
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka: no topic configured")
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: false,
		BatchSize:              maxBatch,
		BatchTimeout:           batchTimeout,
		WriteTimeout:           writeTimeout,
	}

	return newAuditShipper(w, cfg.QueueCapacity, drops, logger), nil
}

func newAuditShipper(w messageWriter, capacity int, drops DropObserver, logger zerolog.Logger) *AuditShipper {
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}
	return &AuditShipper{
		writer:  w,
		ch:      make(chan models.VerificationLog, capacity),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		drops:   drops,
		logger:  logger.With().Str("component", "audit_shipper").Logger(),
		enabled: true,
	}
}

func (s *AuditShipper) Start() {
	if !s.enabled || !s.started.CompareAndSwap(false, true) {
		return
	}
	go s.loop()
}

// Stop flushes queued records until ctx expires, then closes the writer.
func (s *AuditShipper) Stop(ctx context.Context) error {
	if !s.enabled {
		return nil
	}
	s.once.Do(func() { close(s.stop) })
	if !s.started.Load() {
		return s.writer.Close()
	}

	select {
	case <-s.done:
	case <-ctx.Done():
		s.logger.Warn().Int("pending", len(s.ch)).Msg("audit shipper stopped before queue drained")
	}
	return s.writer.Close()
}

func (s *AuditShipper) Publish(entry models.VerificationLog) {
	if !s.enabled {
		return
	}
	select {
	case s.ch <- entry:
	default:
		if s.drops != nil {
			s.drops.ObserveShipperDrop()
		}
		s.logger.Warn().Str("log_id", entry.ID).Msg("audit queue full, record dropped")
	}
}

func (s *AuditShipper) loop() {
	defer close(s.done)
	for {
		select {
		case entry := <-s.ch:
			s.dispatch(s.drain(entry))
		case <-s.stop:
			for {
				select {
				case entry := <-s.ch:
					s.dispatch(s.drain(entry))
				default:
					return
				}
			}
		}
	}
}

// drain collects first plus whatever is already queued, up to maxBatch.
func (s *AuditShipper) drain(first models.VerificationLog) []models.VerificationLog {
	batch := []models.VerificationLog{first}
	for len(batch) < maxBatch {
		select {
		case entry := <-s.ch:
			batch = append(batch, entry)
		default:
			return batch
		}
	}
	return batch
}

func (s *AuditShipper) dispatch(batch []models.VerificationLog) {
	msgs := make([]kafka.Message, 0, len(batch))
	for _, entry := range batch {
		payload, err := json.Marshal(entry)
		if err != nil {
			s.logger.Error().Err(err).Str("log_id", entry.ID).Msg("failed to encode audit record")
			continue
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(entry.ID),
			Value: payload,
			Time:  entry.Timestamp,
		})
	}
	if len(msgs) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := s.writer.WriteMessages(ctx, msgs...); err != nil {
		s.logger.Error().Err(err).Int("records", len(msgs)).Msg("failed to publish audit records")
	}
}
