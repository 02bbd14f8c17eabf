// Package publisher periodically publishes the weekly activity snapshot to Kafka.
package publisher

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/anishjoni/predict-my-run/internal/analytics"
	"github.com/anishjoni/predict-my-run/internal/domain"
	"github.com/anishjoni/predict-my-run/internal/logging"
)

// SnapshotSource computes the current weekly comparison.
type SnapshotSource interface {
	Weekly(ctx context.Context) (analytics.WeeklyComparison, error)
}

type messageWriter interface {
	WriteMessages(context.Context, string, ...kafka.Message) error
}

type schemaRegistrar interface {
	EnsureSchema(context.Context, string, string) (int, error)
}

// WeeklySnapshotEvent is the JSON body of a published snapshot.
type WeeklySnapshotEvent struct {
	EventID                string    `json:"event_id"`
	GeneratedAt            time.Time `json:"generated_at"`
	WeekKey                string    `json:"week_key"`
	Year                   int       `json:"activity_year"`
	Week                   int       `json:"week"`
	Activities             int       `json:"activities"`
	Distance               float64   `json:"distance"`
	Time                   float64   `json:"time"`
	PreviousWeekActivities *int      `json:"previous_week_activities"`
	PreviousWeekDistance   *float64  `json:"previous_week_distance"`
	PreviousWeekTime       *float64  `json:"previous_week_time"`
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a custom logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithClock overrides the clock used for event timestamps and retry scheduling.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		p.now = now
	}
}

// WithSchemaRegistry resolves the schema id framed into every message. Without
// a registry the id is zero.
func WithSchemaRegistry(registry schemaRegistrar) Option {
	return func(p *Publisher) {
		p.registry = registry
	}
}

// WithRetryBaseDelay sets the first backoff step after a failed publish.
func WithRetryBaseDelay(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.baseDelay = d
		}
	}
}

// Publisher polls a SnapshotSource and writes changed snapshots to a topic.
// All state is owned by the polling goroutine.
type Publisher struct {
	source       SnapshotSource
	producer     messageWriter
	registry     schemaRegistrar
	topic        string
	pollInterval time.Duration
	baseDelay    time.Duration
	logger       zerolog.Logger
	now          func() time.Time

	schemaID    int
	schemaReady bool
	last        []byte
	failures    int
	nextAttempt time.Time

	shutdownComplete chan struct{}
}

// NewPublisher constructs a Publisher.
func NewPublisher(source SnapshotSource, producer messageWriter, topic string, pollInterval time.Duration, opts ...Option) *Publisher {
	if pollInterval <= 0 {
		pollInterval = time.Minute
	}
	p := &Publisher{
		source:           source,
		producer:         producer,
		topic:            topic,
		pollInterval:     pollInterval,
		baseDelay:        5 * time.Second,
		logger:           logging.With("publisher"),
		now:              time.Now,
		shutdownComplete: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the polling loop. It should be called in a goroutine.
func (p *Publisher) Start(ctx context.Context) {
	ticker := time.NewTicker(p.pollInterval)
	defer func() {
		ticker.Stop()
		close(p.shutdownComplete)
	}()

	for {
		if p.now().Before(p.nextAttempt) {
			p.logger.Debug().Time("next_attempt", p.nextAttempt).Msg("publish deferred by backoff")
		} else if _, err := p.PublishOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Error().Err(err).Int("failures", p.failures).Msg("snapshot publish failed")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Wait waits until the polling loop stops.
func (p *Publisher) Wait() {
	<-p.shutdownComplete
}

// PublishOnce computes the snapshot and publishes it when it differs from the
// last one delivered. It reports whether a message was written.
func (p *Publisher) PublishOnce(ctx context.Context) (bool, error) {
	start := time.Now()
	defer func() { pollDuration.Observe(time.Since(start).Seconds()) }()

	cmp, err := p.source.Weekly(ctx)
	if errors.Is(err, domain.ErrEmptyDataset) {
		p.logger.Info().Msg("no activities recorded, skipping snapshot")
		return false, nil
	}
	if err != nil {
		return false, p.fail(fmt.Errorf("compute snapshot: %w", err))
	}

	fingerprint, err := json.Marshal(cmp)
	if err != nil {
		return false, p.fail(err)
	}
	if bytes.Equal(fingerprint, p.last) {
		unchangedCounter.Inc()
		return false, nil
	}

	schemaID, err := p.resolveSchema(ctx)
	if err != nil {
		return false, p.fail(fmt.Errorf("resolve schema: %w", err))
	}

	event := newEvent(cmp, uuid.NewString(), p.now().UTC())
	body, err := json.Marshal(event)
	if err != nil {
		return false, p.fail(err)
	}

	msg := kafka.Message{
		Key:   []byte(event.WeekKey),
		Value: encodeWireFormat(schemaID, body),
		Time:  event.GeneratedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventWeeklySnapshot)},
			{Key: "event_id", Value: []byte(event.EventID)},
			{Key: "schema_subject", Value: []byte(p.subject())},
		},
	}
	if err := p.producer.WriteMessages(ctx, p.topic, msg); err != nil {
		return false, p.fail(fmt.Errorf("write snapshot: %w", err))
	}

	p.last = fingerprint
	p.failures = 0
	p.nextAttempt = time.Time{}
	publishedCounter.Inc()
	p.logger.Info().
		Str("week", event.WeekKey).
		Str("event_id", event.EventID).
		Int("activities", event.Activities).
		Msg("weekly snapshot published")
	return true, nil
}

func (p *Publisher) subject() string {
	return p.topic + "-value"
}

func (p *Publisher) resolveSchema(ctx context.Context) (int, error) {
	if p.schemaReady {
		return p.schemaID, nil
	}
	if p.registry != nil {
		id, err := p.registry.EnsureSchema(ctx, p.subject(), weeklySnapshotSchema)
		if err != nil {
			return 0, err
		}
		p.schemaID = id
	}
	p.schemaReady = true
	return p.schemaID, nil
}

func (p *Publisher) fail(err error) error {
	failedCounter.Inc()
	p.failures++
	p.nextAttempt = p.now().Add(p.backoffDelay(p.failures))
	retryScheduledCounter.Inc()
	return err
}

// backoffDelay calculates exponential backoff capped at one hour.
func (p *Publisher) backoffDelay(attempt int) time.Duration {
	if attempt > 20 {
		return time.Hour
	}
	delay := time.Duration(1<<uint(attempt-1)) * p.baseDelay
	if delay > time.Hour {
		delay = time.Hour
	}
	return delay
}

func newEvent(cmp analytics.WeeklyComparison, eventID string, generatedAt time.Time) WeeklySnapshotEvent {
	return WeeklySnapshotEvent{
		EventID:                eventID,
		GeneratedAt:            generatedAt,
		WeekKey:                cmp.WeekKey.String(),
		Year:                   cmp.Year,
		Week:                   cmp.Week,
		Activities:             cmp.Activities,
		Distance:               cmp.Distance,
		Time:                   cmp.Time,
		PreviousWeekActivities: cmp.PreviousWeekActivities,
		PreviousWeekDistance:   cmp.PreviousWeekDistance,
		PreviousWeekTime:       cmp.PreviousWeekTime,
	}
}

// encodeWireFormat prefixes payload with the magic byte and big-endian schema id.
func encodeWireFormat(schemaID int, payload []byte) []byte {
	frame := make([]byte, 5+len(payload))
	frame[0] = 0
	binary.BigEndian.PutUint32(frame[1:5], uint32(schemaID))
	copy(frame[5:], payload)
	return frame
}
