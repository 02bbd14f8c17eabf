package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/anishjoni/predict-my-run/internal/domain"
	"github.com/anishjoni/predict-my-run/internal/logging"
)

// BreakerSettings tunes a BreakerSource.
type BreakerSettings struct {
	Name string
	// FailureThreshold consecutive failures open the circuit.
	FailureThreshold uint32
	// OpenTimeout is how long the circuit stays open before a trial load.
	OpenTimeout time.Duration
	Logger      *zerolog.Logger
}

// BreakerSource stops hammering a failing store. While open, loads fail fast with
// domain.ErrSourceUnavailable.
type BreakerSource struct {
	source domain.ActivitySource
	cb     *gobreaker.CircuitBreaker[[]domain.ActivityRecord]
}

// NewBreakerSource wraps source. Zero settings select a 5 failure threshold and a 30s timeout.
func NewBreakerSource(source domain.ActivitySource, settings BreakerSettings) *BreakerSource {
	if settings.Name == "" {
		settings.Name = "activity-store"
	}
	if settings.FailureThreshold == 0 {
		settings.FailureThreshold = 5
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = 30 * time.Second
	}
	log := logging.With("source")
	if settings.Logger != nil {
		log = *settings.Logger
	}

	breakerState.WithLabelValues(settings.Name).Set(0)
	cb := gobreaker.NewCircuitBreaker[[]domain.ActivityRecord](gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			breakerState.WithLabelValues(name).Set(stateValue(to))
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("source circuit breaker state changed")
		},
		// A caller giving up is not a store failure; a load timing out is.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &BreakerSource{source: source, cb: cb}
}

// ListActivities loads through the circuit breaker.
func (b *BreakerSource) ListActivities(ctx context.Context) ([]domain.ActivityRecord, error) {
	records, err := b.cb.Execute(func() ([]domain.ActivityRecord, error) {
		return b.source.ListActivities(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	return records, err
}

// State reports the breaker state, for health output and tests.
func (b *BreakerSource) State() gobreaker.State {
	return b.cb.State()
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
