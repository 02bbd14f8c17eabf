package consumer

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Event types that change the activity dataset.
const (
	EventActivityCreated      = "activity.created"
	EventActivityStateChanged = "activity.state_changed"
	EventActivityDeleted      = "activity.deleted"
)

// Invalidator drops a cached dataset.
type Invalidator interface {
	Invalidate()
}

// InvalidationHandler invalidates the dataset cache whenever an activity changes.
type InvalidationHandler struct {
	cache  Invalidator
	logger zerolog.Logger
}

// NewInvalidationHandler constructs a handler over cache.
func NewInvalidationHandler(cache Invalidator, logger zerolog.Logger) *InvalidationHandler {
	return &InvalidationHandler{cache: cache, logger: logger}
}

type activityRef struct {
	ActivityID string `json:"activity_id"`
}

// Handle invalidates on activity lifecycle events and ignores everything else.
func (h *InvalidationHandler) Handle(_ context.Context, msg Message) error {
	switch msg.EventType {
	case EventActivityCreated, EventActivityStateChanged, EventActivityDeleted:
	default:
		return nil
	}

	var ref activityRef
	if err := json.Unmarshal(msg.Payload, &ref); err != nil {
		return fmt.Errorf("decode %s payload: %w", msg.EventType, err)
	}

	h.cache.Invalidate()
	recordInvalidation(msg.EventType)
	h.logger.Debug().
		Str("event_type", msg.EventType).
		Str("activity_id", ref.ActivityID).
		Msg("dataset cache invalidated")
	return nil
}
