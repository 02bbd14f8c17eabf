package domain

import (
	"context"
	"fmt"
	"time"
)

// ActivityRecord is one logged activity as read from the upstream store.
// Nullable measurements are modelled as pointers.
type ActivityRecord struct {
	ActivityID     string
	SportType      string
	StartDateLocal time.Time
	DistanceKm     *float64
	MovingTimeHr   *float64
	StartLatitude  *float64
	StartLongitude *float64
}

// HasLocation reports whether both start coordinates are present.
func (r ActivityRecord) HasLocation() bool {
	return r.StartLatitude != nil && r.StartLongitude != nil
}

// ActivitySource loads the full activity dataset. Implementations are owned by the
// caller, who constructs them once and closes them explicitly.
type ActivitySource interface {
	ListActivities(ctx context.Context) ([]ActivityRecord, error)
}

// ValidateRecords enforces activity_id uniqueness across a dataset.
func ValidateRecords(records []ActivityRecord) error {
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if _, ok := seen[rec.ActivityID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateActivity, rec.ActivityID)
		}
		seen[rec.ActivityID] = struct{}{}
	}
	return nil
}

// Float returns a pointer to v. It keeps literal construction of nullable fields short.
func Float(v float64) *float64 {
	return &v
}
