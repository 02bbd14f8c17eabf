package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/anishjoni/predict-my-run/internal/domain"
)

// WeekKey identifies an ISO 8601 week. Year is the ISO week-numbering year, so
// 2024-12-30 belongs to {2025, 1} and 2021-01-01 to {2020, 53}.
type WeekKey struct {
	Year int `json:"activity_year"`
	Week int `json:"week"`
}

// WeekKeyOf returns the ISO week of t in t's own location.
func WeekKeyOf(t time.Time) WeekKey {
	year, week := t.ISOWeek()
	return WeekKey{Year: year, Week: week}
}

// Before reports whether k sorts chronologically before other.
func (k WeekKey) Before(other WeekKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	return k.Week < other.Week
}

func (k WeekKey) String() string {
	return fmt.Sprintf("%d-W%02d", k.Year, k.Week)
}

// WeekBucket holds the totals of one week.
type WeekBucket struct {
	WeekKey
	Activities int     `json:"activities"`
	Distance   float64 `json:"distance"`
	Time       float64 `json:"time"`
}

// WeeklyComparison is the most recent week alongside the totals of the bucket
// immediately preceding it. The previous fields are nil for the first week of data.
type WeeklyComparison struct {
	WeekBucket
	PreviousWeekActivities *int     `json:"previous_week_activities"`
	PreviousWeekDistance   *float64 `json:"previous_week_distance"`
	PreviousWeekTime       *float64 `json:"previous_week_time"`
}

// HasPrevious reports whether a preceding week was available.
func (c WeeklyComparison) HasPrevious() bool {
	return c.PreviousWeekActivities != nil
}

// WeeklyDeltas are current-minus-previous differences for metric tiles.
type WeeklyDeltas struct {
	Activities int     `json:"activities"`
	Distance   float64 `json:"distance"`
	Time       float64 `json:"time"`
}

// Deltas returns the week-over-week change, or false without history.
func (c WeeklyComparison) Deltas() (WeeklyDeltas, bool) {
	if !c.HasPrevious() {
		return WeeklyDeltas{}, false
	}
	return WeeklyDeltas{
		Activities: c.Activities - *c.PreviousWeekActivities,
		Distance:   round2(c.Distance - *c.PreviousWeekDistance),
		Time:       round2(c.Time - *c.PreviousWeekTime),
	}, true
}

// BucketByWeek groups records by ISO week and returns the buckets most recent
// first. Null distances and moving times count as zero.
func BucketByWeek(records []domain.ActivityRecord) []WeekBucket {
	totals := make(map[WeekKey]*WeekBucket)
	for _, rec := range records {
		key := WeekKeyOf(rec.StartDateLocal)
		b, ok := totals[key]
		if !ok {
			b = &WeekBucket{WeekKey: key}
			totals[key] = b
		}
		b.Activities++
		if rec.DistanceKm != nil {
			b.Distance += *rec.DistanceKm
		}
		if rec.MovingTimeHr != nil {
			b.Time += *rec.MovingTimeHr
		}
	}

	buckets := make([]WeekBucket, 0, len(totals))
	for _, b := range totals {
		b.Distance = round2(b.Distance)
		b.Time = round2(b.Time)
		buckets = append(buckets, *b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[j].WeekKey.Before(buckets[i].WeekKey)
	})
	return buckets
}

// ComputeWeeklySnapshot compares the latest week of activity with the week
// before it. An empty input returns domain.ErrEmptyDataset.
func ComputeWeeklySnapshot(records []domain.ActivityRecord) (WeeklyComparison, error) {
	if len(records) == 0 {
		return WeeklyComparison{}, domain.ErrEmptyDataset
	}

	buckets := BucketByWeek(records)
	out := WeeklyComparison{WeekBucket: buckets[0]}
	if len(buckets) > 1 {
		prev := buckets[1]
		out.PreviousWeekActivities = &prev.Activities
		out.PreviousWeekDistance = &prev.Distance
		out.PreviousWeekTime = &prev.Time
	}
	return out, nil
}

func round2(v float64) float64 {
	rounded, err := stats.Round(v, 2)
	if err != nil {
		return v
	}
	return rounded
}
