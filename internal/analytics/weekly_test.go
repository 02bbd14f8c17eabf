package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/anishjoni/predict-my-run/internal/domain"
)

func activityOn(id string, ts time.Time, distance, moving *float64) domain.ActivityRecord {
	return domain.ActivityRecord{
		ActivityID:     id,
		SportType:      "Run",
		StartDateLocal: ts,
		DistanceKm:     distance,
		MovingTimeHr:   moving,
	}
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 7, 30, 0, 0, time.UTC)
}

func TestComputeWeeklySnapshotOrdersAcrossYearBoundary(t *testing.T) {
	records := []domain.ActivityRecord{
		activityOn("a", day(2025, time.January, 8), domain.Float(3), domain.Float(0.3)),  // 2025-W02
		activityOn("b", day(2024, time.December, 23), domain.Float(10), domain.Float(1)), // 2024-W52
		activityOn("c", day(2025, time.January, 1), domain.Float(5), domain.Float(0.5)),  // 2025-W01
		activityOn("d", day(2025, time.January, 2), domain.Float(7), domain.Float(0.7)),  // 2025-W01
	}

	snap, err := ComputeWeeklySnapshot(records)
	require.NoError(t, err)

	require.Equal(t, WeekKey{Year: 2025, Week: 2}, snap.WeekKey)
	require.Equal(t, 1, snap.Activities)
	require.InDelta(t, 3.0, snap.Distance, 1e-9)

	require.True(t, snap.HasPrevious())
	require.Equal(t, 2, *snap.PreviousWeekActivities)
	require.InDelta(t, 12.0, *snap.PreviousWeekDistance, 1e-9)
	require.InDelta(t, 1.2, *snap.PreviousWeekTime, 1e-9)
}

func TestWeekKeyOfUsesISOYear(t *testing.T) {
	require.Equal(t, WeekKey{Year: 2025, Week: 1}, WeekKeyOf(day(2024, time.December, 30)))
	require.Equal(t, WeekKey{Year: 2025, Week: 1}, WeekKeyOf(day(2024, time.December, 31)))
	require.Equal(t, WeekKey{Year: 2020, Week: 53}, WeekKeyOf(day(2021, time.January, 1)))
	require.Equal(t, WeekKey{Year: 2020, Week: 53}, WeekKeyOf(day(2021, time.January, 3)))
	require.Equal(t, WeekKey{Year: 2021, Week: 1}, WeekKeyOf(day(2021, time.January, 4)))
}

func TestBucketByWeekLateDecemberJoinsNewYearWeek(t *testing.T) {
	records := []domain.ActivityRecord{
		activityOn("a", day(2024, time.December, 31), domain.Float(4), nil),
		activityOn("b", day(2025, time.January, 2), domain.Float(6), nil),
		activityOn("c", day(2024, time.December, 27), domain.Float(1), nil),
	}

	buckets := BucketByWeek(records)
	require.Len(t, buckets, 2)
	require.Equal(t, WeekKey{Year: 2025, Week: 1}, buckets[0].WeekKey)
	require.Equal(t, 2, buckets[0].Activities)
	require.InDelta(t, 10.0, buckets[0].Distance, 1e-9)
	require.Equal(t, WeekKey{Year: 2024, Week: 52}, buckets[1].WeekKey)
}

func TestBucketByWeekYearIsPrimaryKey(t *testing.T) {
	records := []domain.ActivityRecord{
		activityOn("old", day(2023, time.December, 20), nil, nil), // 2023-W51
		activityOn("new", day(2024, time.January, 10), nil, nil),  // 2024-W02
	}

	buckets := BucketByWeek(records)
	require.Equal(t, WeekKey{Year: 2024, Week: 2}, buckets[0].WeekKey)
	require.Equal(t, WeekKey{Year: 2023, Week: 51}, buckets[1].WeekKey)
}

func TestWeekKeyRespectsRecordLocation(t *testing.T) {
	toronto := time.FixedZone("EST", -5*60*60)

	// Sunday night locally is already Monday (next ISO week) in UTC.
	ts := time.Date(2025, time.January, 5, 23, 30, 0, 0, toronto)
	require.Equal(t, WeekKey{Year: 2025, Week: 1}, WeekKeyOf(ts))
	require.Equal(t, WeekKey{Year: 2025, Week: 2}, WeekKeyOf(ts.UTC()))
}

func TestComputeWeeklySnapshotSingleWeekHasNoPrevious(t *testing.T) {
	records := []domain.ActivityRecord{
		activityOn("a", day(2025, time.March, 3), domain.Float(2.5), domain.Float(0.25)),
		activityOn("b", day(2025, time.March, 5), domain.Float(2.5), domain.Float(0.25)),
	}

	snap, err := ComputeWeeklySnapshot(records)
	require.NoError(t, err)
	require.Equal(t, 2, snap.Activities)
	require.InDelta(t, 5.0, snap.Distance, 1e-9)
	require.InDelta(t, 0.5, snap.Time, 1e-9)

	require.False(t, snap.HasPrevious())
	require.Nil(t, snap.PreviousWeekActivities)
	require.Nil(t, snap.PreviousWeekDistance)
	require.Nil(t, snap.PreviousWeekTime)

	_, ok := snap.Deltas()
	require.False(t, ok)
}

func TestComputeWeeklySnapshotEmptyDataset(t *testing.T) {
	_, err := ComputeWeeklySnapshot(nil)
	require.ErrorIs(t, err, domain.ErrEmptyDataset)

	_, err = ComputeWeeklySnapshot([]domain.ActivityRecord{})
	require.ErrorIs(t, err, domain.ErrEmptyDataset)
}

func TestComputeWeeklySnapshotTreatsNullsAsZero(t *testing.T) {
	records := []domain.ActivityRecord{
		activityOn("a", day(2025, time.March, 3), nil, domain.Float(1)),
		activityOn("b", day(2025, time.March, 4), domain.Float(5.0), nil),
	}

	snap, err := ComputeWeeklySnapshot(records)
	require.NoError(t, err)
	require.Equal(t, 2, snap.Activities)
	require.InDelta(t, 5.0, snap.Distance, 1e-9)
	require.InDelta(t, 1.0, snap.Time, 1e-9)
}

func TestComputeWeeklySnapshotRoundsToTwoDecimals(t *testing.T) {
	records := []domain.ActivityRecord{
		activityOn("a", day(2025, time.March, 3), domain.Float(1.234), domain.Float(0.111)),
		activityOn("b", day(2025, time.March, 4), domain.Float(2.345), domain.Float(0.222)),
	}

	snap, err := ComputeWeeklySnapshot(records)
	require.NoError(t, err)
	require.InDelta(t, 3.58, snap.Distance, 1e-9)
	require.InDelta(t, 0.33, snap.Time, 1e-9)
}

func TestWeeklyComparisonDeltas(t *testing.T) {
	records := []domain.ActivityRecord{
		activityOn("a", day(2025, time.March, 3), domain.Float(4), domain.Float(0.5)),
		activityOn("b", day(2025, time.March, 10), domain.Float(10), domain.Float(1.25)),
		activityOn("c", day(2025, time.March, 11), domain.Float(1), domain.Float(0.25)),
	}

	snap, err := ComputeWeeklySnapshot(records)
	require.NoError(t, err)

	deltas, ok := snap.Deltas()
	require.True(t, ok)
	require.Equal(t, 1, deltas.Activities)
	require.InDelta(t, 7.0, deltas.Distance, 1e-9)
	require.InDelta(t, 1.0, deltas.Time, 1e-9)
}
