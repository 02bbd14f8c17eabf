package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/anishjoni/predict-my-run/internal/domain"
)

func sportOn(id, sport string, ts time.Time, moving *float64) domain.ActivityRecord {
	return domain.ActivityRecord{ActivityID: id, SportType: sport, StartDateLocal: ts, MovingTimeHr: moving}
}

func TestSportCountsSortedAndSingletonsDropped(t *testing.T) {
	ts := day(2025, time.May, 1)
	records := []domain.ActivityRecord{
		sportOn("1", "Run", ts, nil),
		sportOn("2", "Run", ts, nil),
		sportOn("3", "Run", ts, nil),
		sportOn("4", "Walk", ts, nil),
		sportOn("5", "Walk", ts, nil),
		sportOn("6", "Hike", ts, nil),
		sportOn("7", "Hike", ts, nil),
		sportOn("8", "Yoga", ts, nil),
	}

	require.Equal(t, []SportCount{
		{SportType: "Run", Count: 3},
		{SportType: "Hike", Count: 2},
		{SportType: "Walk", Count: 2},
	}, SportCounts(records))
}

func TestMovingTimeByYear(t *testing.T) {
	records := []domain.ActivityRecord{
		sportOn("1", "Run", day(2024, time.June, 1), domain.Float(1)),
		sportOn("2", "Run", day(2024, time.July, 1), domain.Float(2)),
		sportOn("3", "Run", day(2025, time.June, 1), domain.Float(0.5)),
		sportOn("4", "Ride", day(2025, time.June, 2), nil),
		sportOn("5", "Walk", day(2025, time.June, 3), domain.Float(0.75)),
		sportOn("6", "Hike", day(2025, time.June, 4), domain.Float(4)),
	}

	f := MovingTimeByYear(records, DefaultTrendSports)
	require.Equal(t, []string{ColSportType, ColActivityYear, ColMovingTimeHr}, f.Columns())
	require.Equal(t, []map[string]any{
		{ColSportType: "Ride", ColActivityYear: 2025, ColMovingTimeHr: nil},
		{ColSportType: "Run", ColActivityYear: 2025, ColMovingTimeHr: 0.5},
		{ColSportType: "Walk", ColActivityYear: 2025, ColMovingTimeHr: 0.75},
		{ColSportType: "Run", ColActivityYear: 2024, ColMovingTimeHr: 1.5},
	}, f.Records())
}

func TestComputeRecency(t *testing.T) {
	now := time.Date(2025, time.June, 30, 12, 0, 0, 0, time.UTC)
	records := []domain.ActivityRecord{
		sportOn("1", "Run", now.Add(-100*24*time.Hour), nil),
		sportOn("2", "Run", now.Add(-3*24*time.Hour), nil),
		sportOn("3", "Walk", now.Add(-36*time.Hour), nil),
		sportOn("4", "Yoga", now.Add(-200*24*time.Hour), nil),
	}

	rec, err := ComputeRecency(records, now, DefaultTrackedSports)
	require.NoError(t, err)
	require.Equal(t, 200, rec.DaysSinceFirstActivity)

	days, ok := rec.DaysSinceLast("Run")
	require.True(t, ok)
	require.Equal(t, 3, days)

	days, ok = rec.DaysSinceLast("Walk")
	require.True(t, ok)
	require.Equal(t, 1, days)

	_, ok = rec.DaysSinceLast("Ride")
	require.False(t, ok)
	_, ok = rec.DaysSinceLast("Yoga")
	require.False(t, ok)

	_, err = ComputeRecency(nil, now, DefaultTrackedSports)
	require.ErrorIs(t, err, domain.ErrEmptyDataset)
}

func TestActivityFrameDerivesTimeParts(t *testing.T) {
	ts := time.Date(2025, time.March, 9, 18, 45, 0, 0, time.UTC) // Sunday
	f := ActivityFrame([]domain.ActivityRecord{{
		ActivityID:     "x",
		SportType:      "Ride",
		StartDateLocal: ts,
		DistanceKm:     domain.Float(21.1),
	}})

	require.Equal(t, 1, f.Len())
	rec := f.Records()[0]
	require.Equal(t, "x", rec[ColActivityID])
	require.Equal(t, 21.1, rec[ColDistanceKm])
	require.Nil(t, rec[ColMovingTimeHr])
	require.Nil(t, rec[ColStartLatitude])
	require.Equal(t, 2025, rec[ColActivityYear])
	require.Equal(t, 3, rec[ColActivityMonth])
	require.Equal(t, 7, rec[ColActivityWeekday])
	require.Equal(t, 18, rec[ColActivityHour])
}

func TestNewFrameValidatesShape(t *testing.T) {
	_, err := NewFrame([]string{"a", "a"}, nil)
	require.Error(t, err)

	_, err = NewFrame([]string{"a", "b"}, [][]any{{1}})
	require.Error(t, err)
}

func TestMapPointsDropsNullAndInvalid(t *testing.T) {
	records := []domain.ActivityRecord{
		{ActivityID: "1", StartLatitude: domain.Float(43.65), StartLongitude: domain.Float(-79.38)},
		{ActivityID: "2", StartLatitude: domain.Float(43.70)},
		{ActivityID: "3"},
		{ActivityID: "4", StartLatitude: domain.Float(123), StartLongitude: domain.Float(10)},
		{ActivityID: "5", StartLatitude: domain.Float(43.67), StartLongitude: domain.Float(-79.40)},
	}

	require.Equal(t, []MapPoint{
		{Lat: 43.65, Lon: -79.38},
		{Lat: 43.67, Lon: -79.40},
	}, MapPoints(records))
}

func TestMapViewCentresOnPoints(t *testing.T) {
	require.Equal(t, DefaultView, MapView(nil))

	view := MapView([]MapPoint{{Lat: 40, Lon: -80}, {Lat: 42, Lon: -78}})
	require.InDelta(t, 41.0, view.Latitude, 1e-6)
	require.InDelta(t, -79.0, view.Longitude, 1e-6)
	require.Equal(t, DefaultView.Zoom, view.Zoom)
	require.Equal(t, DefaultView.Pitch, view.Pitch)
}
