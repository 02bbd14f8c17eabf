package api

import (
	"time"

	"github.com/anishjoni/predict-my-run/internal/analytics"
	"github.com/anishjoni/predict-my-run/internal/dashboard"
)

// WeeklyView is the metric tile payload: current week, previous week and deltas.
type WeeklyView struct {
	WeekKey                string                  `json:"week_key"`
	Year                   int                     `json:"activity_year"`
	Week                   int                     `json:"week"`
	Activities             int                     `json:"activities"`
	Distance               float64                 `json:"distance"`
	Time                   float64                 `json:"time"`
	HasPrevious            bool                    `json:"has_previous"`
	PreviousWeekActivities *int                    `json:"previous_week_activities"`
	PreviousWeekDistance   *float64                `json:"previous_week_distance"`
	PreviousWeekTime       *float64                `json:"previous_week_time"`
	Deltas                 *analytics.WeeklyDeltas `json:"deltas,omitempty"`
}

// SportsResponse lists activity counts per sport.
type SportsResponse struct {
	Items []analytics.SportCount `json:"items"`
}

// RecencyView reports elapsed whole days.
type RecencyView struct {
	DaysSinceFirstActivity int            `json:"days_since_first_activity"`
	DaysSinceLast          map[string]int `json:"days_since_last"`
}

// FrameView is a table payload.
type FrameView struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
	Count   int              `json:"count"`
}

// DashboardResponse is the full dashboard from one dataset load.
type DashboardResponse struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Weekly      WeeklyView        `json:"weekly"`
	Sports      SportsResponse    `json:"sports"`
	Recency     RecencyView       `json:"recency"`
	MovingTime  FrameView         `json:"moving_time"`
	Map         dashboard.MapData `json:"map"`
}

func toWeeklyView(cmp analytics.WeeklyComparison) WeeklyView {
	view := WeeklyView{
		WeekKey:                cmp.WeekKey.String(),
		Year:                   cmp.Year,
		Week:                   cmp.Week,
		Activities:             cmp.Activities,
		Distance:               cmp.Distance,
		Time:                   cmp.Time,
		HasPrevious:            cmp.HasPrevious(),
		PreviousWeekActivities: cmp.PreviousWeekActivities,
		PreviousWeekDistance:   cmp.PreviousWeekDistance,
		PreviousWeekTime:       cmp.PreviousWeekTime,
	}
	if d, ok := cmp.Deltas(); ok {
		view.Deltas = &d
	}
	return view
}

func toRecencyView(rec analytics.Recency) RecencyView {
	days := make(map[string]int, len(rec.SinceLast))
	for sport := range rec.SinceLast {
		days[sport], _ = rec.DaysSinceLast(sport)
	}
	return RecencyView{DaysSinceFirstActivity: rec.DaysSinceFirstActivity, DaysSinceLast: days}
}

func toFrameView(f *analytics.Frame) FrameView {
	if f == nil {
		return FrameView{Columns: []string{}, Rows: []map[string]any{}}
	}
	return FrameView{Columns: f.Columns(), Rows: f.Records(), Count: f.Len()}
}
