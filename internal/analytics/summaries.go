package analytics

import (
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/anishjoni/predict-my-run/internal/domain"
)

// Default sport selections used by the dashboard charts and recency tiles.
var (
	DefaultTrendSports   = []string{"Run", "Walk", "Ride"}
	DefaultTrackedSports = []string{"Run", "Walk", "Hike", "Ride"}
)

// SportCount is the number of activities logged for one sport type.
type SportCount struct {
	SportType string `json:"sport_type"`
	Count     int    `json:"count"`
}

// SportCounts tallies activities per sport, most frequent first. Sports seen only
// once are left out to keep one-off imports off the chart.
func SportCounts(records []domain.ActivityRecord) []SportCount {
	counts := make(map[string]int)
	for _, rec := range records {
		counts[rec.SportType]++
	}

	out := make([]SportCount, 0, len(counts))
	for sport, n := range counts {
		if n > 1 {
			out = append(out, SportCount{SportType: sport, Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].SportType < out[j].SportType
	})
	return out
}

type sportYear struct {
	sport string
	year  int
}

// MovingTimeByYear returns the mean moving time per (sport, calendar year) for
// the given sports, latest year first. Null moving times are excluded from the
// mean; a group with none yields a null cell.
func MovingTimeByYear(records []domain.ActivityRecord, sports []string) *Frame {
	wanted := make(map[string]struct{}, len(sports))
	for _, s := range sports {
		wanted[s] = struct{}{}
	}

	samples := make(map[sportYear][]float64)
	for _, rec := range records {
		if _, ok := wanted[rec.SportType]; !ok {
			continue
		}
		key := sportYear{sport: rec.SportType, year: rec.StartDateLocal.Year()}
		xs := samples[key]
		if rec.MovingTimeHr != nil {
			xs = append(xs, *rec.MovingTimeHr)
		}
		samples[key] = xs
	}

	keys := make([]sportYear, 0, len(samples))
	for k := range samples {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year > keys[j].year
		}
		return keys[i].sport < keys[j].sport
	})

	columns := []string{ColSportType, ColActivityYear, ColMovingTimeHr}
	index := map[string]int{ColSportType: 0, ColActivityYear: 1, ColMovingTimeHr: 2}
	rows := make([][]any, 0, len(keys))
	for _, k := range keys {
		var mean any
		if m, err := stats.Mean(samples[k]); err == nil {
			mean = m
		}
		rows = append(rows, []any{k.sport, k.year, mean})
	}
	return &Frame{columns: columns, index: index, rows: rows}
}

// Recency describes how long ago activity started and last happened per sport.
type Recency struct {
	DaysSinceFirstActivity int                      `json:"days_since_first_activity"`
	SinceLast              map[string]time.Duration `json:"-"`
}

// DaysSinceLast returns whole days since the last activity of sport.
func (r Recency) DaysSinceLast(sport string) (int, bool) {
	d, ok := r.SinceLast[sport]
	if !ok {
		return 0, false
	}
	return int(d / (24 * time.Hour)), true
}

// ComputeRecency measures elapsed time relative to now. Sports without any
// activity are absent from SinceLast.
func ComputeRecency(records []domain.ActivityRecord, now time.Time, sports []string) (Recency, error) {
	if len(records) == 0 {
		return Recency{}, domain.ErrEmptyDataset
	}

	tracked := make(map[string]struct{}, len(sports))
	for _, s := range sports {
		tracked[s] = struct{}{}
	}

	first := records[0].StartDateLocal
	last := make(map[string]time.Time)
	for _, rec := range records {
		if rec.StartDateLocal.Before(first) {
			first = rec.StartDateLocal
		}
		if _, ok := tracked[rec.SportType]; !ok {
			continue
		}
		if prev, ok := last[rec.SportType]; !ok || rec.StartDateLocal.After(prev) {
			last[rec.SportType] = rec.StartDateLocal
		}
	}

	out := Recency{
		DaysSinceFirstActivity: int(now.Sub(first) / (24 * time.Hour)),
		SinceLast:              make(map[string]time.Duration, len(last)),
	}
	for sport, ts := range last {
		out.SinceLast[sport] = now.Sub(ts)
	}
	return out, nil
}
