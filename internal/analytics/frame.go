// Package analytics holds the pure computations behind the dashboard: outlier
// trimming, weekly snapshots and the summary tables handed to the renderer.
package analytics

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/anishjoni/predict-my-run/internal/domain"
)

// Column names produced by ActivityFrame.
const (
	ColActivityID      = "activity_id"
	ColSportType       = "sport_type"
	ColStartDateLocal  = "start_date_local"
	ColDistanceKm      = "distance_km"
	ColMovingTimeHr    = "moving_time_hr"
	ColStartLatitude   = "start_latitude"
	ColStartLongitude  = "start_longitude"
	ColActivityYear    = "activity_year"
	ColActivityMonth   = "activity_month"
	ColActivityWeekday = "activity_weekday"
	ColActivityHour    = "activity_hour"
)

// ErrNonNumeric is returned when a numeric operation meets a non-numeric cell.
var ErrNonNumeric = errors.New("value is not numeric")

// Frame is an ordered table with named columns. A nil cell is null.
// Frames are never modified after construction.
type Frame struct {
	columns []string
	index   map[string]int
	rows    [][]any
}

// NewFrame validates the shape of rows against columns. Rows are copied.
func NewFrame(columns []string, rows [][]any) (*Frame, error) {
	index := make(map[string]int, len(columns))
	for i, name := range columns {
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		index[name] = i
	}

	copied := make([][]any, len(rows))
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(columns))
		}
		copied[i] = append([]any(nil), row...)
	}

	return &Frame{
		columns: append([]string(nil), columns...),
		index:   index,
		rows:    copied,
	}, nil
}

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	return append([]string(nil), f.columns...)
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.rows)
}

// HasColumn reports whether name is a column of f.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Row returns a copy of row i.
func (f *Frame) Row(i int) []any {
	return append([]any(nil), f.rows[i]...)
}

// Value returns the cell at row i for column.
func (f *Frame) Value(i int, column string) (any, error) {
	col, ok := f.index[column]
	if !ok {
		return nil, &domain.MissingColumnError{Column: column}
	}
	return f.rows[i][col], nil
}

// Records returns every row as a column-keyed map, in row order.
func (f *Frame) Records() []map[string]any {
	out := make([]map[string]any, 0, len(f.rows))
	for _, row := range f.rows {
		rec := make(map[string]any, len(f.columns))
		for i, name := range f.columns {
			rec[name] = row[i]
		}
		out = append(out, rec)
	}
	return out
}

func (f *Frame) columnIndex(name string) (int, error) {
	col, ok := f.index[name]
	if !ok {
		return 0, &domain.MissingColumnError{Column: name}
	}
	return col, nil
}

// selectRows builds a frame from the rows whose keep flag is set. Rows are
// shared with f; neither frame mutates them.
func (f *Frame) selectRows(keep []bool) *Frame {
	rows := make([][]any, 0, len(f.rows))
	for i, row := range f.rows {
		if keep[i] {
			rows = append(rows, row)
		}
	}
	return &Frame{columns: f.columns, index: f.index, rows: rows}
}

// numeric converts a cell to float64. Null cells, nil pointers, NaN and ±Inf report ok=false.
func numeric(v any) (value float64, ok bool, err error) {
	switch n := v.(type) {
	case nil:
		return 0, false, nil
	case float64:
		value = n
	case float32:
		value = float64(n)
	case int:
		value = float64(n)
	case int32:
		value = float64(n)
	case int64:
		value = float64(n)
	case *float64:
		if n == nil {
			return 0, false, nil
		}
		value = *n
	default:
		return 0, false, fmt.Errorf("%w: %T", ErrNonNumeric, v)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false, nil
	}
	return value, true, nil
}

// ActivityFrame projects records into a Frame with the raw columns followed by
// the derived time components.
func ActivityFrame(records []domain.ActivityRecord) *Frame {
	columns := []string{
		ColActivityID, ColSportType, ColStartDateLocal,
		ColDistanceKm, ColMovingTimeHr, ColStartLatitude, ColStartLongitude,
		ColActivityYear, ColActivityMonth, ColActivityWeekday, ColActivityHour,
	}
	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		parts := DeriveTimeParts(rec.StartDateLocal)
		rows = append(rows, []any{
			rec.ActivityID,
			rec.SportType,
			rec.StartDateLocal,
			nullable(rec.DistanceKm),
			nullable(rec.MovingTimeHr),
			nullable(rec.StartLatitude),
			nullable(rec.StartLongitude),
			parts.Year,
			parts.Month,
			parts.Weekday,
			parts.Hour,
		})
	}
	index := make(map[string]int, len(columns))
	for i, name := range columns {
		index[name] = i
	}
	return &Frame{columns: columns, index: index, rows: rows}
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// TimeParts are the calendar components the dashboard charts group by.
type TimeParts struct {
	Year    int
	Month   int
	Weekday int // ISO: 1 = Monday .. 7 = Sunday
	Hour    int
}

// DeriveTimeParts splits t in its own location.
func DeriveTimeParts(t time.Time) TimeParts {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return TimeParts{
		Year:    t.Year(),
		Month:   int(t.Month()),
		Weekday: weekday,
		Hour:    t.Hour(),
	}
}
