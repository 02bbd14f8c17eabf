// Package sqlite reads the activity dataset from a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/anishjoni/predict-my-run/internal/domain"
)

// The cast keeps the driver from converting declared TIMESTAMP columns itself.
const listActivitiesQuery = `SELECT activity_id, sport_type, CAST(start_date_local AS TEXT) AS start_date_local,
		distance_km, moving_time_hr, start_latitude, start_longitude
	FROM activities ORDER BY start_date_local, activity_id`

// Layouts accepted for start_date_local, tried in order.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02",
}

type activityRow struct {
	ActivityID     string          `db:"activity_id"`
	SportType      string          `db:"sport_type"`
	StartDateLocal string          `db:"start_date_local"`
	DistanceKm     sql.NullFloat64 `db:"distance_km"`
	MovingTimeHr   sql.NullFloat64 `db:"moving_time_hr"`
	StartLatitude  sql.NullFloat64 `db:"start_latitude"`
	StartLongitude sql.NullFloat64 `db:"start_longitude"`
}

// Source is an activity source over a SQLite database.
type Source struct {
	db *sqlx.DB
}

// Open connects to the database at path.
func Open(path string) (*Source, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	return &Source{db: db}, nil
}

// NewSource wraps an existing connection.
func NewSource(db *sqlx.DB) *Source {
	return &Source{db: db}
}

// Close releases the underlying connection pool.
func (s *Source) Close() error {
	return s.db.Close()
}

// ListActivities returns every stored activity ordered by start time.
func (s *Source) ListActivities(ctx context.Context) ([]domain.ActivityRecord, error) {
	var rows []activityRow
	if err := s.db.SelectContext(ctx, &rows, listActivitiesQuery); err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}

	results := make([]domain.ActivityRecord, 0, len(rows))
	for _, row := range rows {
		started, err := parseTimestamp(row.StartDateLocal)
		if err != nil {
			return nil, fmt.Errorf("activity %s: %w", row.ActivityID, err)
		}
		results = append(results, domain.ActivityRecord{
			ActivityID:     row.ActivityID,
			SportType:      row.SportType,
			StartDateLocal: started,
			DistanceKm:     nullable(row.DistanceKm),
			MovingTimeHr:   nullable(row.MovingTimeHr),
			StartLatitude:  nullable(row.StartLatitude),
			StartLongitude: nullable(row.StartLongitude),
		})
	}

	if err := domain.ValidateRecords(results); err != nil {
		return nil, err
	}
	return results, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised start_date_local %q", raw)
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return domain.Float(v.Float64)
}
