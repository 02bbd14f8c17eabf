package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anishjoni/predict-my-run/internal/domain"
)

const listActivitiesQuery = `SELECT activity_id, sport_type, start_date_local, distance_km, moving_time_hr, start_latitude, start_longitude
        FROM activities ORDER BY start_date_local, activity_id`

// Source reads the activity dataset from Postgres.
type Source struct {
	pool *pgxpool.Pool
}

// NewSource constructs a Source. The pool is owned by the caller.
func NewSource(pool *pgxpool.Pool) *Source {
	return &Source{pool: pool}
}

// ListActivities returns every stored activity ordered by start time.
func (s *Source) ListActivities(ctx context.Context) ([]domain.ActivityRecord, error) {
	rows, err := s.pool.Query(ctx, listActivitiesQuery)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	results := make([]domain.ActivityRecord, 0, 256)
	for rows.Next() {
		var rec domain.ActivityRecord
		if err := rows.Scan(
			&rec.ActivityID,
			&rec.SportType,
			&rec.StartDateLocal,
			&rec.DistanceKm,
			&rec.MovingTimeHr,
			&rec.StartLatitude,
			&rec.StartLongitude,
		); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}

	if err := domain.ValidateRecords(results); err != nil {
		return nil, err
	}
	return results, nil
}
