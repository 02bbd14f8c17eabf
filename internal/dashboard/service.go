// Package dashboard composes the analytics over an activity source into the
// views rendered by the dashboard.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/anishjoni/predict-my-run/internal/analytics"
	"github.com/anishjoni/predict-my-run/internal/domain"
	"github.com/anishjoni/predict-my-run/internal/logging"
	"github.com/anishjoni/predict-my-run/internal/observability"
)

// Service loads the dataset from its source and runs the dashboard computations.
type Service struct {
	source        domain.ActivitySource
	now           func() time.Time
	logger        zerolog.Logger
	zThreshold    float64
	trackedSports []string
	trendSports   []string
}

// Option configures the Service.
type Option func(*Service)

// WithClock overrides the clock used for recency calculations and snapshot timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithZThreshold sets the default z threshold for the outlier filter.
func WithZThreshold(z float64) Option {
	return func(s *Service) {
		if z > 0 {
			s.zThreshold = z
		}
	}
}

// WithTrackedSports sets the sports shown on the recency tiles.
func WithTrackedSports(sports []string) Option {
	return func(s *Service) {
		if len(sports) > 0 {
			s.trackedSports = append([]string(nil), sports...)
		}
	}
}

// WithTrendSports sets the sports plotted on the moving time trend.
func WithTrendSports(sports []string) Option {
	return func(s *Service) {
		if len(sports) > 0 {
			s.trendSports = append([]string(nil), sports...)
		}
	}
}

// NewService constructs a Service.
func NewService(source domain.ActivitySource, opts ...Option) *Service {
	s := &Service{
		source:        source,
		now:           time.Now,
		logger:        logging.With("dashboard"),
		zThreshold:    analytics.DefaultZThreshold,
		trackedSports: analytics.DefaultTrackedSports,
		trendSports:   analytics.DefaultTrendSports,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MapData is the point layer plus its initial camera.
type MapData struct {
	Points []analytics.MapPoint `json:"points"`
	View   analytics.ViewState  `json:"view"`
}

// Snapshot bundles every dashboard view computed from one load of the dataset.
type Snapshot struct {
	GeneratedAt time.Time
	Weekly      analytics.WeeklyComparison
	Sports      []analytics.SportCount
	Recency     analytics.Recency
	MovingTime  *analytics.Frame
	Map         MapData
}

// Weekly returns the latest week compared with the one before it.
func (s *Service) Weekly(ctx context.Context) (analytics.WeeklyComparison, error) {
	records, err := s.load(ctx)
	if err != nil {
		return analytics.WeeklyComparison{}, err
	}
	return s.weekly(records)
}

// Sports returns the activity count per sport.
func (s *Service) Sports(ctx context.Context) ([]analytics.SportCount, error) {
	records, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.SportCounts(records), nil
}

// Recency returns days since the first activity and since the last of each tracked sport.
func (s *Service) Recency(ctx context.Context) (analytics.Recency, error) {
	records, err := s.load(ctx)
	if err != nil {
		return analytics.Recency{}, err
	}
	return analytics.ComputeRecency(records, wallClock(s.now()), s.trackedSports)
}

// MovingTime returns the yearly mean moving time per trend sport with outlying
// means removed. A zero z uses the configured threshold.
func (s *Service) MovingTime(ctx context.Context, z float64) (*analytics.Frame, error) {
	records, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.movingTime(records, z)
}

// Outliers filters the activity table on column, optionally per groupBy group.
func (s *Service) Outliers(ctx context.Context, column, groupBy string, z float64) (*analytics.Frame, error) {
	records, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.filter(analytics.ActivityFrame(records), column, groupBy, z)
}

// Map returns the activity start points and the camera centred on them.
func (s *Service) Map(ctx context.Context) (MapData, error) {
	records, err := s.load(ctx)
	if err != nil {
		return MapData{}, err
	}
	return mapData(records), nil
}

// Snapshot computes every view from a single load.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	records, err := s.load(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	now := s.now()
	weekly, err := s.weekly(records)
	if err != nil {
		return Snapshot{}, err
	}
	recency, err := analytics.ComputeRecency(records, wallClock(now), s.trackedSports)
	if err != nil {
		return Snapshot{}, err
	}
	movingTime, err := s.movingTime(records, 0)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		GeneratedAt: now,
		Weekly:      weekly,
		Sports:      analytics.SportCounts(records),
		Recency:     recency,
		MovingTime:  movingTime,
		Map:         mapData(records),
	}, nil
}

func (s *Service) load(ctx context.Context) ([]domain.ActivityRecord, error) {
	records, err := s.source.ListActivities(ctx)
	if err != nil {
		return nil, fmt.Errorf("load activities: %w", err)
	}
	return records, nil
}

func (s *Service) weekly(records []domain.ActivityRecord) (analytics.WeeklyComparison, error) {
	cmp, err := analytics.ComputeWeeklySnapshot(records)
	if err != nil {
		return analytics.WeeklyComparison{}, err
	}
	observability.RecordWeeklySnapshot(s.now(), cmp.HasPrevious())
	if !cmp.HasPrevious() {
		s.logger.Warn().
			Str("week", cmp.WeekKey.String()).
			Msg("insufficient history for week-over-week comparison")
	}
	return cmp, nil
}

func (s *Service) movingTime(records []domain.ActivityRecord, z float64) (*analytics.Frame, error) {
	means := analytics.MovingTimeByYear(records, s.trendSports)
	return s.filter(means, analytics.ColMovingTimeHr, "", z)
}

func (s *Service) filter(f *analytics.Frame, column, groupBy string, z float64) (*analytics.Frame, error) {
	if z == 0 {
		z = s.zThreshold
	}
	out, err := analytics.FilterOutliers(f, column, analytics.OutlierOptions{GroupBy: groupBy, ZThreshold: z})
	if err != nil {
		return nil, err
	}
	removed := f.Len() - out.Len()
	observability.RecordOutliersRemoved(column, groupBy, removed)
	if removed > 0 {
		s.logger.Debug().
			Str("column", column).
			Str("group_by", groupBy).
			Float64("z", z).
			Int("removed", removed).
			Msg("outliers removed")
	}
	return out, nil
}

func mapData(records []domain.ActivityRecord) MapData {
	points := analytics.MapPoints(records)
	return MapData{Points: points, View: analytics.MapView(points)}
}

// wallClock re-labels now's local wall-clock reading as UTC. Stores return
// start_date_local as a zone-less wall clock tagged UTC, so recency must
// subtract like for like.
func wallClock(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), time.UTC)
}
