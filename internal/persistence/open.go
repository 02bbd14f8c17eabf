package persistence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anishjoni/predict-my-run/internal/domain"
	"github.com/anishjoni/predict-my-run/internal/persistence/postgres"
	"github.com/anishjoni/predict-my-run/internal/persistence/sqlite"
)

// OpenSource connects to the configured store. The returned func releases it.
func OpenSource(ctx context.Context, kind, postgresURL, sqlitePath string) (domain.ActivitySource, func(), error) {
	switch kind {
	case "postgres":
		pool, err := pgxpool.New(ctx, postgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		return postgres.NewSource(pool), pool.Close, nil
	case "sqlite":
		src, err := sqlite.Open(sqlitePath)
		if err != nil {
			return nil, nil, err
		}
		return src, func() { _ = src.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown data source %q", kind)
	}
}
