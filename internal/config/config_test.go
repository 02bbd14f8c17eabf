package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DATA_SOURCE", "KAFKA_BROKERS", "CACHE_TTL", "Z_THRESHOLD", "TREND_SPORTS", "LOG_FORMAT"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	require.NoError(t, cfg.Validate())
	require.Equal(t, SourcePostgres, cfg.DataSource)
	require.Equal(t, 10*time.Minute, cfg.CacheTTL)
	require.Equal(t, 3.0, cfg.ZThreshold)
	require.Equal(t, []string{"Run", "Walk", "Ride"}, cfg.TrendSports)
	require.Equal(t, []string{"Run", "Walk", "Hike", "Ride"}, cfg.TrackedSports)
	require.Equal(t, []string{"activity_events", "activity_state_changed"}, cfg.ConsumerTopics)
	require.False(t, cfg.KafkaEnabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATA_SOURCE", "SQLite")
	t.Setenv("SQLITE_PATH", "/var/lib/dashboard/activities.db")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092 ,")
	t.Setenv("Z_THRESHOLD", "2.5")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("TRACKED_SPORTS", "Run, Swim")
	t.Setenv("RATE_LIMIT_REQUESTS", "0")

	cfg := Load()
	require.NoError(t, cfg.Validate())
	require.Equal(t, SourceSQLite, cfg.DataSource)
	require.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	require.True(t, cfg.KafkaEnabled())
	require.Equal(t, 2.5, cfg.ZThreshold)
	require.Equal(t, 90*time.Second, cfg.CacheTTL)
	require.Equal(t, []string{"Run", "Swim"}, cfg.TrackedSports)
	require.Zero(t, cfg.RateLimitRequests)
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("Z_THRESHOLD", "three")
	t.Setenv("SNAPSHOT_INTERVAL", "soon")

	cfg := Load()
	require.Equal(t, 3.0, cfg.ZThreshold)
	require.Equal(t, time.Minute, cfg.SnapshotInterval)
}

func TestValidateReportsViolations(t *testing.T) {
	cfg := Load()
	cfg.DataSource = "duckdb"
	cfg.ZThreshold = -1
	cfg.KafkaBrokers = []string{"not a broker"}
	cfg.LogFormat = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "Config.DataSource")
	require.Contains(t, err.Error(), "Config.ZThreshold")
	require.Contains(t, err.Error(), "Config.KafkaBrokers[0]")
	require.Contains(t, err.Error(), "Config.LogFormat")
}

func TestValidateRequiresPathForSelectedSource(t *testing.T) {
	cfg := Load()
	cfg.DataSource = SourceSQLite
	cfg.SQLitePath = ""
	require.ErrorContains(t, cfg.Validate(), "Config.SQLitePath")

	cfg.DataSource = SourcePostgres
	require.NoError(t, cfg.Validate())
}
