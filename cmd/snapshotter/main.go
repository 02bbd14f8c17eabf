package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anishjoni/predict-my-run/internal/config"
	"github.com/anishjoni/predict-my-run/internal/dashboard"
	"github.com/anishjoni/predict-my-run/internal/logging"
	"github.com/anishjoni/predict-my-run/internal/persistence"
	"github.com/anishjoni/predict-my-run/internal/publisher"
	httptransport "github.com/anishjoni/predict-my-run/internal/transport/http"
)

func main() {
	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log := logging.With("snapshotter")

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("configuration rejected")
	}
	if !cfg.KafkaEnabled() {
		log.Fatal().Msg("KAFKA_BROKERS is required to publish snapshots")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source, closeSource, err := persistence.OpenSource(ctx, cfg.DataSource, cfg.PostgresURL, cfg.SQLitePath)
	if err != nil {
		log.Fatal().Err(err).Str("data_source", cfg.DataSource).Msg("failed to open activity store")
	}
	defer closeSource()

	guarded := persistence.NewBreakerSource(source, persistence.BreakerSettings{})
	service := dashboard.NewService(guarded,
		dashboard.WithLogger(logging.With("dashboard")),
		dashboard.WithZThreshold(cfg.ZThreshold),
		dashboard.WithTrackedSports(cfg.TrackedSports),
		dashboard.WithTrendSports(cfg.TrendSports),
	)

	producer := publisher.NewSnapshotWriter(cfg.KafkaBrokers)
	defer producer.Close()

	opts := []publisher.Option{publisher.WithLogger(logging.With("publisher"))}
	if cfg.SchemaRegistryURL != "" {
		opts = append(opts, publisher.WithSchemaRegistry(publisher.NewSchemaRegistryClient(cfg.SchemaRegistryURL)))
	}
	pub := publisher.NewPublisher(service, producer, cfg.SnapshotTopic, cfg.SnapshotInterval, opts...)

	metricsSrv := httptransport.NewMetricsServer(cfg.MetricsAddress)
	go func() {
		log.Info().Str("address", cfg.MetricsAddress).Msg("snapshotter metrics listening")
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server error")
		}
	}()

	go pub.Start(ctx)
	log.Info().
		Str("topic", cfg.SnapshotTopic).
		Dur("interval", cfg.SnapshotInterval).
		Msg("snapshotter started")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info().Msg("snapshotter received shutdown signal")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("metrics server shutdown error")
	}

	pub.Wait()
}
