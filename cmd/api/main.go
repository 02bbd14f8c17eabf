package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/anishjoni/predict-my-run/internal/api"
	"github.com/anishjoni/predict-my-run/internal/auth"
	"github.com/anishjoni/predict-my-run/internal/config"
	"github.com/anishjoni/predict-my-run/internal/consumer"
	"github.com/anishjoni/predict-my-run/internal/dashboard"
	"github.com/anishjoni/predict-my-run/internal/logging"
	"github.com/anishjoni/predict-my-run/internal/persistence"
	httptransport "github.com/anishjoni/predict-my-run/internal/transport/http"
)

func main() {
	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log := logging.With("api")

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("configuration rejected")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source, closeSource, err := persistence.OpenSource(ctx, cfg.DataSource, cfg.PostgresURL, cfg.SQLitePath)
	if err != nil {
		log.Fatal().Err(err).Str("data_source", cfg.DataSource).Msg("failed to open activity store")
	}
	defer closeSource()

	cache := persistence.NewCachedSource(persistence.NewBreakerSource(source, persistence.BreakerSettings{}), cfg.CacheTTL)
	service := dashboard.NewService(cache,
		dashboard.WithLogger(logging.With("dashboard")),
		dashboard.WithZThreshold(cfg.ZThreshold),
		dashboard.WithTrackedSports(cfg.TrackedSports),
		dashboard.WithTrendSports(cfg.TrendSports),
	)

	router := api.NewRouter(api.NewHandler(service, cache), api.RouterConfig{
		Auth:               auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer},
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRequests:  cfg.RateLimitRequests,
		RateLimitWindow:    cfg.RateLimitWindow,
		Logger:             logging.With("http"),
	})

	var wg sync.WaitGroup
	if cfg.KafkaEnabled() {
		startConsumers(ctx, &wg, cfg, consumer.NewInvalidationHandler(cache, logging.With("consumer")), logging.With("consumer"))
	} else {
		log.Info().Msg("KAFKA_BROKERS not set, cache invalidation relies on TTL and /v1/dashboard/refresh")
	}

	server := httptransport.NewServer(httptransport.ServerConfig{Address: cfg.HTTPAddress}, router)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("address", cfg.HTTPAddress).Str("data_source", cfg.DataSource).Msg("dashboard api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-shutdownCh
	log.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	wg.Wait()
}

// startConsumers runs one processor per activity topic until ctx is cancelled.
func startConsumers(ctx context.Context, wg *sync.WaitGroup, cfg config.Config, handler consumer.Handler, log zerolog.Logger) {
	for _, topic := range cfg.ConsumerTopics {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:         cfg.KafkaBrokers,
			GroupID:         cfg.ConsumerGroupID,
			Topic:           topic,
			MinBytes:        1e3,
			MaxBytes:        10e6,
			CommitInterval:  time.Second,
			RetentionTime:   24 * time.Hour,
			ReadLagInterval: -1,
		})

		proc := consumer.NewProcessor(reader, handler, consumer.WithLogger(log.With().Str("topic", topic).Logger()))

		wg.Add(1)
		go func(topic string, r *kafka.Reader) {
			defer wg.Done()
			defer r.Close()

			log.Info().Str("topic", topic).Str("group", cfg.ConsumerGroupID).Msg("consumer started")
			if err := proc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Str("topic", topic).Msg("consumer stopped with error")
			}
		}(topic, reader)
	}
}
