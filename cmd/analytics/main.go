package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/couchcryptid/sanitation-analytics-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/sanitation-analytics-service/internal/adapter/kafka"
	"github.com/couchcryptid/sanitation-analytics-service/internal/adapter/mapbox"
	"github.com/couchcryptid/sanitation-analytics-service/internal/adapter/postgres"
	"github.com/couchcryptid/sanitation-analytics-service/internal/config"
	"github.com/couchcryptid/sanitation-analytics-service/internal/domain"
	"github.com/couchcryptid/sanitation-analytics-service/internal/forecast"
	"github.com/couchcryptid/sanitation-analytics-service/internal/observability"
	"github.com/couchcryptid/sanitation-analytics-service/internal/pipeline"
	"github.com/couchcryptid/sanitation-analytics-service/internal/report"
	"github.com/couchcryptid/sanitation-analytics-service/internal/store"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// eventStore is both the pipeline sink and the analytics query source.
type eventStore interface {
	domain.EventQuery
	pipeline.BatchLoader
}

// readiness is ready when every checker is.
type readiness []sharedobs.ReadinessChecker

func (r readiness) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	events, closeStore, storeReady, err := openEventStore(ctx, cfg, metrics)
	if err != nil {
		logger.Error("failed to open event store", "error", err, "event_source", cfg.EventSource)
		os.Exit(1)
	}
	defer closeStore()
	logger.Info("event store opened", "event_source", cfg.EventSource)

	// Geocoding is feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN.
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	transformer := pipeline.NewTransformer(geocoder, logger)
	p := pipeline.New(reader, transformer, events, logger, metrics, cfg.BatchSize)

	ready := readiness{p}
	if storeReady != nil {
		ready = append(ready, storeReady)
	}

	api := httpadapter.NewAPI(events, httpadapter.Options{
		Forecaster:          forecast.New(forecast.Config{DefaultLookbackDays: cfg.ForecastLookbackDays}),
		HotspotLookbackDays: cfg.HotspotLookbackDays,
	}, metrics, logger)
	srv := httpadapter.NewServer(cfg.HTTPAddr, ready, api, logger)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	var writer *kafkaadapter.Writer
	if cfg.ReportEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		reporter := report.New(events, writer, report.Options{Interval: cfg.ReportInterval}, metrics, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := reporter.Run(ctx); err != nil {
				logger.Error("risk reporter error", "error", err)
			}
		}()
	} else {
		logger.Info("risk reporter disabled")
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	wg.Wait()
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// openEventStore returns the configured event source, a close function, and
// an optional readiness checker for external stores.
func openEventStore(ctx context.Context, cfg *config.Config, metrics *observability.Metrics) (eventStore, func(), sharedobs.ReadinessChecker, error) {
	switch cfg.EventSource {
	case config.EventSourcePostgres:
		repo, err := postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := repo.Migrate(ctx); err != nil {
			_ = repo.Close()
			return nil, nil, nil, err
		}
		return repo, func() { _ = repo.Close() }, repo, nil
	case config.EventSourceMemory:
		mem := store.NewMemory(store.Options{
			Retention: cfg.StoreRetention,
			MaxEvents: cfg.StoreMaxEvents,
			Metrics:   metrics,
		})
		return mem, func() {}, nil, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown event source %q", cfg.EventSource)
	}
}
