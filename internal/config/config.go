package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Event sources for the analytics query path.
const (
	EventSourceMemory   = "memory"
	EventSourcePostgres = "postgres"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	// Event query source.
	EventSource    string
	PostgresURL    string
	StoreRetention time.Duration
	StoreMaxEvents int

	// Risk report publisher.
	ReportEnabled  bool
	ReportInterval time.Duration

	// Analytics defaults.
	ForecastLookbackDays int
	HotspotLookbackDays  int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	retention, err := parsePositiveDuration("STORE_RETENTION", "2160h")
	if err != nil {
		return nil, err
	}

	reportInterval, err := parsePositiveDuration("REPORT_INTERVAL", "15m")
	if err != nil {
		return nil, err
	}

	maxEvents, err := parsePositiveInt("STORE_MAX_EVENTS", 500000)
	if err != nil {
		return nil, err
	}

	forecastLookback, err := parsePositiveInt("FORECAST_LOOKBACK_DAYS", 180)
	if err != nil {
		return nil, err
	}

	hotspotLookback, err := parsePositiveInt("HOTSPOT_LOOKBACK_DAYS", 90)
	if err != nil {
		return nil, err
	}

	mapboxCacheSize := parseMapboxCacheSize()

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "sanitation-events"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "zone-risk-assessments"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "sanitation-analytics"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: mapboxCacheSize,

		EventSource:    sharedcfg.EnvOrDefault("EVENT_SOURCE", EventSourceMemory),
		PostgresURL:    os.Getenv("POSTGRES_URL"),
		StoreRetention: retention,
		StoreMaxEvents: maxEvents,

		ReportEnabled:  sharedcfg.EnvOrDefault("REPORT_ENABLED", "true") == "true",
		ReportInterval: reportInterval,

		ForecastLookbackDays: forecastLookback,
		HotspotLookbackDays:  hotspotLookback,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	switch cfg.EventSource {
	case EventSourceMemory:
	case EventSourcePostgres:
		if cfg.PostgresURL == "" {
			return nil, errors.New("EVENT_SOURCE is postgres but POSTGRES_URL is not set")
		}
	default:
		return nil, fmt.Errorf("invalid EVENT_SOURCE %q: must be memory or postgres", cfg.EventSource)
	}

	return cfg, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}
