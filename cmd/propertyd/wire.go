package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Moutron/home-maintenance-app-sub001/internal/adapter/assessor"
	"github.com/Moutron/home-maintenance-app-sub001/internal/adapter/census"
	kafkaadapter "github.com/Moutron/home-maintenance-app-sub001/internal/adapter/kafka"
	"github.com/Moutron/home-maintenance-app-sub001/internal/adapter/openmeteo"
	"github.com/Moutron/home-maintenance-app-sub001/internal/adapter/records"
	"github.com/Moutron/home-maintenance-app-sub001/internal/adapter/scrape"
	"github.com/Moutron/home-maintenance-app-sub001/internal/adapter/smarty"
	"github.com/Moutron/home-maintenance-app-sub001/internal/cache"
	"github.com/Moutron/home-maintenance-app-sub001/internal/cache/postgres"
	"github.com/Moutron/home-maintenance-app-sub001/internal/cache/sqlite"
	"github.com/Moutron/home-maintenance-app-sub001/internal/config"
	"github.com/Moutron/home-maintenance-app-sub001/internal/domain"
	"github.com/Moutron/home-maintenance-app-sub001/internal/observability"
	"github.com/Moutron/home-maintenance-app-sub001/internal/pipeline"
	"github.com/couchcryptid/storm-data-shared/retry"
)

const (
	maxConnectAttempts = 6
	initialBackoff     = 250 * time.Millisecond
	maxBackoff         = 5 * time.Second
)

// app holds everything a command needs plus the resources it must release.
type app struct {
	pipeline  *pipeline.Pipeline
	backend   cache.Backend
	memo      *census.MemoSource
	publisher *kafkaadapter.Publisher
	enabled   map[string]bool
	logger    *slog.Logger
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*app, error) {
	backend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &app{backend: backend, enabled: make(map[string]bool), logger: logger}
	sources := a.buildSources(cfg, metrics)

	var publisher pipeline.Publisher
	if cfg.PublishingEnabled() {
		a.publisher = kafkaadapter.NewPublisher(cfg, logger)
		publisher = a.publisher
		logger.Info("enriched events enabled", "topic", cfg.KafkaEnrichedTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("enriched events disabled")
	}

	profiles := cache.NewStore[domain.PropertyProfile](backend, cache.FamilyProfile, cfg.ProfileCacheTTL, logger, cache.WithRecorder(metrics))
	weather := cache.NewStore[domain.PropertyProfile](backend, cache.FamilyWeather, cfg.WeatherCacheTTL, logger, cache.WithRecorder(metrics))
	a.pipeline = pipeline.New(sources, profiles, weather, publisher, logger, metrics)
	return a, nil
}

// buildSources wraps every configured adapter in a soft boundary. Disabled
// adapters stay nil in Sources.
func (a *app) buildSources(cfg *config.Config, metrics *observability.Metrics) pipeline.Sources {
	timeout, rate := cfg.AdapterTimeout, cfg.ProviderRateLimit
	soft := func(src domain.Source) *domain.SoftSource {
		a.enabled[src.Name()] = true
		return domain.Soft(src, timeout, a.logger, metrics)
	}

	var s pipeline.Sources
	if cfg.RecordsEnabled() {
		s.Records = soft(records.NewClient(cfg.RecordsAPIKey, cfg.RecordsBaseURL, timeout, rate, a.logger))
	}
	if len(cfg.AssessorEndpoints) > 0 {
		s.Fallback = soft(assessor.NewClient(cfg.AssessorEndpoints, timeout, rate, a.logger))
	}
	if cfg.GeocoderEnabled {
		a.memo = census.NewMemoSource(census.NewGeocoder(cfg.GeocoderBaseURL, timeout, rate, a.logger), cfg.GeocoderMemoSize, cfg.ProfileCacheTTL)
		s.Geocoder = soft(a.memo)
		s.Neighborhood = soft(census.NewNeighborhood(cfg.CensusACSBaseURL, cfg.CensusAPIKey, timeout, rate, a.logger))
	}
	if cfg.WeatherEnabled {
		s.Weather = soft(openmeteo.NewClient(cfg.WeatherBaseURL, cfg.WeatherYears, timeout, rate, a.logger))
	}
	if cfg.StandardizationEnabled() {
		s.Standardizer = soft(smarty.NewClient(cfg.SmartyAuthID, cfg.SmartyAuthToken, cfg.SmartyBaseURL, timeout, rate, a.logger))
	}
	if cfg.ScrapingEnabled {
		s.Scraper = soft(scrape.NewClient(cfg.ScrapeURLTemplate, cfg.ScrapeUserAgent, timeout, rate, a.logger))
	}

	for _, name := range domain.AdapterSources() {
		metrics.SetAdapterEnabled(name, a.enabled[name])
		if !a.enabled[name] {
			a.logger.Info("adapter disabled", "source", name)
		}
	}
	return s
}

// Close releases the cache backend, the geocoder memo and the publisher.
func (a *app) Close() error {
	var errs []error
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("kafka publisher close: %w", err))
		}
	}
	if a.memo != nil {
		a.memo.Close()
	}
	if err := a.backend.Close(); err != nil {
		errs = append(errs, fmt.Errorf("cache backend close: %w", err))
	}
	return errors.Join(errs...)
}

func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.Backend, error) {
	switch cfg.CacheBackend {
	case config.BackendMemory:
		logger.Info("cache backend ready", "backend", cfg.CacheBackend)
		return cache.NewMemoryBackend(), nil
	case config.BackendSQLite:
		b, err := sqlite.Open(cfg.CacheSQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("cache backend ready", "backend", cfg.CacheBackend, "path", cfg.CacheSQLitePath)
		return b, nil
	case config.BackendPostgres:
		b, err := connectPostgres(ctx, cfg.CacheDatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		if err := postgres.RunMigrationsUp(ctx, b.Pool()); err != nil {
			_ = b.Close()
			return nil, err
		}
		logger.Info("cache backend ready", "backend", cfg.CacheBackend)
		return b, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}

// connectPostgres retries with exponential backoff up to maxConnectAttempts.
func connectPostgres(ctx context.Context, url string, logger *slog.Logger) (*postgres.Backend, error) {
	backoff := initialBackoff
	for attempt := 1; ; attempt++ {
		b, err := postgres.Connect(ctx, url)
		if err == nil {
			return b, nil
		}
		if attempt == maxConnectAttempts {
			return nil, fmt.Errorf("connect cache database after %d attempts: %w", attempt, err)
		}
		logger.Warn("cache database not ready, retrying", "attempt", attempt, "backoff", backoff, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			return nil, ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}
