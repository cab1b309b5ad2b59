package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Cache backend names accepted by CACHE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Cache store.
	CacheBackend       string
	CacheSQLitePath    string
	CacheDatabaseURL   string
	ProfileCacheTTL    time.Duration
	WeatherCacheTTL    time.Duration
	CacheSweepInterval time.Duration

	// Shared provider settings.
	AdapterTimeout    time.Duration
	ProviderRateLimit float64

	// Primary property-records provider. An empty key disables the adapter.
	RecordsAPIKey  string
	RecordsBaseURL string

	// County assessor parcel endpoints keyed by uppercase state code.
	AssessorEndpoints map[string]string

	GeocoderEnabled  bool
	GeocoderBaseURL  string
	GeocoderMemoSize int

	CensusAPIKey     string
	CensusACSBaseURL string

	WeatherEnabled bool
	WeatherBaseURL string
	WeatherYears   int

	// Address standardization. Both credentials are required to enable it.
	SmartyAuthID    string
	SmartyAuthToken string
	SmartyBaseURL   string

	ScrapingEnabled   bool
	ScrapeURLTemplate string
	ScrapeUserAgent   string

	// Enrichment events. Publishing is disabled when no brokers are set.
	KafkaBrokers       []string
	KafkaEnrichedTopic string
}

// RecordsEnabled reports whether the primary records adapter has a credential.
func (c *Config) RecordsEnabled() bool { return c.RecordsAPIKey != "" }

// StandardizationEnabled reports whether both Smarty credentials are present.
func (c *Config) StandardizationEnabled() bool {
	return c.SmartyAuthID != "" && c.SmartyAuthToken != ""
}

// PublishingEnabled reports whether enrichment events should be written to Kafka.
func (c *Config) PublishingEnabled() bool { return len(c.KafkaBrokers) > 0 }

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	profileTTL, err := parsePositiveDuration("PROFILE_CACHE_TTL", "720h")
	if err != nil {
		return nil, err
	}
	weatherTTL, err := parsePositiveDuration("WEATHER_CACHE_TTL", "2160h")
	if err != nil {
		return nil, err
	}
	adapterTimeout, err := parsePositiveDuration("ADAPTER_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	sweepInterval, err := time.ParseDuration(sharedcfg.EnvOrDefault("CACHE_SWEEP_INTERVAL", "1h"))
	if err != nil || sweepInterval < 0 {
		return nil, errors.New("invalid CACHE_SWEEP_INTERVAL")
	}

	rateLimit, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("PROVIDER_RATE_LIMIT", "5"), 64)
	if err != nil || rateLimit <= 0 {
		return nil, errors.New("invalid PROVIDER_RATE_LIMIT")
	}

	weatherYears, err := strconv.Atoi(sharedcfg.EnvOrDefault("WEATHER_YEARS", "5"))
	if err != nil || weatherYears < 1 || weatherYears > 30 {
		return nil, errors.New("invalid WEATHER_YEARS: must be between 1 and 30")
	}

	assessors, err := parseAssessorEndpoints(os.Getenv("ASSESSOR_ENDPOINTS"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		CacheBackend:       strings.ToLower(sharedcfg.EnvOrDefault("CACHE_BACKEND", BackendSQLite)),
		CacheSQLitePath:    sharedcfg.EnvOrDefault("CACHE_SQLITE_PATH", "data/property-cache.db"),
		CacheDatabaseURL:   os.Getenv("CACHE_DATABASE_URL"),
		ProfileCacheTTL:    profileTTL,
		WeatherCacheTTL:    weatherTTL,
		CacheSweepInterval: sweepInterval,

		AdapterTimeout:    adapterTimeout,
		ProviderRateLimit: rateLimit,

		RecordsAPIKey:  os.Getenv("RECORDS_API_KEY"),
		RecordsBaseURL: sharedcfg.EnvOrDefault("RECORDS_BASE_URL", "https://api.rentcast.io/v1"),

		AssessorEndpoints: assessors,

		GeocoderEnabled:  parseBool("GEOCODER_ENABLED", true),
		GeocoderBaseURL:  sharedcfg.EnvOrDefault("GEOCODER_BASE_URL", "https://geocoding.geo.census.gov/geocoder"),
		GeocoderMemoSize: parseGeocoderMemoSize(),

		CensusAPIKey:     os.Getenv("CENSUS_API_KEY"),
		CensusACSBaseURL: sharedcfg.EnvOrDefault("CENSUS_ACS_BASE_URL", "https://api.census.gov/data/2022/acs/acs5"),

		WeatherEnabled: parseBool("WEATHER_ENABLED", true),
		WeatherBaseURL: sharedcfg.EnvOrDefault("WEATHER_BASE_URL", "https://archive-api.open-meteo.com/v1/archive"),
		WeatherYears:   weatherYears,

		SmartyAuthID:    os.Getenv("SMARTY_AUTH_ID"),
		SmartyAuthToken: os.Getenv("SMARTY_AUTH_TOKEN"),
		SmartyBaseURL:   sharedcfg.EnvOrDefault("SMARTY_BASE_URL", "https://us-street.api.smarty.com"),

		ScrapingEnabled:   parseBool("SCRAPING_ENABLED", false),
		ScrapeURLTemplate: os.Getenv("SCRAPE_URL_TEMPLATE"),
		ScrapeUserAgent:   sharedcfg.EnvOrDefault("SCRAPE_USER_AGENT", "property-enrichment-bot/1.0"),

		KafkaBrokers:       sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaEnrichedTopic: sharedcfg.EnvOrDefault("KAFKA_ENRICHED_TOPIC", "property-enriched"),
	}

	switch cfg.CacheBackend {
	case BackendMemory, BackendSQLite:
	case BackendPostgres:
		if cfg.CacheDatabaseURL == "" {
			return nil, errors.New("CACHE_BACKEND is postgres but CACHE_DATABASE_URL is not set")
		}
	default:
		return nil, fmt.Errorf("invalid CACHE_BACKEND %q: expected memory, sqlite or postgres", cfg.CacheBackend)
	}
	if (cfg.SmartyAuthID == "") != (cfg.SmartyAuthToken == "") {
		return nil, errors.New("SMARTY_AUTH_ID and SMARTY_AUTH_TOKEN must be set together")
	}
	if cfg.ScrapingEnabled && !strings.Contains(cfg.ScrapeURLTemplate, "{address}") {
		return nil, errors.New("SCRAPING_ENABLED is true but SCRAPE_URL_TEMPLATE has no {address} placeholder")
	}
	if cfg.PublishingEnabled() && cfg.KafkaEnrichedTopic == "" {
		return nil, errors.New("KAFKA_ENRICHED_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func parseGeocoderMemoSize() int {
	if s := os.Getenv("GEOCODER_MEMO_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}

// parseAssessorEndpoints reads "TX=https://host/query,OK=https://host/query".
func parseAssessorEndpoints(s string) (map[string]string, error) {
	endpoints := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		state, endpoint, ok := strings.Cut(pair, "=")
		state = strings.ToUpper(strings.TrimSpace(state))
		endpoint = strings.TrimSpace(endpoint)
		if !ok || len(state) != 2 || !strings.HasPrefix(endpoint, "http") {
			return nil, fmt.Errorf("invalid ASSESSOR_ENDPOINTS entry %q", pair)
		}
		endpoints[state] = endpoint
	}
	return endpoints, nil
}
