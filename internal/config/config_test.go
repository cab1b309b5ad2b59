package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRecordsKey = "rc-test-key"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)

	assert.Equal(t, BackendSQLite, cfg.CacheBackend)
	assert.Equal(t, "data/property-cache.db", cfg.CacheSQLitePath)
	assert.Equal(t, 30*24*time.Hour, cfg.ProfileCacheTTL)
	assert.Equal(t, 90*24*time.Hour, cfg.WeatherCacheTTL)
	assert.Equal(t, time.Hour, cfg.CacheSweepInterval)

	assert.Equal(t, 5*time.Second, cfg.AdapterTimeout)
	assert.InDelta(t, 5.0, cfg.ProviderRateLimit, 0.0001)

	assert.False(t, cfg.RecordsEnabled())
	assert.Equal(t, "https://api.rentcast.io/v1", cfg.RecordsBaseURL)
	assert.Empty(t, cfg.AssessorEndpoints)
	assert.True(t, cfg.GeocoderEnabled)
	assert.Equal(t, 1000, cfg.GeocoderMemoSize)
	assert.True(t, cfg.WeatherEnabled)
	assert.Equal(t, 5, cfg.WeatherYears)
	assert.False(t, cfg.StandardizationEnabled())
	assert.False(t, cfg.ScrapingEnabled)
	assert.False(t, cfg.PublishingEnabled())
	assert.Equal(t, "property-enriched", cfg.KafkaEnrichedTopic)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("CACHE_BACKEND", "Postgres")
	t.Setenv("CACHE_DATABASE_URL", "postgres://localhost/cache")
	t.Setenv("PROFILE_CACHE_TTL", "48h")
	t.Setenv("WEATHER_CACHE_TTL", "96h")
	t.Setenv("CACHE_SWEEP_INTERVAL", "0s")
	t.Setenv("ADAPTER_TIMEOUT", "2s")
	t.Setenv("PROVIDER_RATE_LIMIT", "0.5")
	t.Setenv("RECORDS_API_KEY", testRecordsKey)
	t.Setenv("ASSESSOR_ENDPOINTS", "tx=https://gis.example.com/query, OK=https://ok.example.com/query")
	t.Setenv("GEOCODER_ENABLED", "false")
	t.Setenv("GEOCODER_MEMO_SIZE", "50")
	t.Setenv("WEATHER_YEARS", "3")
	t.Setenv("SMARTY_AUTH_ID", "id")
	t.Setenv("SMARTY_AUTH_TOKEN", "token")
	t.Setenv("SCRAPING_ENABLED", "true")
	t.Setenv("SCRAPE_URL_TEMPLATE", "https://listings.example.com/search?q={address}")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_ENRICHED_TOPIC", "enriched")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, BackendPostgres, cfg.CacheBackend)
	assert.Equal(t, "postgres://localhost/cache", cfg.CacheDatabaseURL)
	assert.Equal(t, 48*time.Hour, cfg.ProfileCacheTTL)
	assert.Equal(t, 96*time.Hour, cfg.WeatherCacheTTL)
	assert.Equal(t, time.Duration(0), cfg.CacheSweepInterval)
	assert.Equal(t, 2*time.Second, cfg.AdapterTimeout)
	assert.InDelta(t, 0.5, cfg.ProviderRateLimit, 0.0001)
	assert.True(t, cfg.RecordsEnabled())
	assert.Equal(t, map[string]string{
		"TX": "https://gis.example.com/query",
		"OK": "https://ok.example.com/query",
	}, cfg.AssessorEndpoints)
	assert.False(t, cfg.GeocoderEnabled)
	assert.Equal(t, 50, cfg.GeocoderMemoSize)
	assert.Equal(t, 3, cfg.WeatherYears)
	assert.True(t, cfg.StandardizationEnabled())
	assert.True(t, cfg.ScrapingEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.PublishingEnabled())
	assert.Equal(t, "enriched", cfg.KafkaEnrichedTopic)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidTTLs(t *testing.T) {
	cases := map[string]string{
		"PROFILE_CACHE_TTL": "0s",
		"WEATHER_CACHE_TTL": "-1h",
		"ADAPTER_TIMEOUT":   "soon",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad_InvalidRateLimit(t *testing.T) {
	t.Setenv("PROVIDER_RATE_LIMIT", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PROVIDER_RATE_LIMIT")
}

func TestLoad_InvalidWeatherYears(t *testing.T) {
	t.Setenv("WEATHER_YEARS", "45")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WEATHER_YEARS")
}

func TestLoad_UnknownBackend(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "redis")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CACHE_BACKEND")
}

func TestLoad_PostgresWithoutURL(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "postgres")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CACHE_DATABASE_URL")
}

func TestLoad_PartialSmartyCredentials(t *testing.T) {
	t.Setenv("SMARTY_AUTH_ID", "id-only")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMARTY_AUTH_TOKEN")
}

func TestLoad_ScrapingWithoutTemplate(t *testing.T) {
	t.Setenv("SCRAPING_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCRAPE_URL_TEMPLATE")
}

func TestLoad_MalformedAssessorEndpoints(t *testing.T) {
	t.Setenv("ASSESSOR_ENDPOINTS", "Texas=https://gis.example.com/query")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ASSESSOR_ENDPOINTS")
}

func TestLoad_MissingKeyDisablesRecords(t *testing.T) {
	t.Setenv("RECORDS_API_KEY", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.RecordsEnabled())
}
