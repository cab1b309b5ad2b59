package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/Moutron/home-maintenance-app-sub001/internal/config"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "info", "json")

	logger.Debug("hidden")
	logger.Info("visible", "source", "census-geocoder")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "visible", line["msg"])
	assert.Equal(t, "census-geocoder", line["source"])
}

func TestNewLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "debug", "TEXT")

	logger.Debug("details")
	assert.Contains(t, buf.String(), "msg=details")
}

func TestNewLoggers_SetSlogDefault(t *testing.T) {
	for name, build := range map[string]func(*config.Config) *slog.Logger{
		"stdout": NewLogger,
		"stderr": NewStderrLogger,
	} {
		t.Run(name, func(t *testing.T) {
			prev := slog.Default()
			t.Cleanup(func() { slog.SetDefault(prev) })

			logger := build(&config.Config{LogLevel: "error", LogFormat: "json"})

			ctx := context.Background()
			assert.Same(t, logger, slog.Default())
			assert.False(t, slog.Default().Enabled(ctx, slog.LevelInfo))
			assert.True(t, slog.Default().Enabled(ctx, slog.LevelError))
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestMetrics_Recorders(t *testing.T) {
	m := NewMetricsForTesting()

	m.RecordSource("property-records", "success", 120*time.Millisecond)
	m.RecordSource("property-records", "success", 80*time.Millisecond)
	m.RecordCacheLookup("profile", "hit")
	m.RecordCacheWrite("weather", "error")
	m.RecordCacheSweep("profile", 3)
	m.SetAdapterEnabled("web-scrape", false)
	m.SetAdapterEnabled("census-geocoder", true)

	assert.InDelta(t, 2, testutil.ToFloat64(m.AdapterRequests.WithLabelValues("property-records", "success")), 0.0001)
	assert.InDelta(t, 1, testutil.ToFloat64(m.CacheLookups.WithLabelValues("profile", "hit")), 0.0001)
	assert.InDelta(t, 1, testutil.ToFloat64(m.CacheWrites.WithLabelValues("weather", "error")), 0.0001)
	assert.InDelta(t, 3, testutil.ToFloat64(m.CacheSwept.WithLabelValues("profile")), 0.0001)
	assert.InDelta(t, 0, testutil.ToFloat64(m.AdaptersEnabled.WithLabelValues("web-scrape")), 0.0001)
	assert.InDelta(t, 1, testutil.ToFloat64(m.AdaptersEnabled.WithLabelValues("census-geocoder")), 0.0001)
}
