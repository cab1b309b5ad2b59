// Package pipeline orchestrates one enrichment: cache lookup, concurrent
// source fan-out, precedence merge, dependent lookups, cache write-back and
// event publication.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/Moutron/home-maintenance-app-sub001/internal/cache"
	"github.com/Moutron/home-maintenance-app-sub001/internal/domain"
	"github.com/Moutron/home-maintenance-app-sub001/internal/observability"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Enrichment outcomes reported to the enrichments_total metric.
const (
	OutcomeCacheHit = "cache_hit"
	OutcomeEnriched = "enriched"
	OutcomeEmpty    = "empty"
)

// Lookup is a source as the orchestrator sees it: it never fails.
// *domain.SoftSource implements it.
type Lookup interface {
	Name() string
	Lookup(ctx context.Context, q domain.Query) domain.Result
}

// Sources is the set of configured lookups. A nil field disables that source.
type Sources struct {
	Records      Lookup
	Fallback     Lookup
	Geocoder     Lookup
	Neighborhood Lookup
	Weather      Lookup
	Standardizer Lookup
	Scraper      Lookup
}

// Publisher emits an event for every cacheable enrichment.
type Publisher interface {
	Publish(ctx context.Context, event domain.EnrichedEvent) error
}

// Pipeline enriches addresses into property profiles.
type Pipeline struct {
	sources   Sources
	profiles  *cache.Store[domain.PropertyProfile]
	weather   *cache.Store[domain.PropertyProfile]
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Pipeline. publisher may be nil.
func New(sources Sources, profiles, weather *cache.Store[domain.PropertyProfile], publisher Publisher, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		sources:   sources,
		profiles:  profiles,
		weather:   weather,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once the profile cache backend answers.
func (p *Pipeline) CheckReadiness(ctx context.Context) error {
	if _, err := p.profiles.Stats(ctx); err != nil {
		return err
	}
	return nil
}

// Enrich returns the best-effort profile for addr. It never fails: an empty
// Sources list means no provider had data. An incomplete address yields an
// empty profile without any lookups.
func (p *Pipeline) Enrich(ctx context.Context, addr domain.Address) domain.PropertyProfile {
	start := domain.Now()
	addr = addr.Normalize()
	key := cache.ProfileKey(addr.Street, addr.City, addr.State, addr.ZipCode)
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID, "cache_key", key)

	if err := addr.Validate(); err != nil {
		logger.Debug("enrichment skipped", "error", err)
		p.finish(OutcomeEmpty, start)
		return domain.PropertyProfile{Sources: []string{}}
	}

	if cached, provenance, ok := p.profiles.Get(ctx, key); ok {
		logger.Debug("profile cache hit", "provenance", provenance)
		p.finish(OutcomeCacheHit, start)
		return cached
	}

	q := domain.Query{Address: addr}
	acc := &accumulator{}
	var records, fallback, geocode, standardized, scraped domain.Result

	// Source failures stay inside each Result, so every goroutine returns nil
	// and Wait only joins. A failing source must not cancel its siblings.
	var g errgroup.Group
	g.Go(func() error {
		records = acc.lookup(ctx, p.sources.Records, q)
		if !records.OK {
			fallback = acc.lookup(ctx, p.sources.Fallback, q)
		}
		if !records.OK && !fallback.OK {
			scraped = acc.lookup(ctx, p.sources.Scraper, q)
		}
		return nil
	})
	g.Go(func() error {
		geocode = acc.lookup(ctx, p.sources.Geocoder, q)
		return nil
	})
	g.Go(func() error {
		standardized = acc.lookup(ctx, p.sources.Standardizer, q)
		return nil
	})
	_ = g.Wait()

	var neighborhood, weather domain.Result
	if geocode.OK {
		if geo := domain.GeoContextFrom(geocode.Fragment); geo != nil {
			q.Geo = geo
			// Joins only, as above.
			var dep errgroup.Group
			if geo.HasTract() {
				dep.Go(func() error {
					neighborhood = acc.lookup(ctx, p.sources.Neighborhood, q)
					return nil
				})
			}
			dep.Go(func() error {
				weather = p.lookupWeather(ctx, q, acc, logger)
				return nil
			})
			_ = dep.Wait()
		}
	}

	profile := domain.PropertyProfile{Sources: acc.labels()}
	for _, r := range []domain.Result{records, fallback, geocode, neighborhood, weather, standardized, scraped} {
		if r.OK {
			profile.Fill(r.Fragment)
		}
	}
	deriveStormFrequency(&profile)

	if len(profile.Sources) == 0 || !profile.HasUsefulData() {
		logger.Info("enrichment found no usable data", "sources", profile.Sources)
		p.finish(OutcomeEmpty, start)
		return profile
	}

	// The caller's cancellation must not abort the write-back of a completed result.
	writeCtx := context.WithoutCancel(ctx)
	p.profiles.Put(writeCtx, key, profile, profile.Sources[0])
	p.publish(writeCtx, logger, domain.EnrichedEvent{
		ID:         uuid.NewString(),
		RunID:      runID,
		Key:        key,
		Address:    addr,
		Profile:    profile.Clone(),
		EnrichedAt: domain.Now().UTC(),
	})

	logger.Info("enrichment complete", "sources", profile.Sources, "duration", domain.Now().Sub(start))
	p.finish(OutcomeEnriched, start)
	return profile
}

// lookupWeather reuses the zip-level weather cache when possible. On a miss
// the adapter result is written back for other addresses in the zip.
func (p *Pipeline) lookupWeather(ctx context.Context, q domain.Query, acc *accumulator, logger *slog.Logger) domain.Result {
	if p.sources.Weather == nil {
		return domain.Result{}
	}
	zip := cache.WeatherKey(q.Address.ZipCode)
	if frag, provenance, ok := p.weather.Get(ctx, zip); ok {
		logger.Debug("weather cache hit", "zip", zip, "provenance", provenance)
		acc.record(domain.SourceZipcodeCache)
		return domain.Result{Source: domain.SourceZipcodeCache, Fragment: frag, OK: true}
	}
	res := acc.lookup(ctx, p.sources.Weather, q)
	if res.OK {
		p.weather.Put(context.WithoutCancel(ctx), zip, res.Fragment, res.Source)
	}
	return res
}

func (p *Pipeline) publish(ctx context.Context, logger *slog.Logger, event domain.EnrichedEvent) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, event); err != nil {
		logger.Warn("publish enriched event failed", "error", err)
		p.metrics.EventsPublished.WithLabelValues("error").Inc()
		return
	}
	p.metrics.EventsPublished.WithLabelValues("ok").Inc()
}

func (p *Pipeline) finish(outcome string, start time.Time) {
	p.metrics.Enrichments.WithLabelValues(outcome).Inc()
	p.metrics.EnrichmentDuration.Observe(domain.Now().Sub(start).Seconds())
}

// deriveStormFrequency classifies climate averages that arrived without a
// classification, e.g. from an older weather cache entry.
func deriveStormFrequency(profile *domain.PropertyProfile) {
	if profile.StormFrequency != nil || profile.AvgRainfall == nil || profile.AvgSnowfall == nil {
		return
	}
	f := domain.ClassifyStormFrequency(*profile.AvgRainfall, *profile.AvgSnowfall)
	profile.StormFrequency = &f
}

// accumulator records contributing source labels in completion order.
type accumulator struct {
	mu    sync.Mutex
	order []string
}

func (a *accumulator) lookup(ctx context.Context, src Lookup, q domain.Query) domain.Result {
	if src == nil {
		return domain.Result{}
	}
	res := src.Lookup(ctx, q)
	if res.OK {
		a.record(res.Source)
	}
	return res
}

func (a *accumulator) record(label string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if label == "" || slices.Contains(a.order, label) {
		return
	}
	a.order = append(a.order, label)
}

func (a *accumulator) labels() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string{}, a.order...)
}

// CacheStats reports both cache families.
type CacheStats struct {
	Profile cache.Stats `json:"profile"`
	Weather cache.Stats `json:"weather"`
}

// CacheStats counts entries in both cache families.
func (p *Pipeline) CacheStats(ctx context.Context) (CacheStats, error) {
	profile, perr := p.profiles.Stats(ctx)
	weather, werr := p.weather.Stats(ctx)
	return CacheStats{Profile: profile, Weather: weather}, errors.Join(perr, werr)
}

// SweepResult is the number of expired entries removed per family.
type SweepResult struct {
	Profile int64 `json:"profile"`
	Weather int64 `json:"weather"`
}

// SweepCaches deletes expired entries from both cache families.
func (p *Pipeline) SweepCaches(ctx context.Context) (SweepResult, error) {
	profile, perr := p.profiles.Sweep(ctx)
	weather, werr := p.weather.Sweep(ctx)
	return SweepResult{Profile: profile, Weather: weather}, errors.Join(perr, werr)
}
