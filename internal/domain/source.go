package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Source labels recorded in PropertyProfile.Sources and used as cache provenance.
const (
	SourcePropertyRecords = "property-records"
	SourceCountyAssessor  = "county-assessor"
	SourceCensusGeocoder  = "census-geocoder"
	SourceCensusACS       = "census-acs"
	SourceOpenMeteo       = "open-meteo"
	SourceZipcodeCache    = "zipcode-cache"
	SourceStandardization = "address-standardization"
	SourceWebScrape       = "web-scrape"
)

// AdapterSources lists the labels of every external adapter. SourceZipcodeCache
// is not an adapter.
func AdapterSources() []string {
	return []string{
		SourcePropertyRecords,
		SourceCountyAssessor,
		SourceCensusGeocoder,
		SourceCensusACS,
		SourceOpenMeteo,
		SourceStandardization,
		SourceWebScrape,
	}
}

var (
	// ErrNoData means the provider answered but had nothing for the address.
	ErrNoData = errors.New("no data")
	// ErrNotConfigured means the adapter lacks a credential or endpoint for the query.
	ErrNotConfigured = errors.New("not configured")
)

// Outcome labels reported to a SourceRecorder.
const (
	OutcomeSuccess       = "success"
	OutcomeNoData        = "no_data"
	OutcomeNotConfigured = "not_configured"
	OutcomeTimeout       = "timeout"
	OutcomeError         = "error"
)

// GeoContext carries geocoding output needed by dependent sources.
type GeoContext struct {
	Latitude   float64
	Longitude  float64
	StateFIPS  string
	CountyFIPS string
	Tract      string
}

// HasTract reports whether the context identifies a census tract.
func (g *GeoContext) HasTract() bool {
	return g != nil && g.Tract != "" && g.StateFIPS != "" && g.CountyFIPS != ""
}

// GeoContextFrom extracts a GeoContext from a geocoding fragment.
// It returns nil when the fragment has no coordinates.
func GeoContextFrom(p PropertyProfile) *GeoContext {
	if !p.HasCoordinates() {
		return nil
	}
	g := &GeoContext{Latitude: *p.Latitude, Longitude: *p.Longitude}
	if p.JurisdictionID != nil && len(*p.JurisdictionID) == 5 {
		g.StateFIPS = (*p.JurisdictionID)[:2]
		g.CountyFIPS = (*p.JurisdictionID)[2:]
	}
	if p.TractID != nil {
		g.Tract = *p.TractID
	}
	return g
}

// Query is the input handed to every source.
type Query struct {
	Address Address
	Geo     *GeoContext
}

// Source fetches a profile fragment from one external provider. Implementations
// return ErrNoData or ErrNotConfigured (possibly wrapped) when they have nothing
// to contribute, and any other error for provider failures.
type Source interface {
	Name() string
	Fetch(ctx context.Context, q Query) (PropertyProfile, error)
}

// SourceRecorder observes adapter calls. observability.Metrics implements it.
type SourceRecorder interface {
	RecordSource(source, outcome string, elapsed time.Duration)
}

// Result is the only value that crosses a SoftSource boundary. OK is false
// for every failure kind; the reason is logged, never returned.
type Result struct {
	Source   string
	Fragment PropertyProfile
	OK       bool
}

// SoftSource wraps a Source so that errors, timeouts and panics become a
// Result with OK=false.
type SoftSource struct {
	source   Source
	timeout  time.Duration
	logger   *slog.Logger
	recorder SourceRecorder
}

// Soft wraps src with a per-call timeout. rec may be nil.
func Soft(src Source, timeout time.Duration, logger *slog.Logger, rec SourceRecorder) *SoftSource {
	return &SoftSource{source: src, timeout: timeout, logger: logger, recorder: rec}
}

// Name returns the wrapped source label.
func (s *SoftSource) Name() string { return s.source.Name() }

// Lookup calls the wrapped source. It never returns an error and never panics.
func (s *SoftSource) Lookup(ctx context.Context, q Query) (res Result) {
	name := s.source.Name()
	res.Source = name
	start := clock.Now()

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var (
		frag PropertyProfile
		err  error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in source: %v", r)
			}
		}()
		frag, err = s.source.Fetch(callCtx, q)
	}()

	outcome := classify(callCtx, err)
	if s.recorder != nil {
		s.recorder.RecordSource(name, outcome, clock.Since(start))
	}

	switch outcome {
	case OutcomeSuccess:
		frag.Sources = nil
		return Result{Source: name, Fragment: frag, OK: true}
	case OutcomeNoData:
		s.logger.Debug("source returned no data", "source", name, "address", q.Address.String())
	case OutcomeNotConfigured:
		s.logger.Debug("source skipped", "source", name, "reason", err)
	default:
		s.logger.Warn("source failed", "source", name, "outcome", outcome, "error", err)
	}
	return res
}

func classify(ctx context.Context, err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrNoData):
		return OutcomeNoData
	case errors.Is(err, ErrNotConfigured):
		return OutcomeNotConfigured
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return OutcomeTimeout
	default:
		return OutcomeError
	}
}
