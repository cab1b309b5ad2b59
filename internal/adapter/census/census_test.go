package census

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Moutron/home-maintenance-app-sub001/internal/adapter/provider"
	"github.com/Moutron/home-maintenance-app-sub001/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var sf = domain.Address{Street: "123 Test St", City: "San Francisco", State: "CA", ZipCode: "94102"}

const geocodeMatch = `{"result":{"addressMatches":[{
	"matchedAddress":"123 TEST ST, SAN FRANCISCO, CA, 94102",
	"coordinates":{"x":-122.4194,"y":37.7749},
	"geographies":{
		"Census Tracts":[{"STATE":"06","COUNTY":"075","TRACT":"017601"}],
		"Counties":[{"NAME":"San Francisco County"}]
	}
}]}}`

func TestGeocoder_Match(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geographies/address", r.URL.Path)
		assert.Equal(t, "123 Test St", r.URL.Query().Get("street"))
		assert.Equal(t, "94102", r.URL.Query().Get("zip"))
		assert.Equal(t, "Public_AR_Current", r.URL.Query().Get("benchmark"))
		_, _ = io.WriteString(w, geocodeMatch)
	}))
	defer srv.Close()

	p, err := NewGeocoder(srv.URL, time.Second, 1000, testLogger()).Fetch(context.Background(), domain.Query{Address: sf})
	require.NoError(t, err)
	assert.InDelta(t, 37.7749, *p.Latitude, 1e-9)
	assert.InDelta(t, -122.4194, *p.Longitude, 1e-9)
	assert.Equal(t, "06075", *p.JurisdictionID)
	assert.Equal(t, "017601", *p.TractID)
	assert.Equal(t, "San Francisco County", *p.CountyName)

	geo := domain.GeoContextFrom(p)
	require.True(t, geo.HasTract())
	assert.Equal(t, "06", geo.StateFIPS)
	assert.Equal(t, "075", geo.CountyFIPS)
}

func TestGeocoder_NoData(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no matches", `{"result":{"addressMatches":[]}}`},
		{"no coordinates", `{"result":{"addressMatches":[{"geographies":{"Census Tracts":[{"TRACT":"1"}]}}]}}`},
		{"no tract", `{"result":{"addressMatches":[{"coordinates":{"x":1,"y":2},"geographies":{}}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewGeocoder(srv.URL, time.Second, 1000, testLogger()).Fetch(context.Background(), domain.Query{Address: sf})
			require.ErrorIs(t, err, domain.ErrNoData)
		})
	}
}

func TestNeighborhood_Tract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "NAME,B25077_001E,B19013_001E,B01003_001E", q.Get("get"))
		assert.Equal(t, "tract:017601", q.Get("for"))
		assert.Equal(t, "state:06 county:075", q.Get("in"))
		assert.Equal(t, "k", q.Get("key"))
		_, _ = io.WriteString(w, `[
			["NAME","B25077_001E","B19013_001E","B01003_001E","state","county","tract"],
			["Census Tract 176.01","1250000","150250","4321","06","075","017601"]
		]`)
	}))
	defer srv.Close()

	geo := &domain.GeoContext{StateFIPS: "06", CountyFIPS: "075", Tract: "017601"}
	p, err := NewNeighborhood(srv.URL, "k", time.Second, 1000, testLogger()).
		Fetch(context.Background(), domain.Query{Address: sf, Geo: geo})
	require.NoError(t, err)
	assert.InDelta(t, 1250000, *p.MedianHomeValue, 1e-9)
	assert.InDelta(t, 150250, *p.MedianIncome, 1e-9)
	assert.Equal(t, 4321, *p.Population)
}

func TestNeighborhood_WithoutTractSkipsIO(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { calls.Add(1) }))
	defer srv.Close()

	n := NewNeighborhood(srv.URL, "", time.Second, 1000, testLogger())
	_, err := n.Fetch(context.Background(), domain.Query{Address: sf})
	require.ErrorIs(t, err, domain.ErrNoData)
	_, err = n.Fetch(context.Background(), domain.Query{Address: sf, Geo: &domain.GeoContext{Latitude: 1, Longitude: 2}})
	require.ErrorIs(t, err, domain.ErrNoData)
	assert.Zero(t, calls.Load())
}

func TestRowsToProfile(t *testing.T) {
	str := func(s string) *string { return &s }
	header := []*string{str("NAME"), str(varMedianHomeValue), str(varMedianIncome), str(varPopulation)}

	t.Run("header only", func(t *testing.T) {
		_, err := rowsToProfile([][]*string{header})
		require.ErrorIs(t, err, domain.ErrNoData)
	})

	t.Run("suppressed values dropped", func(t *testing.T) {
		p, err := rowsToProfile([][]*string{header, {str("x"), str("-666666666"), nil, str("1200")}})
		require.NoError(t, err)
		assert.Nil(t, p.MedianHomeValue)
		assert.Nil(t, p.MedianIncome)
		assert.Equal(t, 1200, *p.Population)
	})

	t.Run("all suppressed", func(t *testing.T) {
		_, err := rowsToProfile([][]*string{header, {str("x"), str("-1"), str("-1"), nil}})
		require.ErrorIs(t, err, domain.ErrNoData)
	})
}

type countingSource struct {
	calls   atomic.Int32
	profile domain.PropertyProfile
	err     error
}

func (c *countingSource) Name() string { return "counting" }

func (c *countingSource) Fetch(context.Context, domain.Query) (domain.PropertyProfile, error) {
	c.calls.Add(1)
	return c.profile.Clone(), c.err
}

func TestMemoSource(t *testing.T) {
	lat, lon := 1.5, 2.5
	inner := &countingSource{profile: domain.PropertyProfile{Latitude: &lat, Longitude: &lon}}
	memo := NewMemoSource(inner, 10, time.Minute)
	defer memo.Close()

	q := domain.Query{Address: sf}
	first, err := memo.Fetch(context.Background(), q)
	require.NoError(t, err)

	// Same address, different spelling.
	q.Address.City = "  san   francisco "
	second, err := memo.Fetch(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, int32(1), inner.calls.Load())
	assert.Equal(t, first, second)
	assert.Equal(t, 1, memo.Len())
	assert.Equal(t, "counting", memo.Name())

	// Mutating a returned fragment must not affect the memo.
	*second.Latitude = 99
	third, err := memo.Fetch(context.Background(), q)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, *third.Latitude, 1e-9)
}

func TestMemoSource_FailuresNotMemoized(t *testing.T) {
	inner := &countingSource{err: &provider.StatusError{Provider: "x", Code: 500}}
	memo := NewMemoSource(inner, 10, time.Minute)
	defer memo.Close()

	for range 2 {
		_, err := memo.Fetch(context.Background(), domain.Query{Address: sf})
		var se *provider.StatusError
		require.True(t, errors.As(err, &se))
	}
	inner.err = nil
	_, err := memo.Fetch(context.Background(), domain.Query{Address: sf})
	require.NoError(t, err)

	assert.Equal(t, int32(3), inner.calls.Load())
	assert.Zero(t, memo.Len())
}
