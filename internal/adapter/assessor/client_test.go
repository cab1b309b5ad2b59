package assessor

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Moutron/home-maintenance-app-sub001/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(endpoints map[string]string) *Client {
	return NewClient(endpoints, 2*time.Second, 1000, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

var austin = domain.Address{Street: "100 O'Neil Dr", City: "Austin", State: "tx", ZipCode: "78701"}

func TestFetch_Parcel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "UPPER(SITUS_ADDR) LIKE '100 O''NEIL DR%'", r.URL.Query().Get("where"))
		assert.Equal(t, "json", r.URL.Query().Get("f"))
		_, _ = io.WriteString(w, `{"features":[{"attributes":{
			"Year_Built": 1984, "BLDG_SQFT": "2,150", "Bedrooms": 4, "Bathrooms": 2.5,
			"LAND_SQFT": 10890, "Appraised_Value": 512000, "County": "Travis"
		}}]}`)
	}))
	defer srv.Close()

	p, err := testClient(map[string]string{"TX": srv.URL}).Fetch(context.Background(), domain.Query{Address: austin})
	require.NoError(t, err)

	assert.Equal(t, 1984, *p.YearBuilt)
	assert.Equal(t, 2150, *p.SquareFootage)
	assert.Equal(t, 4, *p.Bedrooms)
	assert.InDelta(t, 2.5, *p.Bathrooms, 1e-9)
	assert.InDelta(t, 0.25, *p.LotSizeAcres, 1e-9)
	assert.InDelta(t, 512000, *p.AssessedValue, 1e-9)
	assert.Equal(t, "Travis", *p.CountyName)
}

func TestFetch_UnconfiguredStateSkipsIO(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	defer srv.Close()

	_, err := testClient(map[string]string{"OK": srv.URL}).Fetch(context.Background(), domain.Query{Address: austin})
	require.ErrorIs(t, err, domain.ErrNoData)
	assert.False(t, called)
}

func TestFetch_NoFeatures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"features":[]}`)
	}))
	defer srv.Close()

	_, err := testClient(map[string]string{"TX": srv.URL}).Fetch(context.Background(), domain.Query{Address: austin})
	require.ErrorIs(t, err, domain.ErrNoData)
}

func TestFetch_ArcGISErrorObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"error":{"code":400,"message":"Invalid query parameters"}}`)
	}))
	defer srv.Close()

	_, err := testClient(map[string]string{"TX": srv.URL}).Fetch(context.Background(), domain.Query{Address: austin})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNoData)
	assert.Contains(t, err.Error(), "Invalid query parameters")
}

func TestParcel_AcresPreferredOverSqft(t *testing.T) {
	var p parcel
	require.NoError(t, p.UnmarshalJSON([]byte(`{"land_acres":"1.75","LAND_SQFT":100,"YR_BLT":"n/a"}`)))
	profile := p.toProfile()
	assert.InDelta(t, 1.75, *profile.LotSizeAcres, 1e-9)
	assert.Nil(t, profile.YearBuilt)
}
