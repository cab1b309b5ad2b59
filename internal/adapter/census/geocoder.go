// Package census wraps the two free U.S. Census Bureau APIs the enrichment
// uses: the address geocoder (coordinates, county and tract) and the ACS
// 5-year tables (tract-level neighborhood statistics).
package census

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/Moutron/home-maintenance-app-sub001/internal/adapter/provider"
	"github.com/Moutron/home-maintenance-app-sub001/internal/domain"
)

// Geocoder implements domain.Source using the Census geographies/address endpoint.
type Geocoder struct {
	baseURL string
	http    *provider.Client
	logger  *slog.Logger
}

var _ domain.Source = (*Geocoder)(nil)

// NewGeocoder creates a geocoder client. No credential is required.
func NewGeocoder(baseURL string, timeout time.Duration, ratePerSec float64, logger *slog.Logger) *Geocoder {
	return &Geocoder{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    provider.NewClient(domain.SourceCensusGeocoder, timeout, ratePerSec),
		logger:  logger,
	}
}

func (g *Geocoder) Name() string { return domain.SourceCensusGeocoder }

// Fetch resolves the address to coordinates, a state+county jurisdiction and
// a census tract. A missing match, coordinate block or tract is ErrNoData.
func (g *Geocoder) Fetch(ctx context.Context, q domain.Query) (domain.PropertyProfile, error) {
	a := q.Address.Normalize()
	params := url.Values{
		"street":    {a.Street},
		"city":      {a.City},
		"state":     {a.State},
		"zip":       {a.ZipCode},
		"benchmark": {"Public_AR_Current"},
		"vintage":   {"Current_Current"},
		"format":    {"json"},
	}
	var resp geocodeResponse
	if err := g.http.GetJSON(ctx, g.baseURL+"/geographies/address?"+params.Encode(), &resp); err != nil {
		return domain.PropertyProfile{}, err
	}
	if len(resp.Result.AddressMatches) > 0 {
		g.logger.Debug("census geocoder matched", "matched_address", resp.Result.AddressMatches[0].MatchedAddress)
	}
	return resp.toProfile()
}

type geocodeResponse struct {
	Result struct {
		AddressMatches []addressMatch `json:"addressMatches"`
	} `json:"result"`
}

type addressMatch struct {
	MatchedAddress string       `json:"matchedAddress"`
	Coordinates    *coordinates `json:"coordinates"`
	Geographies    struct {
		Tracts   []geography `json:"Census Tracts"`
		Counties []geography `json:"Counties"`
	} `json:"geographies"`
}

type coordinates struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

type geography struct {
	State  string `json:"STATE"`
	County string `json:"COUNTY"`
	Tract  string `json:"TRACT"`
	Name   string `json:"NAME"`
}

func (r geocodeResponse) toProfile() (domain.PropertyProfile, error) {
	if len(r.Result.AddressMatches) == 0 {
		return domain.PropertyProfile{}, domain.ErrNoData
	}
	m := r.Result.AddressMatches[0]
	if m.Coordinates == nil || m.Coordinates.X == nil || m.Coordinates.Y == nil {
		return domain.PropertyProfile{}, domain.ErrNoData
	}
	if len(m.Geographies.Tracts) == 0 || m.Geographies.Tracts[0].Tract == "" {
		return domain.PropertyProfile{}, domain.ErrNoData
	}
	tract := m.Geographies.Tracts[0]

	lat, lon := *m.Coordinates.Y, *m.Coordinates.X
	p := domain.PropertyProfile{
		Latitude:  &lat,
		Longitude: &lon,
		TractID:   provider.StringPtr(tract.Tract),
	}
	if tract.State != "" && tract.County != "" {
		p.JurisdictionID = provider.StringPtr(tract.State + tract.County)
	}
	if len(m.Geographies.Counties) > 0 {
		p.CountyName = provider.StringPtr(m.Geographies.Counties[0].Name)
	}
	return p, nil
}
