// Package assessor is the fallback property-records adapter. It queries
// county appraisal-district parcel layers published as ArcGIS FeatureServer
// endpoints, one per state.
package assessor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/Moutron/home-maintenance-app-sub001/internal/adapter/provider"
	"github.com/Moutron/home-maintenance-app-sub001/internal/domain"
)

// Client implements domain.Source over per-state ArcGIS query endpoints.
type Client struct {
	endpoints map[string]string
	http      *provider.Client
	logger    *slog.Logger
}

var _ domain.Source = (*Client)(nil)

// NewClient creates an assessor client. endpoints maps an uppercase state code
// to a FeatureServer layer query URL.
func NewClient(endpoints map[string]string, timeout time.Duration, ratePerSec float64, logger *slog.Logger) *Client {
	return &Client{
		endpoints: endpoints,
		http:      provider.NewClient(domain.SourceCountyAssessor, timeout, ratePerSec),
		logger:    logger,
	}
}

func (c *Client) Name() string { return domain.SourceCountyAssessor }

// Fetch returns the first parcel whose situs address starts with the street.
// States without an endpoint yield domain.ErrNoData without any request.
func (c *Client) Fetch(ctx context.Context, q domain.Query) (domain.PropertyProfile, error) {
	addr := q.Address.Normalize()
	endpoint, ok := c.endpoints[addr.State]
	if !ok || addr.Street == "" {
		return domain.PropertyProfile{}, domain.ErrNoData
	}

	params := url.Values{
		"where":             {situsClause(addr.Street)},
		"outFields":         {"*"},
		"returnGeometry":    {"false"},
		"resultRecordCount": {"1"},
		"f":                 {"json"},
	}
	var resp queryResponse
	if err := c.http.GetJSON(ctx, endpoint+"?"+params.Encode(), &resp); err != nil {
		return domain.PropertyProfile{}, err
	}
	// ArcGIS reports query errors with HTTP 200 and an error object.
	if resp.Error != nil {
		return domain.PropertyProfile{}, fmt.Errorf("arcgis error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	if len(resp.Features) == 0 {
		return domain.PropertyProfile{}, domain.ErrNoData
	}

	profile := resp.Features[0].Attributes.toProfile()
	if profile.Empty() {
		return domain.PropertyProfile{}, domain.ErrNoData
	}
	return profile, nil
}

// situsClause builds a case-insensitive prefix match on the situs address.
func situsClause(street string) string {
	escaped := strings.ReplaceAll(strings.ToUpper(street), "'", "''")
	return fmt.Sprintf("UPPER(SITUS_ADDR) LIKE '%s%%'", escaped)
}

type queryResponse struct {
	Features []struct {
		Attributes parcel `json:"attributes"`
	} `json:"features"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// parcel resolves appraisal-district attribute names. Field names differ in
// case between districts, so decoding goes through a case-folded map.
type parcel map[string]json.RawMessage

func (p *parcel) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(parcel, len(raw))
	for k, v := range raw {
		out[strings.ToUpper(k)] = v
	}
	*p = out
	return nil
}

func (p parcel) number(names ...string) provider.Number {
	for _, name := range names {
		raw, ok := p[strings.ToUpper(name)]
		if !ok {
			continue
		}
		var n provider.Number
		_ = json.Unmarshal(raw, &n)
		if n.Present() {
			return n
		}
	}
	return provider.Number{}
}

func (p parcel) text(names ...string) string {
	for _, name := range names {
		raw, ok := p[strings.ToUpper(name)]
		if !ok {
			continue
		}
		var s string
		if json.Unmarshal(raw, &s) == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func (p parcel) toProfile() domain.PropertyProfile {
	profile := domain.PropertyProfile{
		YearBuilt:     p.number("YEAR_BUILT", "YR_BLT").Positive().Int(),
		SquareFootage: p.number("LIVING_AREA", "BLDG_SQFT").Positive().Int(),
		Bedrooms:      p.number("NUM_BEDROOMS", "BEDROOMS").Int(),
		Bathrooms:     p.number("NUM_BATHROOMS", "BATHROOMS").Float(),
		AssessedValue: p.number("TOTAL_VALUE", "APPRAISED_VALUE").Positive().Float(),
		CountyName:    provider.StringPtr(p.text("COUNTY")),
	}
	if acres := p.number("LAND_ACRES", "ACRES").Positive(); acres.Present() {
		profile.LotSizeAcres = acres.Float()
	} else if sqft := p.number("LAND_SQFT").Positive(); sqft.Present() {
		if v, ok := domain.LotSizeAcres(*sqft.Float(), true); ok {
			profile.LotSizeAcres = &v
		}
	}
	return profile
}
