// Package openmeteo derives climate averages for a location from the
// Open-Meteo historical archive API.
package openmeteo

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Moutron/home-maintenance-app-sub001/internal/adapter/provider"
	"github.com/Moutron/home-maintenance-app-sub001/internal/domain"
)

const (
	mmPerInch = 25.4
	cmPerInch = 2.54
)

// Client implements domain.Source. It needs Query.Geo coordinates.
type Client struct {
	baseURL string
	years   int
	http    *provider.Client
	logger  *slog.Logger
}

var _ domain.Source = (*Client)(nil)

// NewClient creates a weather client averaging over the last years complete
// calendar years.
func NewClient(baseURL string, years int, timeout time.Duration, ratePerSec float64, logger *slog.Logger) *Client {
	if years < 1 {
		years = 1
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		years:   years,
		http:    provider.NewClient(domain.SourceOpenMeteo, timeout, ratePerSec),
		logger:  logger,
	}
}

func (c *Client) Name() string { return domain.SourceOpenMeteo }

// Fetch returns average annual rainfall and snowfall in inches together with
// the storm-frequency classification they imply.
func (c *Client) Fetch(ctx context.Context, q domain.Query) (domain.PropertyProfile, error) {
	if q.Geo == nil {
		return domain.PropertyProfile{}, domain.ErrNoData
	}
	start, end := c.window(domain.Now())
	params := url.Values{
		"latitude":   {strconv.FormatFloat(q.Geo.Latitude, 'f', 4, 64)},
		"longitude":  {strconv.FormatFloat(q.Geo.Longitude, 'f', 4, 64)},
		"start_date": {start},
		"end_date":   {end},
		"daily":      {"precipitation_sum,snowfall_sum"},
		"timezone":   {"UTC"},
	}
	var resp archiveResponse
	if err := c.http.GetJSON(ctx, c.baseURL+"?"+params.Encode(), &resp); err != nil {
		return domain.PropertyProfile{}, err
	}

	rain, snow, ok := resp.Daily.annualAverages()
	if !ok {
		return domain.PropertyProfile{}, domain.ErrNoData
	}
	freq := domain.ClassifyStormFrequency(rain, snow)
	c.logger.Debug("weather averages computed",
		"start", start, "end", end, "rain_in", rain, "snow_in", snow, "storm_frequency", freq)
	return domain.PropertyProfile{
		AvgRainfall:    &rain,
		AvgSnowfall:    &snow,
		StormFrequency: &freq,
	}, nil
}

// window returns the first and last day of the trailing complete years.
func (c *Client) window(now time.Time) (string, string) {
	last := now.UTC().Year() - 1
	first := last - c.years + 1
	return fmt.Sprintf("%04d-01-01", first), fmt.Sprintf("%04d-12-31", last)
}

type archiveResponse struct {
	Daily daily `json:"daily"`
}

type daily struct {
	Time          []string   `json:"time"`
	Precipitation []*float64 `json:"precipitation_sum"`
	Snowfall      []*float64 `json:"snowfall_sum"`
}

// annualAverages sums the daily series and divides by the number of distinct
// years that reported at least one value.
func (d daily) annualAverages() (rainInches, snowInches float64, ok bool) {
	var rainMM, snowCM float64
	years := make(map[string]struct{})
	for i, day := range d.Time {
		seen := false
		if i < len(d.Precipitation) && d.Precipitation[i] != nil {
			rainMM += *d.Precipitation[i]
			seen = true
		}
		if i < len(d.Snowfall) && d.Snowfall[i] != nil {
			snowCM += *d.Snowfall[i]
			seen = true
		}
		if seen && len(day) >= 4 {
			years[day[:4]] = struct{}{}
		}
	}
	if len(years) == 0 {
		return 0, 0, false
	}
	n := float64(len(years))
	return domain.Round2(rainMM / mmPerInch / n), domain.Round2(snowCM / cmPerInch / n), true
}
