// Package records is the primary property-records adapter. It speaks a
// RentCast-shaped /properties API authenticated with an X-Api-Key header.
package records

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Moutron/home-maintenance-app-sub001/internal/adapter/provider"
	"github.com/Moutron/home-maintenance-app-sub001/internal/domain"
)

// Client implements domain.Source for the property-records provider.
type Client struct {
	apiKey  string
	baseURL string
	http    *provider.Client
	logger  *slog.Logger
}

var _ domain.Source = (*Client)(nil)

// NewClient creates a records client. An empty apiKey makes every Fetch
// return domain.ErrNotConfigured.
func NewClient(apiKey, baseURL string, timeout time.Duration, ratePerSec float64, logger *slog.Logger) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    provider.NewClient(domain.SourcePropertyRecords, timeout, ratePerSec, provider.WithHeader("X-Api-Key", apiKey)),
		logger:  logger,
	}
}

func (c *Client) Name() string { return domain.SourcePropertyRecords }

// Fetch walks the query ladder from most to least specific and maps the
// first record found.
func (c *Client) Fetch(ctx context.Context, q domain.Query) (domain.PropertyProfile, error) {
	if c.apiKey == "" {
		return domain.PropertyProfile{}, domain.ErrNotConfigured
	}

	var lastErr error
	for i, params := range queryLadder(q.Address) {
		if params == nil {
			continue
		}
		profile, err := c.fetchRung(ctx, params)
		if err == nil {
			c.logger.Debug("records matched", "rung", i+1, "address", q.Address.String())
			return profile, nil
		}
		if ctx.Err() != nil {
			return domain.PropertyProfile{}, ctx.Err()
		}
		if errors.Is(err, domain.ErrNoData) || provider.IsStatus(err, http.StatusNotFound) {
			continue
		}
		c.logger.Debug("records rung failed", "rung", i+1, "error", err)
		lastErr = err
	}
	if lastErr != nil {
		return domain.PropertyProfile{}, lastErr
	}
	return domain.PropertyProfile{}, domain.ErrNoData
}

// queryLadder returns the four query shapes; a nil entry is skipped because
// the address lacks the components it needs.
func queryLadder(a domain.Address) []url.Values {
	a = a.Normalize()
	rungs := make([]url.Values, 4)
	if a.Street != "" && a.City != "" && a.State != "" && a.ZipCode != "" {
		rungs[0] = url.Values{"address": {fmt.Sprintf("%s, %s, %s %s", a.Street, a.City, a.State, a.ZipCode)}}
	}
	if a.Street != "" && a.City != "" && a.State != "" {
		rungs[1] = url.Values{"address": {fmt.Sprintf("%s, %s, %s", a.Street, a.City, a.State)}}
	}
	if a.Street != "" {
		rungs[2] = url.Values{"address": {a.Street}}
	}
	if a.City != "" && a.State != "" {
		rungs[3] = url.Values{"city": {a.City}, "state": {a.State}, "limit": {"1"}}
	}
	return rungs
}

func (c *Client) fetchRung(ctx context.Context, params url.Values) (domain.PropertyProfile, error) {
	body, err := c.http.Get(ctx, c.baseURL+"/properties?"+params.Encode())
	if err != nil {
		return domain.PropertyProfile{}, err
	}
	rec, err := decodeFirst(body)
	if err != nil {
		return domain.PropertyProfile{}, err
	}
	profile := rec.toProfile()
	if profile.Empty() {
		return domain.PropertyProfile{}, domain.ErrNoData
	}
	return profile, nil
}

// decodeFirst accepts either a JSON array of records or a single record.
func decodeFirst(body []byte) (record, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var recs []record
		if err := json.Unmarshal(trimmed, &recs); err != nil {
			return record{}, fmt.Errorf("decode records array: %w", err)
		}
		if len(recs) == 0 {
			return record{}, domain.ErrNoData
		}
		return recs[0], nil
	}
	var rec record
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return record{}, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}
