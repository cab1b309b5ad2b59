// Package smarty checks addresses against the Smarty US Street API. A match
// is recorded as a contributing source; it adds no profile fields.
package smarty

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/Moutron/home-maintenance-app-sub001/internal/adapter/provider"
	"github.com/Moutron/home-maintenance-app-sub001/internal/domain"
)

// Client implements domain.Source.
type Client struct {
	authID    string
	authToken string
	baseURL   string
	http      *provider.Client
	logger    *slog.Logger
}

var _ domain.Source = (*Client)(nil)

// NewClient creates a standardization client. Both credentials are required;
// without them Fetch returns domain.ErrNotConfigured.
func NewClient(authID, authToken, baseURL string, timeout time.Duration, ratePerSec float64, logger *slog.Logger) *Client {
	return &Client{
		authID:    authID,
		authToken: authToken,
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      provider.NewClient(domain.SourceStandardization, timeout, ratePerSec),
		logger:    logger,
	}
}

func (c *Client) Name() string { return domain.SourceStandardization }

// Fetch returns an empty fragment when Smarty has at least one candidate for
// the address and domain.ErrNoData when it has none.
func (c *Client) Fetch(ctx context.Context, q domain.Query) (domain.PropertyProfile, error) {
	if c.authID == "" || c.authToken == "" {
		return domain.PropertyProfile{}, domain.ErrNotConfigured
	}
	a := q.Address.Normalize()
	params := url.Values{
		"auth-id":    {c.authID},
		"auth-token": {c.authToken},
		"street":     {a.Street},
		"city":       {a.City},
		"state":      {a.State},
		"zipcode":    {a.ZipCode},
		"candidates": {"1"},
	}
	var candidates []candidate
	if err := c.http.GetJSON(ctx, c.baseURL+"/street-address?"+params.Encode(), &candidates); err != nil {
		return domain.PropertyProfile{}, err
	}
	if len(candidates) == 0 {
		return domain.PropertyProfile{}, domain.ErrNoData
	}
	c.logger.Debug("address standardized",
		"delivery_line", candidates[0].DeliveryLine1, "last_line", candidates[0].LastLine)
	return domain.PropertyProfile{}, nil
}

type candidate struct {
	DeliveryLine1 string          `json:"delivery_line_1"`
	LastLine      string          `json:"last_line"`
	Metadata      json.RawMessage `json:"metadata"`
}
