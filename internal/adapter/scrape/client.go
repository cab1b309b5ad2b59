// Package scrape is the last-resort records source: it fetches a listing page
// built from a URL template and reads schema.org JSON-LD embedded in it.
// Every fetch is gated on the site's robots.txt.
package scrape

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Moutron/home-maintenance-app-sub001/internal/adapter/provider"
	"github.com/Moutron/home-maintenance-app-sub001/internal/domain"
	"github.com/PuerkitoBio/goquery"
	"github.com/temoto/robotstxt"
)

// Placeholder replaced with the query-escaped address in the URL template.
const Placeholder = "{address}"

// Client implements domain.Source.
type Client struct {
	template  string
	userAgent string
	http      *provider.Client
	logger    *slog.Logger
}

var _ domain.Source = (*Client)(nil)

// NewClient creates a scraping client. A template without Placeholder leaves
// the client unconfigured.
func NewClient(template, userAgent string, timeout time.Duration, ratePerSec float64, logger *slog.Logger) *Client {
	hc := provider.NewClient(domain.SourceWebScrape, timeout, ratePerSec, provider.WithHeader("User-Agent", userAgent))
	return &Client{
		template:  template,
		userAgent: userAgent,
		http:      hc,
		logger:    logger,
	}
}

func (c *Client) Name() string { return domain.SourceWebScrape }

func (c *Client) Fetch(ctx context.Context, q domain.Query) (domain.PropertyProfile, error) {
	if !strings.Contains(c.template, Placeholder) {
		return domain.PropertyProfile{}, domain.ErrNotConfigured
	}
	pageURL, err := url.Parse(strings.ReplaceAll(c.template, Placeholder, url.QueryEscape(q.Address.Normalize().String())))
	if err != nil {
		return domain.PropertyProfile{}, fmt.Errorf("parse scrape url: %w", err)
	}

	allowed, err := c.allowed(ctx, pageURL)
	if err != nil {
		return domain.PropertyProfile{}, err
	}
	if !allowed {
		return domain.PropertyProfile{}, fmt.Errorf("robots.txt disallows %s: %w", pageURL.Path, domain.ErrNotConfigured)
	}

	status, body, err := c.http.Do(ctx, pageURL.String(), http.Header{"Accept": {"text/html"}})
	if err != nil {
		return domain.PropertyProfile{}, err
	}
	if status == http.StatusNotFound {
		return domain.PropertyProfile{}, domain.ErrNoData
	}
	if status < 200 || status > 299 {
		return domain.PropertyProfile{}, &provider.StatusError{Provider: c.Name(), Code: status}
	}

	listings, err := extractListings(body)
	if err != nil {
		return domain.PropertyProfile{}, err
	}
	var profile domain.PropertyProfile
	for _, l := range listings {
		profile.Fill(l.toProfile())
	}
	if profile.Empty() {
		return domain.PropertyProfile{}, domain.ErrNoData
	}
	c.logger.Debug("listing scraped", "url", pageURL.String(), "blocks", len(listings))
	return profile, nil
}

// allowed fetches the host's robots.txt and tests the page path against it.
// A 4xx robots response allows everything; a 5xx disallows everything.
func (c *Client) allowed(ctx context.Context, page *url.URL) (bool, error) {
	robotsURL := url.URL{Scheme: page.Scheme, Host: page.Host, Path: "/robots.txt"}
	status, body, err := c.http.Do(ctx, robotsURL.String(), http.Header{"Accept": {"text/plain"}})
	if err != nil {
		return false, fmt.Errorf("fetch robots.txt: %w", err)
	}
	robots, err := robotstxt.FromStatusAndBytes(status, body)
	if err != nil {
		return false, fmt.Errorf("parse robots.txt: %w", err)
	}
	return robots.TestAgent(page.RequestURI(), c.userAgent), nil
}

// extractListings decodes every JSON-LD script block in the page. Blocks that
// fail to decode are skipped.
func extractListings(html []byte) ([]listing, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse listing page: %w", err)
	}
	var out []listing
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		out = collect([]byte(strings.TrimSpace(s.Text())), out, 0)
	})
	return out, nil
}
