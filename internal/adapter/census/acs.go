package census

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

// ACS table variables requested per tract.
const (
	varMedianHomeValue = "B25077_001E"
	varMedianIncome    = "B19013_001E"
	varPopulation      = "B01003_001E"
)

// Neighborhood implements domain.Source over the ACS 5-year detailed tables.
// It needs Query.Geo with a tract; without one it returns ErrNoData.
type Neighborhood struct {
	baseURL string
	apiKey  string
	http    *provider.Client
	logger  *slog.Logger
}

var _ domain.Source = (*Neighborhood)(nil)

// NewNeighborhood creates an ACS client. apiKey is optional.
func NewNeighborhood(baseURL, apiKey string, timeout time.Duration, ratePerSec float64, logger *slog.Logger) *Neighborhood {
	return &Neighborhood{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    provider.NewClient(domain.SourceCensusACS, timeout, ratePerSec),
		logger:  logger,
	}
}

func (n *Neighborhood) Name() string { return domain.SourceCensusACS }

func (n *Neighborhood) Fetch(ctx context.Context, q domain.Query) (domain.PropertyProfile, error) {
	if !q.Geo.HasTract() {
		return domain.PropertyProfile{}, domain.ErrNoData
	}
	params := url.Values{
		"get": {strings.Join([]string{"NAME", varMedianHomeValue, varMedianIncome, varPopulation}, ",")},
		"for": {"tract:" + q.Geo.Tract},
		"in":  {fmt.Sprintf("state:%s county:%s", q.Geo.StateFIPS, q.Geo.CountyFIPS)},
	}
	if n.apiKey != "" {
		params.Set("key", n.apiKey)
	}

	var rows [][]*string
	if err := n.http.GetJSON(ctx, n.baseURL+"?"+params.Encode(), &rows); err != nil {
		return domain.PropertyProfile{}, err
	}
	p, err := rowsToProfile(rows)
	if err == nil {
		n.logger.Debug("acs tract statistics", "state", q.Geo.StateFIPS, "county", q.Geo.CountyFIPS, "tract", q.Geo.Tract)
	}
	return p, err
}

// rowsToProfile reads the header row and the first data row. Negative values
// are Census sentinels for suppressed or unavailable estimates.
func rowsToProfile(rows [][]*string) (domain.PropertyProfile, error) {
	if len(rows) < 2 {
		return domain.PropertyProfile{}, domain.ErrNoData
	}
	header, data := rows[0], rows[1]
	col := make(map[string]provider.Number, len(header))
	for i, h := range header {
		if h == nil || i >= len(data) || data[i] == nil {
			continue
		}
		raw, err := json.Marshal(*data[i])
		if err != nil {
			continue
		}
		var n provider.Number
		_ = n.UnmarshalJSON(raw)
		if n.Present() && *n.Float() >= 0 {
			col[*h] = n
		}
	}

	p := domain.PropertyProfile{
		MedianHomeValue: col[varMedianHomeValue].Float(),
		MedianIncome:    col[varMedianIncome].Float(),
		Population:      col[varPopulation].Int(),
	}
	if p.Empty() {
		return domain.PropertyProfile{}, domain.ErrNoData
	}
	return p, nil
}
