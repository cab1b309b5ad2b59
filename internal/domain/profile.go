package domain

import (
	"errors"
	"slices"
	"strings"
	"time"
)

// Address is the inbound lookup key for an enrichment.
type Address struct {
	Street  string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
}

// ErrIncompleteAddress is returned by Address.Validate.
var ErrIncompleteAddress = errors.New("address, city, state and zipCode are required")

// Normalize trims and collapses whitespace and uppercases the state code.
func (a Address) Normalize() Address {
	return Address{
		Street:  collapseSpace(a.Street),
		City:    collapseSpace(a.City),
		State:   strings.ToUpper(strings.TrimSpace(a.State)),
		ZipCode: strings.TrimSpace(a.ZipCode),
	}
}

// Validate reports whether every component is present after normalization.
func (a Address) Validate() error {
	n := a.Normalize()
	if n.Street == "" || n.City == "" || n.State == "" || n.ZipCode == "" {
		return ErrIncompleteAddress
	}
	return nil
}

// String renders the address as a single line, e.g. "123 Main St, Austin, TX 78701".
func (a Address) String() string {
	n := a.Normalize()
	return n.Street + ", " + n.City + ", " + n.State + " " + n.ZipCode
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// PropertyProfile is the merged result of an enrichment. Every attribute is
// optional; nil means no source has populated it. A profile with no Sources
// is the "nothing found" result.
type PropertyProfile struct {
	// Structural facts.
	YearBuilt     *int          `json:"yearBuilt,omitempty"`
	SquareFootage *int          `json:"squareFootage,omitempty"`
	LotSizeAcres  *float64      `json:"lotSizeAcres,omitempty"`
	Bedrooms      *int          `json:"bedrooms,omitempty"`
	Bathrooms     *float64      `json:"bathrooms,omitempty"`
	Stories       *int          `json:"stories,omitempty"`
	GarageSpaces  *int          `json:"garageSpaces,omitempty"`
	PropertyType  *PropertyType `json:"propertyType,omitempty"`

	// Financial facts.
	AssessedValue *float64   `json:"assessedValue,omitempty"`
	MarketValue   *float64   `json:"marketValue,omitempty"`
	TaxAmount     *float64   `json:"taxAmount,omitempty"`
	TaxYear       *int       `json:"taxYear,omitempty"`
	LastSalePrice *float64   `json:"lastSalePrice,omitempty"`
	LastSaleDate  *time.Time `json:"lastSaleDate,omitempty"`

	// Building systems.
	HeatingType      *string `json:"heatingType,omitempty"`
	HeatingFuel      *string `json:"heatingFuel,omitempty"`
	CoolingType      *string `json:"coolingType,omitempty"`
	WaterHeaterType  *string `json:"waterHeaterType,omitempty"`
	WaterHeaterFuel  *string `json:"waterHeaterFuel,omitempty"`
	RoofType         *string `json:"roofType,omitempty"`
	FoundationType   *string `json:"foundationType,omitempty"`
	ConstructionType *string `json:"constructionType,omitempty"`
	RangeFuel        *string `json:"rangeFuel,omitempty"`
	DryerFuel        *string `json:"dryerFuel,omitempty"`

	// Neighborhood.
	MedianHomeValue   *float64 `json:"medianHomeValue,omitempty"`
	MedianIncome      *float64 `json:"medianIncome,omitempty"`
	Population        *int     `json:"population,omitempty"`
	PopulationDensity *float64 `json:"populationDensity,omitempty"`

	// Geography. JurisdictionID is the 2-digit state plus 3-digit county FIPS code.
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	JurisdictionID *string  `json:"jurisdictionId,omitempty"`
	TractID        *string  `json:"tractId,omitempty"`
	CountyName     *string  `json:"countyName,omitempty"`

	// Climate.
	StormFrequency *StormFrequency `json:"stormFrequency,omitempty"`
	AvgRainfall    *float64        `json:"avgRainfallInches,omitempty"`
	AvgSnowfall    *float64        `json:"avgSnowfallInches,omitempty"`

	Sources []string `json:"sources"`
}

// AddSource appends a source label unless it is already recorded.
func (p *PropertyProfile) AddSource(label string) {
	if label == "" || slices.Contains(p.Sources, label) {
		return
	}
	p.Sources = append(p.Sources, label)
}

// HasCoordinates reports whether both latitude and longitude are set.
func (p PropertyProfile) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// HasUsefulData reports whether the profile carries at least one fact worth caching.
func (p PropertyProfile) HasUsefulData() bool {
	return p.YearBuilt != nil || p.SquareFootage != nil || p.Bedrooms != nil || p.HasCoordinates()
}

// Empty reports whether no attribute is set, ignoring Sources.
func (p PropertyProfile) Empty() bool {
	var zero PropertyProfile
	return zero.Fill(p) == 0
}

// Fill copies every attribute of src that is unset on p and returns how many
// were copied. Attributes already set on p are never overwritten. Sources are
// not touched.
func (p *PropertyProfile) Fill(src PropertyProfile) int {
	n := 0
	n += fill(&p.YearBuilt, src.YearBuilt)
	n += fill(&p.SquareFootage, src.SquareFootage)
	n += fill(&p.LotSizeAcres, src.LotSizeAcres)
	n += fill(&p.Bedrooms, src.Bedrooms)
	n += fill(&p.Bathrooms, src.Bathrooms)
	n += fill(&p.Stories, src.Stories)
	n += fill(&p.GarageSpaces, src.GarageSpaces)
	n += fill(&p.PropertyType, src.PropertyType)

	n += fill(&p.AssessedValue, src.AssessedValue)
	n += fill(&p.MarketValue, src.MarketValue)
	n += fill(&p.TaxAmount, src.TaxAmount)
	n += fill(&p.TaxYear, src.TaxYear)
	n += fill(&p.LastSalePrice, src.LastSalePrice)
	n += fill(&p.LastSaleDate, src.LastSaleDate)

	n += fill(&p.HeatingType, src.HeatingType)
	n += fill(&p.HeatingFuel, src.HeatingFuel)
	n += fill(&p.CoolingType, src.CoolingType)
	n += fill(&p.WaterHeaterType, src.WaterHeaterType)
	n += fill(&p.WaterHeaterFuel, src.WaterHeaterFuel)
	n += fill(&p.RoofType, src.RoofType)
	n += fill(&p.FoundationType, src.FoundationType)
	n += fill(&p.ConstructionType, src.ConstructionType)
	n += fill(&p.RangeFuel, src.RangeFuel)
	n += fill(&p.DryerFuel, src.DryerFuel)

	n += fill(&p.MedianHomeValue, src.MedianHomeValue)
	n += fill(&p.MedianIncome, src.MedianIncome)
	n += fill(&p.Population, src.Population)
	n += fill(&p.PopulationDensity, src.PopulationDensity)

	n += fill(&p.Latitude, src.Latitude)
	n += fill(&p.Longitude, src.Longitude)
	n += fill(&p.JurisdictionID, src.JurisdictionID)
	n += fill(&p.TractID, src.TractID)
	n += fill(&p.CountyName, src.CountyName)

	n += fill(&p.StormFrequency, src.StormFrequency)
	n += fill(&p.AvgRainfall, src.AvgRainfall)
	n += fill(&p.AvgSnowfall, src.AvgSnowfall)
	return n
}

// fill sets *dst to a copy of *src when dst is unset, so merged profiles
// never alias a fragment's storage.
func fill[T any](dst **T, src *T) int {
	if *dst != nil || src == nil {
		return 0
	}
	v := *src
	*dst = &v
	return 1
}

// Clone returns a deep copy of p.
func (p PropertyProfile) Clone() PropertyProfile {
	var out PropertyProfile
	out.Fill(p)
	if p.Sources != nil {
		out.Sources = slices.Clone(p.Sources)
	}
	return out
}

// Merge returns a new profile holding every attribute of a, plus the attributes
// of b that a leaves unset. Sources are the union of both, a's first.
func Merge(a, b PropertyProfile) PropertyProfile {
	out := a.Clone()
	out.Fill(b)
	for _, s := range b.Sources {
		out.AddSource(s)
	}
	return out
}
