package records

import (
	"strconv"

	"github.com/Moutron/home-maintenance-app-sub001/internal/adapter/provider"
	"github.com/Moutron/home-maintenance-app-sub001/internal/domain"
)

// record lists every field name the provider has been seen to use. Synonyms
// are resolved in toProfile, first present wins.
type record struct {
	YearBuilt        provider.Number `json:"yearBuilt"`
	YearBuiltSnake   provider.Number `json:"year_built"`
	BuiltYear        provider.Number `json:"builtYear"`
	SquareFootage    provider.Number `json:"squareFootage"`
	LivingArea       provider.Number `json:"livingArea"`
	BuildingSize     provider.Number `json:"buildingSize"`
	Sqft             provider.Number `json:"sqft"`
	LotSize          provider.Number `json:"lotSize"`
	LotSizeAcres     provider.Number `json:"lotSizeAcres"`
	LotSquareFootage provider.Number `json:"lotSquareFootage"`
	Bedrooms         provider.Number `json:"bedrooms"`
	Beds             provider.Number `json:"beds"`
	Bathrooms        provider.Number `json:"bathrooms"`
	Baths            provider.Number `json:"baths"`
	Stories          provider.Number `json:"stories"`
	FloorCount       provider.Number `json:"floorCount"`
	GarageSpaces     provider.Number `json:"garageSpaces"`
	PropertyType     string          `json:"propertyType"`
	Type             string          `json:"type"`

	AssessedValue  provider.Number `json:"assessedValue"`
	MarketValue    provider.Number `json:"marketValue"`
	EstimatedValue provider.Number `json:"estimatedValue"`
	TaxAmount      provider.Number `json:"taxAmount"`
	LastSalePrice  provider.Number `json:"lastSalePrice"`
	LastSaleDate   string          `json:"lastSaleDate"`

	County    string          `json:"county"`
	Latitude  provider.Number `json:"latitude"`
	Longitude provider.Number `json:"longitude"`

	Features       features                 `json:"features"`
	TaxAssessments map[string]taxAssessment `json:"taxAssessments"`
	PropertyTaxes  map[string]propertyTax   `json:"propertyTaxes"`
}

type features struct {
	FloorCount       provider.Number `json:"floorCount"`
	GarageSpaces     provider.Number `json:"garageSpaces"`
	HeatingType      string          `json:"heatingType"`
	HeatingFuel      string          `json:"heatingFuel"`
	CoolingType      string          `json:"coolingType"`
	RoofType         string          `json:"roofType"`
	FoundationType   string          `json:"foundationType"`
	ConstructionType string          `json:"constructionType"`
	ExteriorType     string          `json:"exteriorType"`
	WaterHeaterType  string          `json:"waterHeaterType"`
	WaterHeaterFuel  string          `json:"waterHeaterFuel"`
}

type taxAssessment struct {
	Year  provider.Number `json:"year"`
	Value provider.Number `json:"value"`
}

type propertyTax struct {
	Year  provider.Number `json:"year"`
	Total provider.Number `json:"total"`
}

func (r record) toProfile() domain.PropertyProfile {
	p := domain.PropertyProfile{
		YearBuilt:     provider.First(r.YearBuilt, r.YearBuiltSnake, r.BuiltYear).Positive().Int(),
		SquareFootage: provider.First(r.SquareFootage, r.LivingArea, r.BuildingSize, r.Sqft).Positive().Int(),
		Bedrooms:      provider.First(r.Bedrooms, r.Beds).Int(),
		Bathrooms:     provider.First(r.Bathrooms, r.Baths).Float(),
		Stories:       provider.First(r.Stories, r.FloorCount, r.Features.FloorCount).Positive().Int(),
		GarageSpaces:  provider.First(r.GarageSpaces, r.Features.GarageSpaces).Int(),

		MarketValue:   provider.First(r.MarketValue, r.EstimatedValue).Positive().Float(),
		LastSalePrice: r.LastSalePrice.Positive().Float(),
		LastSaleDate:  provider.ParseDate(r.LastSaleDate),

		HeatingType:      provider.StringPtr(r.Features.HeatingType),
		HeatingFuel:      provider.StringPtr(r.Features.HeatingFuel),
		CoolingType:      provider.StringPtr(r.Features.CoolingType),
		RoofType:         provider.StringPtr(r.Features.RoofType),
		FoundationType:   provider.StringPtr(r.Features.FoundationType),
		ConstructionType: provider.StringPtr(provider.FirstString(r.Features.ConstructionType, r.Features.ExteriorType)),
		WaterHeaterType:  provider.StringPtr(r.Features.WaterHeaterType),
		WaterHeaterFuel:  provider.StringPtr(r.Features.WaterHeaterFuel),

		CountyName: provider.StringPtr(r.County),
	}

	if r.Latitude.Present() && r.Longitude.Present() {
		p.Latitude = r.Latitude.Float()
		p.Longitude = r.Longitude.Float()
	}

	if raw := provider.FirstString(r.PropertyType, r.Type); raw != "" {
		pt := domain.NormalizePropertyType(raw)
		p.PropertyType = &pt
	}

	p.LotSizeAcres = lotSize(r)

	if year, a, ok := latest(r.TaxAssessments, func(t taxAssessment) (provider.Number, provider.Number) { return t.Year, t.Value }); ok {
		p.AssessedValue = a.Float()
		p.TaxYear = &year
	} else {
		p.AssessedValue = r.AssessedValue.Positive().Float()
	}
	if year, t, ok := latest(r.PropertyTaxes, func(t propertyTax) (provider.Number, provider.Number) { return t.Year, t.Total }); ok {
		p.TaxAmount = t.Float()
		if p.TaxYear == nil {
			p.TaxYear = &year
		}
	} else {
		p.TaxAmount = r.TaxAmount.Positive().Float()
	}
	return p
}

func lotSize(r record) *float64 {
	var (
		acres float64
		ok    bool
	)
	switch {
	case r.LotSizeAcres.Present():
		v := *r.LotSizeAcres.Float()
		acres, ok = v, v > 0
	case r.LotSquareFootage.Present():
		acres, ok = domain.LotSizeAcres(*r.LotSquareFootage.Float(), true)
	case r.LotSize.Present():
		acres, ok = domain.LotSizeAcres(*r.LotSize.Float(), false)
	}
	if !ok {
		return nil
	}
	return &acres
}

// latest picks the entry with the highest year from a year-keyed map. The
// year comes from the entry itself, falling back to the map key.
func latest[T any](m map[string]T, fields func(T) (year, amount provider.Number)) (int, provider.Number, bool) {
	bestYear := -1
	var best provider.Number
	for key, v := range m {
		yearNum, amount := fields(v)
		amount = amount.Positive()
		if !amount.Present() {
			continue
		}
		year := -1
		if y := yearNum.Int(); y != nil {
			year = *y
		} else if y, err := strconv.Atoi(key); err == nil {
			year = y
		}
		if year > bestYear {
			bestYear, best = year, amount
		}
	}
	if bestYear < 0 {
		return 0, provider.Number{}, false
	}
	return bestYear, best, true
}
