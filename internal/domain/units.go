package domain

import "math"

const (
	sqftPerAcre = 43560.0
	// Lot sizes at or above this many units are read as square feet.
	minLotSquareFeet = 1000.0
)

// LotSizeAcres converts a provider lot size to acres. When the unit is known
// to be square feet, sqft should be true; otherwise the unit is inferred from
// magnitude. ok is false for non-positive or non-finite values.
func LotSizeAcres(v float64, sqft bool) (acres float64, ok bool) {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if sqft || v >= minLotSquareFeet {
		return round(v/sqftPerAcre, 4), true
	}
	return v, true
}

// SquareMetersToFeet converts an area in square metres to square feet.
func SquareMetersToFeet(m2 float64) float64 {
	return m2 * 10.7639
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Round2 rounds to two decimal places; used for climate averages.
func Round2(v float64) float64 { return round(v, 2) }
