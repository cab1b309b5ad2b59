// Package domain models residential property profiles assembled from public
// and commercial data providers.
//
// # Profiles
//
// A PropertyProfile is a bag of optional facts. Each provider contributes a
// fragment; fragments are combined with Fill, which only sets attributes that
// are still unset. Precedence is therefore the order in which fragments are
// filled, not the order in which providers answer:
//
//	property-records > county-assessor > census-geocoder > census-acs >
//	open-meteo|zipcode-cache > address-standardization > web-scrape
//
// Sources records which providers contributed, in completion order, without
// duplicates. An empty Sources list is a valid "nothing found" result.
//
// # Sources
//
// A Source returns either a fragment or an error. ErrNoData and
// ErrNotConfigured are expected outcomes; anything else is a provider failure.
// Soft wraps a Source so that every failure, including timeouts and panics,
// becomes a Result with OK=false. Nothing past that boundary carries an error.
//
// # Provider conventions
//
// Numbers often arrive as strings ("1980", "1,850"). Unparseable values are
// dropped, never zeroed.
//
// Lot size is reported in acres by some providers and square feet by others.
// Values of 1,000 or more are read as square feet and divided by 43,560.
//
// Census ACS uses large negative sentinels (e.g. -666666666) for suppressed
// estimates; those are dropped.
//
// Weather figures are annual averages in inches: rainfall is converted from
// millimetres, snowfall from centimetres.
//
// # Derived facts
//
// ClassifyStormFrequency, NormalizePropertyType and the inventory seeders are
// pure functions of profile data and the package clock.
package domain
