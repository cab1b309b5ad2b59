package domain

import "strings"

// PropertyType is the closed set of dwelling classifications.
type PropertyType string

const (
	PropertyTypeSingleFamily PropertyType = "single-family"
	PropertyTypeTownhouse    PropertyType = "townhouse"
	PropertyTypeCondo        PropertyType = "condo"
	PropertyTypeApartment    PropertyType = "apartment"
	PropertyTypeMobileHome   PropertyType = "mobile-home"
	PropertyTypeOther        PropertyType = "other"
	// PropertyTypeUnknown means no classification was attempted.
	PropertyTypeUnknown PropertyType = "unknown"
)

// Most specific first: "town house" must match before the bare "house" rule.
var propertyTypeRules = []struct {
	typ      PropertyType
	keywords []string
}{
	{PropertyTypeTownhouse, []string{"townhouse", "town house", "townhome", "town home", "row house"}},
	{PropertyTypeCondo, []string{"condo"}},
	{PropertyTypeApartment, []string{"apartment", "multi-family", "multifamily"}},
	{PropertyTypeMobileHome, []string{"mobile home", "mobilehome", "manufactured"}},
	{PropertyTypeSingleFamily, []string{"single", "house"}},
}

// NormalizePropertyType classifies a free-text provider property type.
func NormalizePropertyType(raw string) PropertyType {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return PropertyTypeUnknown
	}
	for _, rule := range propertyTypeRules {
		for _, kw := range rule.keywords {
			if strings.Contains(s, kw) {
				return rule.typ
			}
		}
	}
	return PropertyTypeOther
}
