package scrape

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/Moutron/home-maintenance-app-sub001/internal/adapter/provider"
	"github.com/Moutron/home-maintenance-app-sub001/internal/domain"
)

// @graph nesting deeper than this is ignored.
const maxGraphDepth = 3

// listing is the subset of schema.org Accommodation/Residence we read.
type listing struct {
	Type      typeNames         `json:"@type"`
	Graph     []json.RawMessage `json:"@graph"`
	YearBuilt provider.Number   `json:"yearBuilt"`
	FloorSize quantity          `json:"floorSize"`
	Bedrooms  provider.Number   `json:"numberOfBedrooms"`
	Rooms     provider.Number   `json:"numberOfRooms"`
	Bathrooms provider.Number   `json:"numberOfBathroomsTotal"`
	Geo       *struct {
		Latitude  provider.Number `json:"latitude"`
		Longitude provider.Number `json:"longitude"`
	} `json:"geo"`
}

// collect appends the listings in a JSON-LD value, which may be a single
// node, an array of nodes, or a node carrying an @graph.
func collect(raw []byte, out []listing, depth int) []listing {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || depth > maxGraphDepth {
		return out
	}
	if raw[0] == '[' {
		var items []json.RawMessage
		if json.Unmarshal(raw, &items) != nil {
			return out
		}
		for _, item := range items {
			out = collect(item, out, depth)
		}
		return out
	}
	var l listing
	if json.Unmarshal(raw, &l) != nil {
		return out
	}
	out = append(out, l)
	for _, node := range l.Graph {
		out = collect(node, out, depth+1)
	}
	return out
}

func (l listing) toProfile() domain.PropertyProfile {
	p := domain.PropertyProfile{
		YearBuilt: l.YearBuilt.Positive().Int(),
		Bedrooms:  provider.First(l.Bedrooms, l.Rooms).Int(),
		Bathrooms: l.Bathrooms.Float(),
	}
	if sqft, ok := l.FloorSize.squareFeet(); ok {
		v := int(sqft + 0.5)
		p.SquareFootage = &v
	}
	if l.Geo != nil && l.Geo.Latitude.Present() && l.Geo.Longitude.Present() {
		p.Latitude = l.Geo.Latitude.Float()
		p.Longitude = l.Geo.Longitude.Float()
	}
	for _, name := range l.Type {
		if t := domain.NormalizePropertyType(splitCamel(name)); t != domain.PropertyTypeOther && t != domain.PropertyTypeUnknown {
			p.PropertyType = &t
			break
		}
	}
	return p
}

// typeNames decodes @type, which is either a string or an array of strings.
type typeNames []string

func (t *typeNames) UnmarshalJSON(data []byte) error {
	var one string
	if json.Unmarshal(data, &one) == nil {
		*t = typeNames{one}
		return nil
	}
	var many []string
	if json.Unmarshal(data, &many) == nil {
		*t = many
	}
	return nil
}

// quantity decodes floorSize, either a bare number or a QuantitativeValue.
type quantity struct {
	value provider.Number
	unit  string
}

func (q *quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var qv struct {
			Value    provider.Number `json:"value"`
			UnitCode string          `json:"unitCode"`
			UnitText string          `json:"unitText"`
		}
		if json.Unmarshal(data, &qv) == nil {
			q.value = qv.Value
			q.unit = strings.ToUpper(provider.FirstString(qv.UnitCode, qv.UnitText))
		}
		return nil
	}
	return q.value.UnmarshalJSON(data)
}

// squareFeet converts the quantity, treating MTK (UN/CEFACT square metre)
// and metric unit text as square metres.
func (q quantity) squareFeet() (float64, bool) {
	v := q.value.Positive().Float()
	if v == nil {
		return 0, false
	}
	switch q.unit {
	case "MTK", "M2", "SQM", "SQ M":
		return domain.SquareMetersToFeet(*v), true
	}
	return *v, true
}

// splitCamel turns "SingleFamilyResidence" into "Single Family Residence" so
// schema.org type names match free-text keywords.
func splitCamel(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}
