package domain

import "strings"

// Condition is a coarse health estimate for a seeded component.
type Condition string

const (
	ConditionExcellent Condition = "excellent"
	ConditionGood      Condition = "good"
	ConditionFair      Condition = "fair"
)

// SystemRecord is a starter building-system entry for a newly registered home.
type SystemRecord struct {
	Category              string    `json:"category"`
	Type                  string    `json:"type"`
	Fuel                  string    `json:"fuel,omitempty"`
	InstallYear           *int      `json:"installYear,omitempty"`
	ExpectedLifespanYears int       `json:"expectedLifespanYears"`
	Condition             Condition `json:"condition"`
}

// ApplianceRecord is a starter appliance entry for a newly registered home.
type ApplianceRecord struct {
	Category              string    `json:"category"`
	Fuel                  string    `json:"fuel,omitempty"`
	InstallYear           *int      `json:"installYear,omitempty"`
	ExpectedLifespanYears int       `json:"expectedLifespanYears"`
	Condition             Condition `json:"condition"`
}

// Inventory groups the seeded records returned for one home.
type Inventory struct {
	Systems    []SystemRecord    `json:"systems"`
	Appliances []ApplianceRecord `json:"appliances"`
}

var roofLifespans = []struct {
	keyword  string
	material string
	years    int
}{
	{"metal", "metal", 40},
	{"tile", "tile", 50},
	{"slate", "slate", 75},
	{"wood", "wood", 25},
	{"shake", "wood", 25},
}

const (
	roofAsphaltYears     = 20
	furnaceYears         = 20
	heatPumpYears        = 15
	centralAirYears      = 15
	boilerYears          = 25
	tankWaterHeaterYears = 10
	tanklessHeaterYears  = 20
	plumbingYears        = 50
	electricalYears      = 40
	rangeYears           = 15
	washerYears          = 11
	dryerYears           = 13
	defaultApplianceFuel = "electric"
	defaultHeatingFuel   = "gas"
)

// SeedInventory builds starter systems and appliances for a home. yearBuilt
// overrides the profile's year built when set.
func SeedInventory(p PropertyProfile, yearBuilt *int) Inventory {
	if yearBuilt == nil {
		yearBuilt = p.YearBuilt
	}
	return Inventory{
		Systems:    SeedSystems(p, yearBuilt),
		Appliances: SeedAppliances(p, yearBuilt),
	}
}

// SeedSystems returns HVAC, water heater, roof, plumbing and electrical records.
func SeedSystems(p PropertyProfile, yearBuilt *int) []SystemRecord {
	now := clock.Now().Year()
	system := func(category, typ, fuel string, lifespan int) SystemRecord {
		install, cond := estimateAge(yearBuilt, lifespan, now)
		return SystemRecord{
			Category:              category,
			Type:                  typ,
			Fuel:                  fuel,
			InstallYear:           install,
			ExpectedLifespanYears: lifespan,
			Condition:             cond,
		}
	}

	heatType, heatYears := heatingSystem(value(p.HeatingType))
	heatFuel := fuelOr(p.HeatingFuel, defaultHeatingFuel)
	if heatType == "heat pump" {
		heatFuel = fuelOr(p.HeatingFuel, "electric")
	}
	records := []SystemRecord{system("hvac", heatType, heatFuel, heatYears)}

	if cooling := strings.ToLower(value(p.CoolingType)); cooling != "" && cooling != "none" && heatType != "heat pump" {
		records = append(records, system("hvac", "central air", "electric", centralAirYears))
	}

	whType, whYears := waterHeater(value(p.WaterHeaterType))
	records = append(records,
		system("water_heater", whType, fuelOr(p.WaterHeaterFuel, defaultHeatingFuel), whYears),
	)

	roofMaterial, roofYears := roof(value(p.RoofType))
	records = append(records,
		system("roof", roofMaterial, "", roofYears),
		system("plumbing", "plumbing", "", plumbingYears),
		system("electrical", "electrical", "", electricalYears),
	)
	return records
}

// SeedAppliances returns range, washer, dryer and water heater records.
func SeedAppliances(p PropertyProfile, yearBuilt *int) []ApplianceRecord {
	now := clock.Now().Year()
	appliance := func(category, fuel string, lifespan int) ApplianceRecord {
		install, cond := estimateAge(yearBuilt, lifespan, now)
		return ApplianceRecord{
			Category:              category,
			Fuel:                  fuel,
			InstallYear:           install,
			ExpectedLifespanYears: lifespan,
			Condition:             cond,
		}
	}
	_, whYears := waterHeater(value(p.WaterHeaterType))
	return []ApplianceRecord{
		appliance("range", fuelOr(p.RangeFuel, defaultApplianceFuel), rangeYears),
		appliance("washer", "", washerYears),
		appliance("dryer", fuelOr(p.DryerFuel, defaultApplianceFuel), dryerYears),
		appliance("water_heater", fuelOr(p.WaterHeaterFuel, defaultHeatingFuel), whYears),
	}
}

// estimateAge assumes a component older than its lifespan was replaced on
// that cycle, and grades condition by the fraction of lifespan used.
func estimateAge(yearBuilt *int, lifespan, now int) (*int, Condition) {
	if yearBuilt == nil || *yearBuilt <= 0 || *yearBuilt > now || lifespan <= 0 {
		return nil, ConditionGood
	}
	homeAge := now - *yearBuilt
	install := *yearBuilt + (homeAge/lifespan)*lifespan
	used := float64(now-install) / float64(lifespan)
	switch {
	case used < 0.5:
		return &install, ConditionExcellent
	case used < 0.8:
		return &install, ConditionGood
	default:
		return &install, ConditionFair
	}
}

func heatingSystem(raw string) (string, int) {
	s := strings.ToLower(raw)
	switch {
	case strings.Contains(s, "heat pump"):
		return "heat pump", heatPumpYears
	case strings.Contains(s, "boiler"), strings.Contains(s, "radiant"), strings.Contains(s, "hot water"):
		return "boiler", boilerYears
	default:
		return "furnace", furnaceYears
	}
}

func waterHeater(raw string) (string, int) {
	if strings.Contains(strings.ToLower(raw), "tankless") {
		return "tankless", tanklessHeaterYears
	}
	return "tank", tankWaterHeaterYears
}

func roof(raw string) (string, int) {
	s := strings.ToLower(raw)
	for _, r := range roofLifespans {
		if strings.Contains(s, r.keyword) {
			return r.material, r.years
		}
	}
	return "asphalt", roofAsphaltYears
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func fuelOr(s *string, def string) string {
	if v := strings.ToLower(value(s)); v != "" {
		return v
	}
	return def
}
