package domain

// StormFrequency buckets a location's long-run precipitation exposure.
type StormFrequency string

const (
	StormLow      StormFrequency = "low"
	StormModerate StormFrequency = "moderate"
	StormHigh     StormFrequency = "high"
	StormSevere   StormFrequency = "severe"
)

// Annual-inch thresholds, checked from most to least severe.
var stormThresholds = []struct {
	level StormFrequency
	rain  float64
	snow  float64
}{
	{StormSevere, 60, 60},
	{StormHigh, 45, 30},
	{StormModerate, 25, 10},
}

// ClassifyStormFrequency maps average annual rainfall and snowfall (inches)
// to a StormFrequency. Either figure alone can raise the bucket.
func ClassifyStormFrequency(rainInches, snowInches float64) StormFrequency {
	for _, t := range stormThresholds {
		if rainInches >= t.rain || snowInches >= t.snow {
			return t.level
		}
	}
	return StormLow
}
