package station

import "aqstation-go/types"

// PM2.5 breakpoints in µg/m³. Each entry is the inclusive lower bound of
// the category at the same index; values above the last bound saturate at
// Hazardous. Derived from the US EPA 24-hour PM2.5 scale, truncated to
// integer concentrations as delivered by the sensor.
var pm25Breakpoints = [...]uint16{
	0,   // Good
	12,  // Moderate
	35,  // Unhealthy for sensitive groups
	55,  // Unhealthy
	150, // Very Unhealthy
	250, // Hazardous
}

// Classify maps a PM2.5 concentration to its air-quality category.
// Total over all inputs; pure function.
func Classify(pm25 uint16) types.Category {
	cat := types.Good
	for i := 1; i < len(pm25Breakpoints); i++ {
		if pm25 >= pm25Breakpoints[i] {
			cat = types.Category(i)
		}
	}
	return cat
}
