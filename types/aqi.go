package types

// ------------------------
// Air-quality category
// ------------------------

// Category is the discrete air-quality bucket derived from PM2.5.
// Values are ordered: a worse category compares greater.
type Category uint8

const (
	Good Category = iota
	Moderate
	UnhealthySensitive
	Unhealthy
	VeryUnhealthy
	Hazardous
)

func (c Category) String() string {
	switch c {
	case Good:
		return "Good"
	case Moderate:
		return "Moderate"
	case UnhealthySensitive:
		return "Unhealthy (sens.)"
	case Unhealthy:
		return "Unhealthy"
	case VeryUnhealthy:
		return "Very Unhealthy"
	default:
		return "Hazardous"
	}
}
