// Package aqi converts pollutant concentrations to the US EPA Air Quality
// Index and classifies index values into health categories.
package aqi

import "math"

// breakpoint is one segment of the EPA PM2.5 piecewise-linear scale.
type breakpoint struct {
	cLo, cHi     float64 // concentration bounds, µg/m³
	aqiLo, aqiHi float64 // index bounds
}

// EPA PM2.5 breakpoints (24-hour average scale).
var pm25Breakpoints = []breakpoint{
	{0.0, 12.0, 0, 50},
	{12.1, 35.4, 51, 100},
	{35.5, 55.4, 101, 150},
	{55.5, 150.4, 151, 200},
	{150.5, 250.4, 201, 300},
	{250.5, 500.4, 301, 500},
}

// FromPM25 converts a PM2.5 concentration in µg/m³ to a US EPA AQI value.
// Negative or NaN input is clamped to zero before lookup; concentrations
// beyond 500.4 extrapolate along the final segment so the result stays
// monotonic.
func FromPM25(concentration float64) int {
	if math.IsNaN(concentration) || concentration < 0 {
		concentration = 0
	}

	for i, bp := range pm25Breakpoints {
		if concentration <= bp.cHi || i == len(pm25Breakpoints)-1 {
			return interpolate(concentration, bp)
		}
	}

	// Unreachable: the final segment always matches.
	return 0
}

func interpolate(c float64, bp breakpoint) int {
	aqi := (bp.aqiHi-bp.aqiLo)/(bp.cHi-bp.cLo)*(c-bp.cLo) + bp.aqiLo
	return int(math.Round(aqi))
}

// Category is a health classification of an AQI value.
type Category string

const (
	CategoryGood          Category = "Good"
	CategoryModerate      Category = "Moderate"
	CategorySensitive     Category = "Unhealthy for Sensitive Groups"
	CategoryUnhealthy     Category = "Unhealthy"
	CategoryVeryUnhealthy Category = "Very Unhealthy"
	CategoryHazardous     Category = "Hazardous"
)

// Level describes an AQI category with its health guidance.
type Level struct {
	Category     Category
	Description  string
	HealthAdvice string

	// RiskLevel grades the category 1 (lowest) to 6 (highest).
	RiskLevel int
}

// LevelFor returns the health classification for an AQI value.
func LevelFor(aqi int) Level {
	switch {
	case aqi <= 50:
		return Level{
			Category:     CategoryGood,
			Description:  "Air quality is satisfactory",
			HealthAdvice: "Enjoy outdoor activities",
			RiskLevel:    1,
		}
	case aqi <= 100:
		return Level{
			Category:     CategoryModerate,
			Description:  "Air quality is acceptable",
			HealthAdvice: "Sensitive individuals should limit outdoor activities",
			RiskLevel:    2,
		}
	case aqi <= 150:
		return Level{
			Category:     CategorySensitive,
			Description:  "Sensitive groups may experience health effects",
			HealthAdvice: "Children, elderly, and people with respiratory conditions should limit outdoor activities",
			RiskLevel:    3,
		}
	case aqi <= 200:
		return Level{
			Category:     CategoryUnhealthy,
			Description:  "Everyone may experience health effects",
			HealthAdvice: "Avoid outdoor activities, especially strenuous exercise",
			RiskLevel:    4,
		}
	case aqi <= 300:
		return Level{
			Category:     CategoryVeryUnhealthy,
			Description:  "Health alert: everyone may experience serious health effects",
			HealthAdvice: "Stay indoors and avoid all outdoor activities",
			RiskLevel:    5,
		}
	default:
		return Level{
			Category:     CategoryHazardous,
			Description:  "Emergency conditions: entire population affected",
			HealthAdvice: "Stay indoors, keep windows closed, use air purifiers",
			RiskLevel:    6,
		}
	}
}

// ExposureRisk grades an AQI value 1..5 for exposure logging. Categories
// above Very Unhealthy collapse into the top grade.
func ExposureRisk(aqi int) int {
	switch {
	case aqi <= 50:
		return 1
	case aqi <= 100:
		return 2
	case aqi <= 150:
		return 3
	case aqi <= 200:
		return 4
	default:
		return 5
	}
}
