// Package advisory turns validated fertilizer and irrigation requests into
// validated recommendations by delegating the reasoning to an LLM provider.
package advisory

import (
	"fmt"
	"time"
)

const (
	FlowFertilizer = "fertilizer"
	FlowIrrigation = "irrigation"
)

// NPK holds soil macro-nutrient readings.
type NPK struct {
	Nitrogen   float64 `json:"nitrogen"`
	Phosphorus float64 `json:"phosphorus"`
	Potassium  float64 `json:"potassium"`
}

type FertilizerRequest struct {
	NPK               NPK      `json:"npk"`
	CropType          string   `json:"cropType"`
	SoilPH            float64  `json:"soilPh"`
	HistoricalYield   *float64 `json:"historicalYield,omitempty"`
	WeatherConditions string   `json:"weatherConditions,omitempty"`
}

type FertilizerResponse struct {
	Recommendation  string  `json:"recommendation"`
	Explanation     string  `json:"explanation"`
	ConfidenceScore float64 `json:"confidenceScore"`
}

type IrrigationRequest struct {
	SoilMoisturePercent float64   `json:"soilMoisturePercent"`
	WeatherForecast     string    `json:"weatherForecast"`
	CropType            string    `json:"cropType"`
	PreviousIrrigation  time.Time `json:"previousIrrigationTimestamp"`
}

type IrrigationResponse struct {
	IrrigationNeeded          bool    `json:"irrigationNeeded"`
	IrrigationDurationMinutes float64 `json:"irrigationDurationMinutes"`
	Reason                    string  `json:"reason"`
}

// DefaultFertilizerRequest returns the starting values of the fertilizer form.
func DefaultFertilizerRequest() FertilizerRequest {
	return FertilizerRequest{
		NPK:      NPK{Nitrogen: 50, Phosphorus: 50, Potassium: 50},
		CropType: "corn",
		SoilPH:   6.5,
	}
}

// DefaultIrrigationRequest returns the starting values of the irrigation form:
// last irrigation three days before now.
func DefaultIrrigationRequest(now time.Time) IrrigationRequest {
	return IrrigationRequest{
		SoilMoisturePercent: 45,
		WeatherForecast:     "Sunny, 10% chance of rain in the next 24 hours.",
		CropType:            "corn",
		PreviousIrrigation:  now.Add(-72 * time.Hour).UTC().Truncate(time.Second),
	}
}

// Crops lists the crop choices offered by the forms. Any non-empty crop is accepted.
var Crops = []string{"corn", "wheat", "soybean", "potato", "tomato"}

// ParseWhen reads a point in time as RFC 3339, a plain date, or a
// non-negative duration meaning "that long before now".
func ParseWhen(v string, now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, nil
	}
	if d, err := time.ParseDuration(v); err == nil && d >= 0 {
		return now.Add(-d).UTC().Truncate(time.Second), nil
	}
	return time.Time{}, fmt.Errorf("%q is neither a time nor a duration", v)
}
