package advisory

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"agrimind/api/internal/llm"
)

const fertilizerIntro = "You are an expert agricultural advisor. Based on the following soil conditions, crop type, and weather conditions, provide a fertilizer recommendation.  Explain your reasoning and provide a confidence score (0-1) for your recommendation."

const irrigationIntro = "You are an expert in agricultural irrigation.  You will analyze the soil moisture, weather forecast, crop type, and last irrigation date to determine an optimal irrigation schedule. You MUST take into account weather forecast information to avoid watering when it's about to rain."

// FertilizerPrompt renders the fertilizer prompt. Optional fields that are
// absent are left out rather than defaulted.
func FertilizerPrompt(r FertilizerRequest) string {
	var b strings.Builder
	b.WriteString(fertilizerIntro)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Soil NPK Data: Nitrogen=%s, Phosphorus=%s, Potassium=%s\n",
		num(r.NPK.Nitrogen), num(r.NPK.Phosphorus), num(r.NPK.Potassium))
	fmt.Fprintf(&b, "Crop Type: %s\n", r.CropType)
	fmt.Fprintf(&b, "Soil pH: %s\n", num(r.SoilPH))
	if r.HistoricalYield != nil {
		fmt.Fprintf(&b, "Historical Yield: %s\n", num(*r.HistoricalYield))
	}
	if strings.TrimSpace(r.WeatherConditions) != "" {
		fmt.Fprintf(&b, "Weather Conditions: %s\n", r.WeatherConditions)
	}
	b.WriteString("\nRecommendation:")
	return b.String()
}

// IrrigationPrompt renders the irrigation prompt.
func IrrigationPrompt(r IrrigationRequest) string {
	last := timestamp(r.PreviousIrrigation)

	var b strings.Builder
	b.WriteString(irrigationIntro)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Soil Moisture: %s%%\n", num(r.SoilMoisturePercent))
	fmt.Fprintf(&b, "Weather Forecast: %s\n", r.WeatherForecast)
	fmt.Fprintf(&b, "Crop Type: %s\n", r.CropType)
	fmt.Fprintf(&b, "Last Irrigation: %s\n", last)
	b.WriteString("\nBased on this information, determine if irrigation is needed and for how long.  Return irrigationDurationMinutes of 0 if irrigation is not needed.\n")
	fmt.Fprintf(&b, "\nConsider that the last irrigation happened on %s, has the soil had enough time to dry to require more irrigation?  If the soil has recently been irrigated, there is a strong chance that irrigationDurationMinutes should be 0.\n", last)
	b.WriteString("\nReturn a reason for your recommendation.\n")
	return b.String()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// FertilizerSchema describes the reply expected for the fertilizer flow.
func FertilizerSchema() *llm.Schema {
	return &llm.Schema{
		Type: llm.TypeObject,
		Properties: map[string]*llm.Schema{
			"recommendation": {
				Type:        llm.TypeString,
				Description: "A fertilizer recommendation based on the NPK data, crop type, and other relevant factors.",
			},
			"explanation": {
				Type:        llm.TypeString,
				Description: "A detailed explanation of why the recommendation was made, including which factors were most important.",
			},
			"confidenceScore": {
				Type:        llm.TypeNumber,
				Description: "A score (0-1) indicating the confidence level in the recommendation.",
			},
		},
		Required: []string{"recommendation", "explanation", "confidenceScore"},
	}
}

// IrrigationSchema describes the reply expected for the irrigation flow.
func IrrigationSchema() *llm.Schema {
	return &llm.Schema{
		Type: llm.TypeObject,
		Properties: map[string]*llm.Schema{
			"irrigationNeeded": {
				Type:        llm.TypeBoolean,
				Description: "Whether irrigation is needed.",
			},
			"irrigationDurationMinutes": {
				Type:        llm.TypeNumber,
				Description: "Recommended irrigation duration in minutes.  If irrigation is not needed, this should be 0.",
			},
			"reason": {
				Type:        llm.TypeString,
				Description: "The reason for the irrigation recommendation.",
			},
		},
		Required: []string{"irrigationNeeded", "irrigationDurationMinutes", "reason"},
	}
}
