package advisory

import (
	"fmt"
	"math"
	"strings"
)

// FieldError names one violated constraint.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e FieldError) Error() string { return e.Field + ": " + e.Reason }

// ValidationErrors collects every violated constraint of one value.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, fe := range v {
		parts[i] = fe.Error()
	}
	return strings.Join(parts, "; ")
}

type checker struct {
	errs ValidationErrors
}

func (c *checker) add(field, format string, args ...any) {
	c.errs = append(c.errs, FieldError{Field: field, Reason: fmt.Sprintf(format, args...)})
}

func (c *checker) nonEmpty(field, v string) {
	if strings.TrimSpace(v) == "" {
		c.add(field, "is required")
	}
}

func (c *checker) finite(field string, v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		c.add(field, "must be a finite number")
		return false
	}
	return true
}

func (c *checker) nonNegative(field string, v float64) {
	if c.finite(field, v) && v < 0 {
		c.add(field, "must be >= 0, got %g", v)
	}
}

func (c *checker) between(field string, v, lo, hi float64) {
	if c.finite(field, v) && (v < lo || v > hi) {
		c.add(field, "must be between %g and %g, got %g", lo, hi, v)
	}
}

func (c *checker) result() error {
	if len(c.errs) == 0 {
		return nil
	}
	return c.errs
}

func (r FertilizerRequest) Validate() error {
	var c checker
	c.nonNegative("npk.nitrogen", r.NPK.Nitrogen)
	c.nonNegative("npk.phosphorus", r.NPK.Phosphorus)
	c.nonNegative("npk.potassium", r.NPK.Potassium)
	c.nonEmpty("cropType", r.CropType)
	c.between("soilPh", r.SoilPH, 0, 14)
	if r.HistoricalYield != nil {
		c.finite("historicalYield", *r.HistoricalYield)
	}
	return c.result()
}

func (r IrrigationRequest) Validate() error {
	var c checker
	c.between("soilMoisturePercent", r.SoilMoisturePercent, 0, 100)
	c.nonEmpty("weatherForecast", r.WeatherForecast)
	c.nonEmpty("cropType", r.CropType)
	if r.PreviousIrrigation.IsZero() {
		c.add("previousIrrigationTimestamp", "is required")
	}
	return c.result()
}

func (r FertilizerResponse) Validate() error {
	var c checker
	c.nonEmpty("recommendation", r.Recommendation)
	c.nonEmpty("explanation", r.Explanation)
	c.between("confidenceScore", r.ConfidenceScore, 0, 1)
	return c.result()
}

func (r IrrigationResponse) Validate() error {
	var c checker
	c.nonNegative("irrigationDurationMinutes", r.IrrigationDurationMinutes)
	if !r.IrrigationNeeded && r.IrrigationDurationMinutes != 0 {
		c.add("irrigationDurationMinutes", "must be 0 when irrigation is not needed, got %g", r.IrrigationDurationMinutes)
	}
	c.nonEmpty("reason", r.Reason)
	return c.result()
}
