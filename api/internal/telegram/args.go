package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"agrimind/api/internal/advisory"
)

var (
	fertilizerAliases = map[string]string{"nitrogen": "n", "phosphorus": "p", "potassium": "k"}
	irrigationAliases = map[string]string{"weather": "forecast"}
)

// parseArgs splits "key=value; key=value" (or one pair per line) into a map
// with lower-cased keys, each alias replaced by its canonical key. Values keep
// their inner spaces.
func parseArgs(s string, aliases map[string]string) (map[string]string, error) {
	out := map[string]string{}
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == '\n' }) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("expected key=value, got %q", part)
		}
		k = strings.ToLower(strings.TrimSpace(k))
		if c, ok := aliases[k]; ok {
			k = c
		}
		if _, dup := out[k]; dup {
			return nil, fmt.Errorf("%s given twice", k)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

func parseNumber(key, v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSuffix(v, "%"), 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", key, v)
	}
	return f, nil
}

// fertilizerFromArgs starts from the form defaults and overrides the keys given.
func fertilizerFromArgs(s string) (advisory.FertilizerRequest, error) {
	req := advisory.DefaultFertilizerRequest()
	args, err := parseArgs(s, fertilizerAliases)
	if err != nil {
		return req, err
	}
	for k, v := range args {
		var f float64
		switch k {
		case "n", "p", "k", "ph", "yield":
			if f, err = parseNumber(k, v); err != nil {
				return req, err
			}
		}
		switch k {
		case "n":
			req.NPK.Nitrogen = f
		case "p":
			req.NPK.Phosphorus = f
		case "k":
			req.NPK.Potassium = f
		case "ph":
			req.SoilPH = f
		case "yield":
			req.HistoricalYield = &f
		case "crop":
			req.CropType = v
		case "weather":
			req.WeatherConditions = v
		default:
			return req, fmt.Errorf("unknown key %q", k)
		}
	}
	return req, nil
}

// irrigationFromArgs accepts last= in any form advisory.ParseWhen reads.
func irrigationFromArgs(s string, now time.Time) (advisory.IrrigationRequest, error) {
	req := advisory.DefaultIrrigationRequest(now)
	args, err := parseArgs(s, irrigationAliases)
	if err != nil {
		return req, err
	}
	for k, v := range args {
		switch k {
		case "moisture":
			if req.SoilMoisturePercent, err = parseNumber(k, v); err != nil {
				return req, err
			}
		case "forecast":
			req.WeatherForecast = v
		case "crop":
			req.CropType = v
		case "last":
			if req.PreviousIrrigation, err = parseLast(v, now); err != nil {
				return req, err
			}
		default:
			return req, fmt.Errorf("unknown key %q", k)
		}
	}
	return req, nil
}

func parseLast(v string, now time.Time) (time.Time, error) {
	t, err := advisory.ParseWhen(v, now)
	if err != nil {
		return t, fmt.Errorf("last: %w", err)
	}
	return t, nil
}
