package handle

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"agrimind/api/internal/advisory"
)

// Request bodies use pointers so that a missing or null property is told
// apart from a zero reading.
type FertilizerRequest struct {
	LLMName           string   `json:"llm_name"`
	NPK               *NPK     `json:"npk"`
	CropType          string   `json:"cropType"`
	SoilPH            *float64 `json:"soilPh"`
	HistoricalYield   *float64 `json:"historicalYield"`
	WeatherConditions string   `json:"weatherConditions"`
}

type NPK struct {
	Nitrogen   *float64 `json:"nitrogen"`
	Phosphorus *float64 `json:"phosphorus"`
	Potassium  *float64 `json:"potassium"`
}

type IrrigationRequest struct {
	LLMName             string     `json:"llm_name"`
	SoilMoisturePercent *float64   `json:"soilMoisturePercent"`
	WeatherForecast     string     `json:"weatherForecast"`
	CropType            string     `json:"cropType"`
	PreviousIrrigation  *time.Time `json:"previousIrrigationTimestamp"`
}

type adviceBody interface {
	engine() string
	missing() advisory.ValidationErrors
}

func (b *FertilizerRequest) engine() string { return b.LLMName }

func (b *FertilizerRequest) missing() advisory.ValidationErrors {
	var m advisory.ValidationErrors
	if b.NPK == nil {
		m = append(m, advisory.FieldError{Field: "npk", Reason: "is required"})
	} else {
		m = required(m, "npk.nitrogen", b.NPK.Nitrogen)
		m = required(m, "npk.phosphorus", b.NPK.Phosphorus)
		m = required(m, "npk.potassium", b.NPK.Potassium)
	}
	return required(m, "soilPh", b.SoilPH)
}

// toRequest converts a body whose missing() is empty.
func (b *FertilizerRequest) toRequest() advisory.FertilizerRequest {
	return advisory.FertilizerRequest{
		NPK: advisory.NPK{
			Nitrogen:   *b.NPK.Nitrogen,
			Phosphorus: *b.NPK.Phosphorus,
			Potassium:  *b.NPK.Potassium,
		},
		CropType:          b.CropType,
		SoilPH:            *b.SoilPH,
		HistoricalYield:   b.HistoricalYield,
		WeatherConditions: b.WeatherConditions,
	}
}

func (b *IrrigationRequest) engine() string { return b.LLMName }

func (b *IrrigationRequest) missing() advisory.ValidationErrors {
	m := required(nil, "soilMoisturePercent", b.SoilMoisturePercent)
	if b.PreviousIrrigation == nil {
		m = append(m, advisory.FieldError{Field: "previousIrrigationTimestamp", Reason: "is required"})
	}
	return m
}

func (b *IrrigationRequest) toRequest() advisory.IrrigationRequest {
	return advisory.IrrigationRequest{
		SoilMoisturePercent: *b.SoilMoisturePercent,
		WeatherForecast:     b.WeatherForecast,
		CropType:            b.CropType,
		PreviousIrrigation:  *b.PreviousIrrigation,
	}
}

func required(m advisory.ValidationErrors, field string, v *float64) advisory.ValidationErrors {
	if v == nil {
		m = append(m, advisory.FieldError{Field: field, Reason: "is required"})
	}
	return m
}

func (h *Handle) Fertilizer(w http.ResponseWriter, r *http.Request) {
	var req FertilizerRequest
	inv, ctx, cancel, ok := h.prepare(w, r, &req)
	if !ok {
		return
	}
	defer cancel()

	out, err := inv.Fertilizer(ctx, req.toRequest())
	if err != nil {
		h.fail(w, advisory.FlowFertilizer, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handle) Irrigation(w http.ResponseWriter, r *http.Request) {
	var req IrrigationRequest
	inv, ctx, cancel, ok := h.prepare(w, r, &req)
	if !ok {
		return
	}
	defer cancel()

	out, err := inv.Irrigation(ctx, req.toRequest())
	if err != nil {
		h.fail(w, advisory.FlowIrrigation, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// prepare decodes the body into dst, resolves the engine named in it, rejects
// bodies without the required readings and derives the request deadline.
// On false the response is already written.
func (h *Handle) prepare(w http.ResponseWriter, r *http.Request, dst adviceBody) (*advisory.Invoker, context.Context, context.CancelFunc, bool) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return nil, nil, nil, false
	}
	defer r.Body.Close()

	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
		return nil, nil, nil, false
	}

	engine, err := h.engs.Get(dst.engine())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, nil, nil, false
	}
	if missing := dst.missing(); len(missing) > 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request", Fields: missing})
		return nil, nil, nil, false
	}

	deadline := h.deadline
	if ts := r.Header.Get("X-Request-Timeout"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			deadline = time.Duration(v) * time.Second
		}
	}
	ctx, cancel := context.WithTimeout(r.Context(), deadline)
	return advisory.NewInvoker(engine, h.invOpts...), ctx, cancel, true
}

func (h *Handle) fail(w http.ResponseWriter, flow string, err error) {
	if errors.Is(err, advisory.ErrInvalidRequest) {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:  "invalid request",
			Fields: advisory.FieldErrors(err),
		})
		return
	}
	// provider details stay in the log
	h.log.Warn("advice failed", zap.String("flow", flow), zap.Error(err))
	writeError(w, http.StatusBadGateway, advisory.UserMessage(flow))
}

type defaultsResponse struct {
	Fertilizer advisory.FertilizerRequest `json:"fertilizer"`
	Irrigation advisory.IrrigationRequest `json:"irrigation"`
	Crops      []string                   `json:"crops"`
	Engines    []string                   `json:"engines"`
}

func (h *Handle) Defaults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	writeJSON(w, http.StatusOK, defaultsResponse{
		Fertilizer: advisory.DefaultFertilizerRequest(),
		Irrigation: advisory.DefaultIrrigationRequest(h.now()),
		Crops:      advisory.Crops,
		Engines:    h.engs.Names(),
	})
}
