package handle

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"agrimind/api/internal/advisory"
	"agrimind/api/internal/dashboard"
	"agrimind/api/internal/llm"
)

const maxBody = 1 << 20

type Handle struct {
	engs    *llm.Engines
	pump    *dashboard.Pump
	log     *zap.Logger
	invOpts []advisory.Option
	// deadline bounds a whole request; the invoker's own timeout sits inside it.
	deadline time.Duration
	now      func() time.Time
}

func New(engs *llm.Engines, pump *dashboard.Pump, log *zap.Logger, opts ...advisory.Option) *Handle {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handle{
		engs:     engs,
		pump:     pump,
		log:      log,
		invOpts:  append([]advisory.Option{advisory.WithLogger(log)}, opts...),
		deadline: 70 * time.Second,
		now:      time.Now,
	}
}

// Register mounts every API route on mux.
func (h *Handle) Register(mux *http.ServeMux) {
	mux.HandleFunc("/v1/advice/fertilizer", h.Fertilizer)
	mux.HandleFunc("/v1/advice/irrigation", h.Irrigation)
	mux.HandleFunc("/v1/advice/defaults", h.Defaults)
	mux.HandleFunc("/v1/dashboard", h.Dashboard)
	mux.HandleFunc("/v1/pump", h.Pump)
}

type errorBody struct {
	Error  string                `json:"error"`
	Fields []advisory.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Error: msg})
}
