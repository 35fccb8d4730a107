package handle

import (
	"encoding/json"
	"io"
	"net/http"
)

func (h *Handle) Dashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	writeJSON(w, http.StatusOK, h.pump.Overview())
}

type pumpRequest struct {
	On *bool `json:"on"`
}

// Pump reads the switch on GET and flips it on POST {"on": bool}.
func (h *Handle) Pump(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.pump.State())
	case http.MethodPost:
		defer r.Body.Close()
		var req pumpRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
			return
		}
		if req.On == nil {
			writeError(w, http.StatusBadRequest, `"on" is required`)
			return
		}
		writeJSON(w, http.StatusOK, h.pump.Set(*req.On))
	default:
		writeError(w, http.StatusMethodNotAllowed, "GET or POST only")
	}
}
