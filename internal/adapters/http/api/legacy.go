// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strings"
)

// LegacyHandler keeps the /state endpoint of the first bridge version alive
// for overlays that still poll it.
type LegacyHandler struct {
	deps         StateDependencies
	maxBodyBytes int64
}

// NewLegacyHandler creates a new legacy state handler.
func NewLegacyHandler(deps StateDependencies, maxBodyBytes int64) *LegacyHandler {
	return &LegacyHandler{deps: deps, maxBodyBytes: maxBodyBytes}
}

// HandleState handles GET and POST /state. A successful POST answers 204.
func (h *LegacyHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	if strings.TrimRight(r.URL.Path, "/") != "/state" {
		HandleNotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		writeJSON(w, http.StatusOK, h.deps.GetState(r.Context()))
	case http.MethodPost:
		payload, err := readPayload(w, r, h.maxBodyBytes)
		if err != nil {
			writePayloadError(w, err)
			return
		}
		h.deps.SetState(r.Context(), payload)
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, "GET, POST, OPTIONS")
	}
}
