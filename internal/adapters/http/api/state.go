// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/okian/herobans/pkg/logger"
	"github.com/okian/herobans/pkg/metrics"
)

// StateHandler serves and replaces the shared record.
type StateHandler struct {
	deps         StateDependencies
	maxBodyBytes int64
	logger       logger.Logger
}

// NewStateHandler creates a new state handler.
func NewStateHandler(deps StateDependencies, maxBodyBytes int64, l logger.Logger) *StateHandler {
	return &StateHandler{deps: deps, maxBodyBytes: maxBodyBytes, logger: l}
}

// HandleState handles GET and POST /api/state.
func (h *StateHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	const op = "api.state"
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		writeJSON(w, http.StatusOK, h.deps.GetState(r.Context()))
	case http.MethodPost:
		payload, err := readPayload(w, r, h.maxBodyBytes)
		if err != nil {
			metrics.RecordStateRejected()
			h.logger.Debug(r.Context(), "state write rejected", logger.Error(WrapOp(op, err)))
			writePayloadError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, h.deps.SetState(r.Context(), payload))
	default:
		methodNotAllowed(w, "GET, POST, OPTIONS")
	}
}

// readPayload decodes a POST body into a JSON object. An empty body counts
// as {}. Anything else that is not exactly one JSON object is rejected.
func readPayload(w http.ResponseWriter, r *http.Request, limit int64) (map[string]any, error) {
	const op = "api.read_payload"
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, WrapKind(op, ErrBodyTooLarge, err)
		}
		return nil, WrapKind(op, ErrBadRequest, err)
	}
	if len(data) == 0 {
		return map[string]any{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, WrapKind(op, ErrInvalidJSON, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, WrapKind(op, ErrInvalidJSON, errors.New("trailing data after JSON value"))
	}
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, WrapKind(op, ErrInvalidJSON, errors.New("body must be a JSON object"))
	}
	return obj, nil
}

func writePayloadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBodyTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", "Request body too large")
	case errors.Is(err, ErrInvalidJSON):
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON")
	default:
		writeError(w, http.StatusBadRequest, "bad_request", "")
	}
}
