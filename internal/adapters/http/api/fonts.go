// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/okian/herobans/internal/adapters/assets"
	"github.com/okian/herobans/pkg/logger"
)

type fontsResponse struct {
	Fonts []assets.Font `json:"fonts"`
}

// FontsHandler lists selectable font files.
type FontsHandler struct {
	deps   AssetDependencies
	logger logger.Logger
}

// NewFontsHandler creates a new fonts handler.
func NewFontsHandler(deps AssetDependencies, l logger.Logger) *FontsHandler {
	return &FontsHandler{deps: deps, logger: l}
}

// HandleFonts handles GET /api/fonts.
func (h *FontsHandler) HandleFonts(w http.ResponseWriter, r *http.Request) {
	const op = "api.fonts"
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, "GET, OPTIONS")
		return
	}
	fonts, err := h.deps.Fonts(r.Context())
	if err != nil {
		h.logger.Error(r.Context(), "font listing failed", logger.Error(WrapKind(op, ErrAssets, err)))
		writeError(w, http.StatusInternalServerError, "internal", "")
		return
	}
	if fonts == nil {
		fonts = []assets.Font{}
	}
	writeJSON(w, http.StatusOK, fontsResponse{Fonts: fonts})
}
