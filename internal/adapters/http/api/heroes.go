// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strconv"

	"github.com/okian/herobans/internal/domain/catalog"
)

type heroesResponse struct {
	Heroes []catalog.Hero `json:"heroes"`
}

// HeroesHandler exposes hero autocomplete to browser control pages.
type HeroesHandler struct {
	deps         AssetDependencies
	defaultLimit int
}

// NewHeroesHandler creates a new heroes handler.
func NewHeroesHandler(deps AssetDependencies, defaultLimit int) *HeroesHandler {
	return &HeroesHandler{deps: deps, defaultLimit: defaultLimit}
}

// HandleHeroes handles GET /api/heroes?q=rein&limit=12.
func (h *HeroesHandler) HandleHeroes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, "GET, OPTIONS")
		return
	}
	q := r.URL.Query()
	limit := h.defaultLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", "limit must be a positive integer")
			return
		}
		limit = min(n, maxSuggestionsLimit)
	}
	heroes := h.deps.SuggestHeroes(q.Get("q"), limit)
	if heroes == nil {
		heroes = []catalog.Hero{}
	}
	writeJSON(w, http.StatusOK, heroesResponse{Heroes: heroes})
}
