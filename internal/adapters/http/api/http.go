// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/herobans/internal/adapters/assets"
	"github.com/okian/herobans/internal/domain/catalog"
	"github.com/okian/herobans/internal/domain/model"
	"github.com/okian/herobans/pkg/logger"
)

// Default request limits.
const (
	defaultMaxBodyBytes   = 1 << 20
	defaultMaxSuggestions = catalog.DefaultSuggestions
	maxSuggestionsLimit   = 100
)

// StateDependencies reads and writes the shared record.
type StateDependencies interface {
	GetState(ctx context.Context) model.State
	SetState(ctx context.Context, payload any) model.State
	Subscribe(buffer int) (<-chan model.State, func())
}

// AssetDependencies exposes fonts and hero suggestions.
type AssetDependencies interface {
	Fonts(ctx context.Context) ([]assets.Font, error)
	SuggestHeroes(term string, limit int) []catalog.Hero
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	StateDependencies
	AssetDependencies
}

// Server wires HTTP routes for the bridge API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	stateHandler  *StateHandler
	fontsHandler  *FontsHandler
	heroesHandler *HeroesHandler
	liveHandler   *LiveHandler
	legacyHandler *LegacyHandler
}

type serverOptions struct {
	maxBodyBytes   int64
	maxSuggestions int
	logger         logger.Logger
}

// ServerOption configures NewServer.
type ServerOption func(*serverOptions)

// WithMaxBodyBytes caps POST bodies.
func WithMaxBodyBytes(n int64) ServerOption {
	return func(o *serverOptions) {
		if n > 0 {
			o.maxBodyBytes = n
		}
	}
}

// WithMaxSuggestions sets the default autocomplete size.
func WithMaxSuggestions(n int) ServerOption {
	return func(o *serverOptions) {
		if n > 0 {
			o.maxSuggestions = n
		}
	}
}

// WithLogger sets the logger used by handlers.
func WithLogger(l logger.Logger) ServerOption {
	return func(o *serverOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	o := serverOptions{
		maxBodyBytes:   defaultMaxBodyBytes,
		maxSuggestions: defaultMaxSuggestions,
		logger:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		stateHandler:  NewStateHandler(deps, o.maxBodyBytes, o.logger),
		fontsHandler:  NewFontsHandler(deps, o.logger),
		heroesHandler: NewHeroesHandler(deps, o.maxSuggestions),
		liveHandler:   NewLiveHandler(deps, o.logger),
		legacyHandler: NewLegacyHandler(deps, o.maxBodyBytes),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/api/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/state", MetricsMiddleware(s.stateHandler.HandleState, "state"))
	mux.HandleFunc("/api/state/ws", MetricsMiddleware(s.liveHandler.HandleLive, "live"))
	mux.HandleFunc("/api/fonts", MetricsMiddleware(s.fontsHandler.HandleFonts, "fonts"))
	mux.HandleFunc("/api/heroes", MetricsMiddleware(s.heroesHandler.HandleHeroes, "heroes"))
	mux.HandleFunc("/state", MetricsMiddleware(s.legacyHandler.HandleState, "legacy_state"))
	mux.HandleFunc("/state/", MetricsMiddleware(s.legacyHandler.HandleState, "legacy_state"))
	mux.HandleFunc("/api/", MetricsMiddleware(HandleNotFound, "not_found"))
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// HandleNotFound answers unknown API routes with a JSON 404.
func HandleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "not_found", "Not found")
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
}
