// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/okian/herobans/pkg/logger"
)

const (
	liveBuffer       = 8
	liveWriteTimeout = 3 * time.Second
)

// LiveHandler pushes the shared record to overlays over a websocket: once
// on connect and again after every write.
type LiveHandler struct {
	deps   StateDependencies
	logger logger.Logger
}

// NewLiveHandler creates a new live feed handler.
func NewLiveHandler(deps StateDependencies, l logger.Logger) *LiveHandler {
	return &LiveHandler{deps: deps, logger: l}
}

// HandleLive handles GET /api/state/ws.
func (h *LiveHandler) HandleLive(w http.ResponseWriter, r *http.Request) {
	const op = "api.live"
	// Server read/write timeouts would otherwise cut long-lived feeds.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Overlays run in OBS browser sources on any origin, same as the CORS policy.
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Debug(r.Context(), "live upgrade failed", logger.Error(WrapKind(op, ErrUpgrade, err)))
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	updates, cancel := h.deps.Subscribe(liveBuffer)
	defer cancel()

	// Inbound messages are ignored; CloseRead ends ctx when the peer goes away.
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-updates:
			if !ok {
				conn.Close(websocket.StatusTryAgainLater, "subscriber dropped")
				return
			}
			payload, err := json.Marshal(st)
			if err != nil {
				h.logger.Error(ctx, "live encode failed", logger.Error(WrapOp(op, err)))
				return
			}
			if err := write(ctx, conn, payload); err != nil {
				h.logger.Debug(ctx, "live write failed", logger.Error(WrapOp(op, err)))
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, liveWriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}
