package handler

import (
	"net/http"

	"shopfront/internal/auth"
	"shopfront/internal/model"
	"shopfront/internal/notify"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WSHandler upgrades authenticated requests into notification
// subscriptions. The subscription identity comes from the verified
// request identity, never from anything the client sends over the
// socket.
type WSHandler struct {
	hub      *notify.Hub
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewWSHandler creates a new websocket handler.
func NewWSHandler(hub *notify.Hub, logger zerolog.Logger) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger.With().Str("handler", "ws").Logger(),
	}
}

// Subscribe handles GET /ws.
func (h *WSHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, "authentication required", h.logger)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("user_id", identity.UserID).Msg("websocket upgrade failed")
		return
	}

	h.hub.Serve(conn, identity.UserID, identity.Admin())
}
