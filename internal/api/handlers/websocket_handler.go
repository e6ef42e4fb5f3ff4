package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/isdelr/sheetcharts-be/internal/auth"
	ws "github.com/isdelr/sheetcharts-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler upgrades admin connections onto the activity feed.
type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler. allowedOrigins lists
// the browser origins permitted to connect; empty allows any.
func NewWebSocketHandler(hub *ws.Hub, allowedOrigins []string) *WebSocketHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowed) == 0 || allowed[origin]
			},
		},
	}
}

// Serve handles the WebSocket connection request. The route sits behind the
// auth and admin middleware.
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeMsg(w, http.StatusUnauthorized, "No token, authorization denied")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}

	client := ws.NewClient(h.hub, conn, claims.UserID)
	if !h.hub.Join(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go func() {
		client.ReadPump(h.handleIncoming)
		h.hub.Leave(client)
	}()
}

// handleIncoming drops client messages; the feed is one-way. Replies are
// not sent here because the hub owns the Send channel.
func (h *WebSocketHandler) handleIncoming(client *ws.Client, message []byte) {
	log.Debug().Str("user_id", client.UserID).Int("bytes", len(message)).Msg("Ignoring websocket message from client")
}
