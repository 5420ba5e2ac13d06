package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/fireside/backend/internal/auth"
)

// Handler owns the websocket endpoint: handshake, auth, and the per
// connection read loop.
type Handler struct {
	verifier auth.Verifier
	reg      *Registry
	rooms    *Rooms
	streamer *Streamer
	upgrader websocket.Upgrader
}

func NewHandler(verifier auth.Verifier, reg *Registry, rooms *Rooms, streamer *Streamer) *Handler {
	return &Handler{
		verifier: verifier,
		reg:      reg,
		rooms:    rooms,
		streamer: streamer,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the websocket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

// Stats reports live connection and room counts.
func (h *Handler) Stats() map[string]int {
	return map[string]int{
		"connections": h.reg.Count(),
		"rooms":       h.rooms.Count(),
	}
}

// handleWebSocket upgrades the connection, verifies the token from the
// query string, then runs the read loop until the peer goes away. Auth
// failures are reported over the freshly opened socket so the client can
// read a structured error before the close.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}

	claims, err := h.verifier.Verify(token)
	if err != nil {
		_ = conn.WriteJSON(NewEnvelope(KindError, ErrorPayload{
			Code:    CodeUnauthorized,
			Message: "authentication required",
		}))
		_ = conn.Close()
		return
	}

	connID := h.reg.Register(conn, claims.UserID, claims.TenantID)
	defer func() {
		h.reg.Unregister(connID)
		_ = conn.Close()
	}()

	h.reg.Send(connID, NewEnvelope(KindConnected, ConnectedPayload{
		UserID:   claims.UserID,
		TenantID: claims.TenantID,
	}))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("[ws] read error on %s: %v", connID, err)
			}
			return
		}
		h.handleFrame(r.Context(), connID, data)
	}
}

// handleFrame dispatches one inbound envelope. Malformed frames and unknown
// kinds are logged and dropped, they never terminate the connection.
func (h *Handler) handleFrame(ctx context.Context, connID string, data []byte) {
	var env inboundEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Printf("[ws] malformed frame from %s: %v", connID, err)
		return
	}

	switch env.Type {
	case KindUserMessage:
		var p UserMessagePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			log.Printf("[ws] bad user_message payload from %s: %v", connID, err)
			return
		}
		h.handleUserMessage(ctx, connID, p)
	case KindJoinChat:
		var p ChatControlPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.ChatID == "" {
			log.Printf("[ws] bad join_chat payload from %s", connID)
			return
		}
		h.rooms.Join(connID, p.ChatID)
	case KindLeaveChat:
		h.rooms.Leave(connID)
	case KindTypingStart, KindTypingStop:
		h.handleTyping(connID)
	case KindPing:
		h.reg.Touch(connID)
		h.reg.Send(connID, NewEnvelope(KindPong, nil))
	default:
		log.Printf("[ws] unknown envelope type %q from %s", env.Type, connID)
	}
}

// handleUserMessage runs the full turn on the read-loop goroutine. A failed
// turn is reported to the originating connection only.
func (h *Handler) handleUserMessage(ctx context.Context, connID string, p UserMessagePayload) {
	if err := h.streamer.Run(ctx, p); err != nil {
		log.Printf("[ws] turn failed for %s on chat %s: %v", connID, p.ChatID, err)
		h.reg.Send(connID, NewEnvelope(KindError, ErrorPayload{
			Code:    CodeMessageError,
			Message: "failed to process message",
		}))
	}
}

// handleTyping relays typing activity to the rest of the sender's room.
func (h *Handler) handleTyping(connID string) {
	info, ok := h.reg.Get(connID)
	if !ok || info.RoomID == "" {
		return
	}
	h.rooms.Broadcast(info.RoomID, NewEnvelope(KindUserTyping, TypingPayload{
		ChatID: info.RoomID,
		UserID: info.UserID,
	}), connID)
}
