package ws

import (
	"encoding/json"
	"time"
)

// Envelope kinds, client to server.
const (
	KindUserMessage = "user_message"
	KindJoinChat    = "join_chat"
	KindLeaveChat   = "leave_chat"
	KindTypingStart = "typing_start"
	KindTypingStop  = "typing_stop"
	KindPing        = "ping"
)

// Envelope kinds, server to client. KindUserMessage is echoed back with the
// assigned message id.
const (
	KindConnected      = "connected"
	KindAssistantChunk = "assistant_message_chunk"
	KindAssistantDone  = "assistant_message_done"
	KindUserTyping     = "user_typing"
	KindError          = "error"
	KindPong           = "pong"
)

// Error codes carried by error envelopes.
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeMessageError = "MESSAGE_ERROR"
)

// Envelope is the typed wire message exchanged over the socket.
type Envelope struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// inboundEnvelope defers payload decoding until the kind is known.
type inboundEnvelope struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEnvelope stamps an outbound envelope with the current time.
func NewEnvelope(kind string, data any) Envelope {
	return Envelope{
		Type:      kind,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	}
}

// UserMessagePayload carries a user-authored message. MessageID is empty on
// the inbound frame and holds the assigned id on the broadcast echo.
type UserMessagePayload struct {
	ChatID    string `json:"chatId"`
	Content   string `json:"content"`
	MessageID string `json:"messageId,omitempty"`
}

// ChatControlPayload carries join_chat and leave_chat.
type ChatControlPayload struct {
	ChatID string `json:"chatId"`
}

// TypingPayload carries typing notifications.
type TypingPayload struct {
	ChatID string `json:"chatId"`
	UserID string `json:"userId,omitempty"`
}

// ConnectedPayload confirms a successful handshake.
type ConnectedPayload struct {
	UserID   string `json:"userId"`
	TenantID string `json:"tenantId"`
}

// AssistantChunkPayload is one streamed piece of an assistant reply. Index
// starts at zero and is gap-free within a turn.
type AssistantChunkPayload struct {
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
	Chunk     string `json:"chunk"`
	Index     int    `json:"index"`
}

// AssistantDonePayload closes a streamed assistant reply with its persisted id.
type AssistantDonePayload struct {
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
}

// ErrorPayload reports a failure to a single connection.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
