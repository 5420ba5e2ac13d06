package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/fireside/backend/internal/auth"
	"github.com/zhouzirui/fireside/backend/internal/model/character"
	chatservice "github.com/zhouzirui/fireside/backend/internal/service/chat"
)

type wireEnvelope struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

type handlerFixture struct {
	server *httptest.Server
	tokens *auth.TokenService
	chats  *chatservice.Service
}

func newHandlerFixture(t *testing.T, frames []streamFrame) *handlerFixture {
	t.Helper()

	tokens := auth.NewTokenService("test-secret", time.Minute)
	reg := NewRegistry()
	rooms := NewRooms(reg)
	chats := chatservice.NewService()
	streamer := NewStreamer(chats, character.NewMemoryStore(character.Seed()), &fakeProvider{frames: frames}, nil, rooms, StreamerConfig{})
	handler := NewHandler(tokens, reg, rooms, streamer)

	r := chi.NewRouter()
	r.Route("/api", func(api chi.Router) {
		handler.RegisterRoutes(api)
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return &handlerFixture{server: server, tokens: tokens, chats: chats}
}

func (fx *handlerFixture) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(fx.server.URL, "http") + "/api/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial err: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) wireEnvelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env wireEnvelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read envelope: %v", err)
	}
	return env
}

func sendEnvelope(t *testing.T, conn *websocket.Conn, kind string, data any) {
	t.Helper()
	if err := conn.WriteJSON(NewEnvelope(kind, data)); err != nil {
		t.Fatalf("write envelope: %v", err)
	}
}

func TestHandlerHandshake(t *testing.T) {
	fx := newHandlerFixture(t, nil)
	token, err := fx.tokens.Issue("user-1", "tenant-1")
	if err != nil {
		t.Fatalf("Issue err: %v", err)
	}

	conn := fx.dial(t, token)
	env := readEnvelope(t, conn)
	if env.Type != KindConnected {
		t.Fatalf("expected connected, got %s", env.Type)
	}
	if env.Timestamp == "" {
		t.Fatal("expected envelope timestamp")
	}

	var payload ConnectedPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.UserID != "user-1" || payload.TenantID != "tenant-1" {
		t.Fatalf("unexpected identity: %+v", payload)
	}
}

func TestHandlerRejectsBadToken(t *testing.T) {
	fx := newHandlerFixture(t, nil)

	conn := fx.dial(t, "not-a-token")
	env := readEnvelope(t, conn)
	if env.Type != KindError {
		t.Fatalf("expected error envelope, got %s", env.Type)
	}

	var payload ErrorPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Code != CodeUnauthorized {
		t.Fatalf("expected %s, got %s", CodeUnauthorized, payload.Code)
	}

	// The server closes right after the error envelope.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected connection to be closed")
	}
}

func TestHandlerPingPong(t *testing.T) {
	fx := newHandlerFixture(t, nil)
	token, _ := fx.tokens.Issue("user-1", "tenant-1")

	conn := fx.dial(t, token)
	readEnvelope(t, conn) // connected

	sendEnvelope(t, conn, KindPing, nil)
	env := readEnvelope(t, conn)
	if env.Type != KindPong {
		t.Fatalf("expected pong, got %s", env.Type)
	}
}

func TestHandlerMalformedFramesAreDropped(t *testing.T) {
	fx := newHandlerFixture(t, nil)
	token, _ := fx.tokens.Issue("user-1", "tenant-1")

	conn := fx.dial(t, token)
	readEnvelope(t, conn) // connected

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write err: %v", err)
	}
	sendEnvelope(t, conn, "no_such_kind", nil)

	// The connection survives both and keeps answering pings.
	sendEnvelope(t, conn, KindPing, nil)
	env := readEnvelope(t, conn)
	if env.Type != KindPong {
		t.Fatalf("expected pong, got %s", env.Type)
	}
}

func TestHandlerTurnReachesEveryRoomMember(t *testing.T) {
	fx := newHandlerFixture(t, []streamFrame{{content: "Hel"}, {content: "lo"}})
	created, err := fx.chats.CreateChat(context.Background(), "ember-keeper", "user-1", "tenant-1", "")
	if err != nil {
		t.Fatalf("CreateChat err: %v", err)
	}

	tokenA, _ := fx.tokens.Issue("user-1", "tenant-1")
	tokenB, _ := fx.tokens.Issue("user-2", "tenant-1")
	sender := fx.dial(t, tokenA)
	peer := fx.dial(t, tokenB)
	readEnvelope(t, sender) // connected
	readEnvelope(t, peer)   // connected

	sendEnvelope(t, sender, KindJoinChat, ChatControlPayload{ChatID: created.ID})
	sendEnvelope(t, peer, KindJoinChat, ChatControlPayload{ChatID: created.ID})

	// Joins are processed in frame order, a ping round-trip proves both
	// connections are in the room before the turn starts.
	sendEnvelope(t, sender, KindPing, nil)
	readEnvelope(t, sender)
	sendEnvelope(t, peer, KindPing, nil)
	readEnvelope(t, peer)

	sendEnvelope(t, sender, KindUserMessage, UserMessagePayload{ChatID: created.ID, Content: "hello"})

	for name, conn := range map[string]*websocket.Conn{"sender": sender, "peer": peer} {
		want := []string{KindUserMessage, KindAssistantChunk, KindAssistantChunk, KindAssistantDone}
		for _, kind := range want {
			env := readEnvelope(t, conn)
			if env.Type != kind {
				t.Fatalf("%s: expected %s, got %s", name, kind, env.Type)
			}
		}
	}
}

func TestHandlerTypingRelayExcludesSender(t *testing.T) {
	fx := newHandlerFixture(t, nil)
	created, err := fx.chats.CreateChat(context.Background(), "", "user-1", "tenant-1", "")
	if err != nil {
		t.Fatalf("CreateChat err: %v", err)
	}

	tokenA, _ := fx.tokens.Issue("user-1", "tenant-1")
	tokenB, _ := fx.tokens.Issue("user-2", "tenant-1")
	sender := fx.dial(t, tokenA)
	peer := fx.dial(t, tokenB)
	readEnvelope(t, sender)
	readEnvelope(t, peer)

	sendEnvelope(t, sender, KindJoinChat, ChatControlPayload{ChatID: created.ID})
	sendEnvelope(t, peer, KindJoinChat, ChatControlPayload{ChatID: created.ID})
	sendEnvelope(t, sender, KindPing, nil)
	readEnvelope(t, sender)
	sendEnvelope(t, peer, KindPing, nil)
	readEnvelope(t, peer)

	sendEnvelope(t, sender, KindTypingStart, ChatControlPayload{ChatID: created.ID})

	env := readEnvelope(t, peer)
	if env.Type != KindUserTyping {
		t.Fatalf("expected user_typing, got %s", env.Type)
	}
	var payload TypingPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.UserID != "user-1" || payload.ChatID != created.ID {
		t.Fatalf("unexpected typing payload: %+v", payload)
	}

	// The sender sees nothing but the pong for the follow-up ping.
	sendEnvelope(t, sender, KindPing, nil)
	if env := readEnvelope(t, sender); env.Type != KindPong {
		t.Fatalf("expected pong, got %s", env.Type)
	}
}

func TestHandlerTurnFailureGoesToOriginOnly(t *testing.T) {
	fx := newHandlerFixture(t, nil)
	// No chat exists, the turn fails before streaming.
	token, _ := fx.tokens.Issue("user-1", "tenant-1")
	conn := fx.dial(t, token)
	readEnvelope(t, conn)

	sendEnvelope(t, conn, KindUserMessage, UserMessagePayload{ChatID: "missing", Content: "hello"})

	env := readEnvelope(t, conn)
	if env.Type != KindError {
		t.Fatalf("expected error envelope, got %s", env.Type)
	}
	var payload ErrorPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Code != CodeMessageError {
		t.Fatalf("expected %s, got %s", CodeMessageError, payload.Code)
	}
}
