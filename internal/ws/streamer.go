package ws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/zhouzirui/fireside/backend/internal/model/character"
	"github.com/zhouzirui/fireside/backend/internal/model/chat"
	"github.com/zhouzirui/fireside/backend/internal/service/ai"
	"github.com/zhouzirui/fireside/backend/internal/service/intelligence"
)

// ChatStore is the slice of the chat service the streamer needs.
type ChatStore interface {
	FindByID(ctx context.Context, chatID string) (chat.Chat, error)
	AddMessage(ctx context.Context, chatID, role, content string) (chat.Message, error)
	GetMessages(ctx context.Context, chatID string) ([]chat.Message, error)
	MessageCount(ctx context.Context, chatID string) (int, error)
}

// Provider produces streamed model completions.
type Provider interface {
	StreamCompletion(ctx context.Context, messages []*schema.Message) (*schema.StreamReader[*schema.Message], error)
}

// Intelligence is the post-turn analysis surface. Optional, a nil
// Intelligence skips emotion and memory work entirely.
type Intelligence interface {
	BuildEnhancedPrompt(ctx context.Context, ch character.Character, userID, chatID, userMessage string) (string, error)
	AnalyzeEmotion(ctx context.Context, characterID, userID, chatID, text string) (intelligence.EmotionState, error)
	ExtractMemories(ctx context.Context, messages []chat.Message) ([]intelligence.MemoryItem, error)
	StoreMemories(characterID, userID, chatID string, items []intelligence.MemoryItem)
}

// StreamerConfig tunes the turn pipeline.
type StreamerConfig struct {
	// HistoryLimit caps how many prior messages are replayed to the model.
	// Zero replays the full history.
	HistoryLimit int
	// MemoryExtractEvery fires memory extraction when the chat's message
	// count is a multiple of it.
	MemoryExtractEvery int
	// MemoryWindow is how many recent messages extraction reads.
	MemoryWindow int
}

func (c *StreamerConfig) setDefaults() {
	if c.MemoryExtractEvery <= 0 {
		c.MemoryExtractEvery = 5
	}
	if c.MemoryWindow <= 0 {
		c.MemoryWindow = 10
	}
}

// Streamer runs one assistant turn: persist the user message, stream the
// model reply chunk by chunk to the chat's room, persist the full reply,
// then hand the exchange to the intelligence service.
type Streamer struct {
	chats      ChatStore
	characters character.Store
	provider   Provider
	intel      Intelligence
	rooms      *Rooms
	cfg        StreamerConfig
}

func NewStreamer(chats ChatStore, characters character.Store, provider Provider, intel Intelligence, rooms *Rooms, cfg StreamerConfig) *Streamer {
	cfg.setDefaults()
	return &Streamer{
		chats:      chats,
		characters: characters,
		provider:   provider,
		intel:      intel,
		rooms:      rooms,
		cfg:        cfg,
	}
}

// Run executes a full turn for a user message. On error nothing from the
// turn is persisted beyond the user message that triggered it, and the
// caller reports the failure to the originating connection only.
func (s *Streamer) Run(ctx context.Context, p UserMessagePayload) error {
	if p.ChatID == "" {
		return errors.New("chatId is required")
	}
	if s.provider == nil {
		return errors.New("ai provider unavailable")
	}

	userMsg, err := s.chats.AddMessage(ctx, p.ChatID, chat.RoleUser, p.Content)
	if err != nil {
		return fmt.Errorf("persist user message: %w", err)
	}
	s.rooms.Broadcast(p.ChatID, NewEnvelope(KindUserMessage, UserMessagePayload{
		ChatID:    p.ChatID,
		Content:   userMsg.Content,
		MessageID: userMsg.ID,
	}), "")

	c, err := s.chats.FindByID(ctx, p.ChatID)
	if err != nil {
		return fmt.Errorf("load chat: %w", err)
	}

	messages, err := s.assembleMessages(ctx, c, p.Content)
	if err != nil {
		return err
	}

	stream, err := s.provider.StreamCompletion(ctx, messages)
	if err != nil {
		return fmt.Errorf("start completion: %w", err)
	}
	defer stream.Close()

	// The chunk id is allocated up front so every chunk of the turn shares
	// it, the done envelope carries the persisted id instead.
	streamID := uuid.New().String()
	var full strings.Builder
	index := 0
	for {
		msg, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return fmt.Errorf("stream completion: %w", recvErr)
		}
		if msg == nil || msg.Content == "" {
			continue
		}
		full.WriteString(msg.Content)
		s.rooms.Broadcast(p.ChatID, NewEnvelope(KindAssistantChunk, AssistantChunkPayload{
			ChatID:    p.ChatID,
			MessageID: streamID,
			Chunk:     msg.Content,
			Index:     index,
		}), "")
		index++
	}

	assistantMsg, err := s.chats.AddMessage(ctx, p.ChatID, chat.RoleAssistant, full.String())
	if err != nil {
		return fmt.Errorf("persist assistant message: %w", err)
	}
	s.rooms.Broadcast(p.ChatID, NewEnvelope(KindAssistantDone, AssistantDonePayload{
		ChatID:    p.ChatID,
		MessageID: assistantMsg.ID,
	}), "")

	s.runIntelligence(ctx, c, p.Content, full.String())
	return nil
}

// assembleMessages builds the model input: optional character system prompt,
// replayed history, then the new user message.
func (s *Streamer) assembleMessages(ctx context.Context, c chat.Chat, userText string) ([]*schema.Message, error) {
	var messages []*schema.Message

	if c.CharacterID != "" {
		ch, ok := s.characters.FindByID(c.CharacterID)
		if !ok {
			return nil, fmt.Errorf("character not found: %s", c.CharacterID)
		}
		system, err := s.systemPrompt(ctx, ch, c, userText)
		if err != nil {
			return nil, fmt.Errorf("build system prompt: %w", err)
		}
		messages = append(messages, schema.SystemMessage(system))
	}

	history, err := s.chats.GetMessages(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	// The user message was persisted above, drop it from the replayed
	// history so it appears exactly once.
	if n := len(history); n > 0 && history[n-1].Role == chat.RoleUser && history[n-1].Content == userText {
		history = history[:n-1]
	}
	messages = append(messages, ai.HistoryMessages(history, s.cfg.HistoryLimit)...)
	messages = append(messages, schema.UserMessage(userText))
	return messages, nil
}

func (s *Streamer) systemPrompt(ctx context.Context, ch character.Character, c chat.Chat, userText string) (string, error) {
	if s.intel != nil {
		return s.intel.BuildEnhancedPrompt(ctx, ch, c.UserID, c.ID, userText)
	}
	return character.BasePrompt(ch), nil
}

// runIntelligence performs post-turn analysis. Failures here are logged and
// never surface to the client, the turn already succeeded.
func (s *Streamer) runIntelligence(ctx context.Context, c chat.Chat, userText, assistantText string) {
	if s.intel == nil || c.CharacterID == "" {
		return
	}

	exchange := "user: " + userText + "\nassistant: " + assistantText
	if _, err := s.intel.AnalyzeEmotion(ctx, c.CharacterID, c.UserID, c.ID, exchange); err != nil {
		log.Printf("[ws] emotion analysis failed for chat %s: %v", c.ID, err)
	}

	count, err := s.chats.MessageCount(ctx, c.ID)
	if err != nil {
		log.Printf("[ws] message count failed for chat %s: %v", c.ID, err)
		return
	}
	if count%s.cfg.MemoryExtractEvery != 0 {
		return
	}

	recent, err := s.chats.GetMessages(ctx, c.ID)
	if err != nil {
		log.Printf("[ws] history load failed for chat %s: %v", c.ID, err)
		return
	}
	if len(recent) > s.cfg.MemoryWindow {
		recent = recent[len(recent)-s.cfg.MemoryWindow:]
	}

	items, err := s.intel.ExtractMemories(ctx, recent)
	if err != nil {
		log.Printf("[ws] memory extraction failed for chat %s: %v", c.ID, err)
		return
	}
	if len(items) > 0 {
		s.intel.StoreMemories(c.CharacterID, c.UserID, c.ID, items)
		log.Printf("[ws] stored %d memories for chat %s", len(items), c.ID)
	}
}
