package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zhouzirui/fireside/backend/internal/model/chat"
)

var (
	ErrUserRequired = errors.New("user id is required")
	ErrChatNotFound = errors.New("chat not found")
	ErrEmptyMessage = errors.New("message content is empty")
)

// MessageLog is an optional durable sink for persisted messages. When
// configured, a failed append fails the write: callers rely on a stored
// message actually being stored.
type MessageLog interface {
	Append(msg chat.Message) error
}

// Service owns conversation state: chats and their message history.
type Service struct {
	mu       sync.RWMutex
	chats    map[string]chat.Chat
	messages map[string][]chat.Message
	log      MessageLog
}

// NewService bootstraps the in-memory chat service.
func NewService() *Service {
	return &Service{
		chats:    make(map[string]chat.Chat),
		messages: make(map[string][]chat.Message),
	}
}

// WithMessageLog attaches a durable message log. Messages already held in
// memory are not replayed into it.
func (s *Service) WithMessageLog(log MessageLog) *Service {
	s.log = log
	return s
}

// CreateChat provisions a chat owned by userID/tenantID, optionally bound to
// a character.
func (s *Service) CreateChat(_ context.Context, characterID, userID, tenantID, title string) (chat.Chat, error) {
	if strings.TrimSpace(userID) == "" {
		return chat.Chat{}, ErrUserRequired
	}

	c := chat.Chat{
		ID:          uuid.NewString(),
		CharacterID: characterID,
		UserID:      userID,
		TenantID:    tenantID,
		Title:       title,
		CreatedAt:   time.Now().UTC(),
	}

	s.mu.Lock()
	s.chats[c.ID] = c
	s.messages[c.ID] = make([]chat.Message, 0, 16)
	s.mu.Unlock()

	return c, nil
}

// FindByID retrieves a chat by identifier.
func (s *Service) FindByID(_ context.Context, chatID string) (chat.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chats[chatID]
	if !ok {
		return chat.Chat{}, ErrChatNotFound
	}
	return c, nil
}

// AddMessage appends a message to the chat history and returns it with its
// assigned identifier.
func (s *Service) AddMessage(_ context.Context, chatID, role, content string) (chat.Message, error) {
	if content == "" {
		return chat.Message{}, ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chats[chatID]; !ok {
		return chat.Message{}, ErrChatNotFound
	}

	msg := chat.Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	if s.log != nil {
		if err := s.log.Append(msg); err != nil {
			return chat.Message{}, fmt.Errorf("append to message log: %w", err)
		}
	}

	s.messages[chatID] = append(s.messages[chatID], msg)
	return msg, nil
}

// GetMessages returns the stored messages for a chat, oldest first.
func (s *Service) GetMessages(_ context.Context, chatID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.messages[chatID]
	if !ok {
		return nil, ErrChatNotFound
	}

	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}

// MessageCount returns the number of messages stored for a chat.
func (s *Service) MessageCount(_ context.Context, chatID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.messages[chatID]
	if !ok {
		return 0, ErrChatNotFound
	}
	return len(messages), nil
}
