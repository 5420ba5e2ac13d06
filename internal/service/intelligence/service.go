package intelligence

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/samber/lo"

	"github.com/zhouzirui/fireside/backend/internal/analysis/sentiment"
	"github.com/zhouzirui/fireside/backend/internal/model/chat"
)

// Config controls the intelligence service.
type Config struct {
	// RetrieveTop bounds how many memories feed the enhanced prompt.
	RetrieveTop int
}

// Service runs the memory and emotion passes around chat turns. Memory
// extraction uses a model chain when one is available and falls back to
// pattern heuristics otherwise; emotion analysis is always heuristic.
type Service struct {
	cfg       Config
	extractor compose.Runnable[map[string]any, *schema.Message]
	emotions  *EmotionStore
	memories  *MemoryStore
}

// NewService creates the intelligence service. chatModel may be nil; the
// extraction chain is then replaced by the heuristic fallback.
func NewService(ctx context.Context, chatModel model.ChatModel, cfg Config) (*Service, error) {
	if cfg.RetrieveTop <= 0 {
		cfg.RetrieveTop = 5
	}

	svc := &Service{
		cfg:      cfg,
		emotions: NewEmotionStore(),
		memories: NewMemoryStore(),
	}

	if chatModel == nil {
		return svc, nil
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(extractionSystemPrompt),
		schema.UserMessage(extractionUserPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile memory extraction chain: %w", err)
	}

	svc.extractor = runnable
	return svc, nil
}

// Emotions exposes the emotion store for handlers and tests.
func (s *Service) Emotions() *EmotionStore { return s.emotions }

// Memories exposes the memory store for handlers and tests.
func (s *Service) Memories() *MemoryStore { return s.memories }

// AnalyzeEmotion scores the latest exchange, blends it into the current
// state for the tuple, records the result, and returns the new state.
func (s *Service) AnalyzeEmotion(_ context.Context, characterID, userID, chatID, text string) (EmotionState, error) {
	score := sentiment.Analyze(text)
	next := EmotionState{Valence: score.Valence, Arousal: score.Arousal}

	if current, ok := s.emotions.Current(characterID, userID, chatID); ok {
		next = smoothTransition(current, next)
	}
	next = clampEmotion(next)
	next.Label = EmotionLabel(next.Valence, next.Arousal)

	s.emotions.Append(EmotionRecord{
		CharacterID: characterID,
		UserID:      userID,
		ChatID:      chatID,
		State:       next,
		Trigger:     truncate(text, 200),
	})

	return next, nil
}

// ExtractMemories distills durable knowledge about the user from recent
// messages. The returned items are not yet stored; see StoreMemories.
func (s *Service) ExtractMemories(ctx context.Context, messages []chat.Message) ([]MemoryItem, error) {
	if len(messages) == 0 {
		return nil, nil
	}

	if s.extractor == nil {
		return heuristicExtract(messages), nil
	}

	conversation := strings.Join(lo.Map(messages, func(m chat.Message, _ int) string {
		return m.Role + ": " + m.Content
	}), "\n")

	msg, err := s.extractor.Invoke(ctx, map[string]any{"conversation": conversation})
	if err != nil {
		return nil, fmt.Errorf("memory extraction chain: %w", err)
	}

	payload, err := parseExtraction(msg.Content)
	if err != nil {
		return nil, fmt.Errorf("parse memory extraction output: %w", err)
	}

	var items []MemoryItem
	appendItems := func(kind string, importance float64, contents []string) {
		for _, content := range contents {
			content = strings.TrimSpace(content)
			if content == "" {
				continue
			}
			items = append(items, MemoryItem{Type: kind, Content: content, Importance: importance})
		}
	}
	appendItems(MemoryFact, 0.7, payload.Facts)
	appendItems(MemoryPreference, 0.6, payload.Preferences)
	appendItems(MemoryRelationship, 0.8, payload.Relationships)
	appendItems(MemoryEvent, 0.5, payload.Events)

	return items, nil
}

// StoreMemories persists extracted items for the character/user pair.
func (s *Service) StoreMemories(characterID, userID, chatID string, items []MemoryItem) {
	for _, item := range items {
		item.CharacterID = characterID
		item.UserID = userID
		item.ChatID = chatID
		s.memories.Add(item)
	}
}

// CurrentEmotion returns the latest recorded state for the tuple.
func (s *Service) CurrentEmotion(characterID, userID, chatID string) (EmotionState, bool) {
	return s.emotions.Current(characterID, userID, chatID)
}

type extractionPayload struct {
	Facts         []string `json:"facts"`
	Preferences   []string `json:"preferences"`
	Relationships []string `json:"relationships"`
	Events        []string `json:"events"`
}

func parseExtraction(content string) (extractionPayload, error) {
	cleaned := strings.TrimSpace(content)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var payload extractionPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return extractionPayload{}, err
	}
	return payload, nil
}

// heuristicExtract covers deployments without a model: it catches only
// first-person statements with obvious memory value.
func heuristicExtract(messages []chat.Message) []MemoryItem {
	var items []MemoryItem
	seen := make(map[string]struct{})

	add := func(kind string, importance float64, content string) {
		content = strings.TrimSpace(content)
		if content == "" {
			return
		}
		if _, dup := seen[content]; dup {
			return
		}
		seen[content] = struct{}{}
		items = append(items, MemoryItem{Type: kind, Content: content, Importance: importance})
	}

	for _, msg := range messages {
		if msg.Role != chat.RoleUser {
			continue
		}
		for _, sentence := range strings.FieldsFunc(msg.Content, func(r rune) bool {
			return r == '.' || r == '!' || r == '?' || r == '\n'
		}) {
			lower := strings.ToLower(strings.TrimSpace(sentence))
			switch {
			case strings.HasPrefix(lower, "my name is"), strings.HasPrefix(lower, "i am "), strings.HasPrefix(lower, "i'm "):
				add(MemoryFact, 0.7, sentence)
			case strings.HasPrefix(lower, "i like"), strings.HasPrefix(lower, "i love"), strings.HasPrefix(lower, "i prefer"), strings.HasPrefix(lower, "i hate"):
				add(MemoryPreference, 0.6, sentence)
			case strings.Contains(lower, "my wife"), strings.Contains(lower, "my husband"),
				strings.Contains(lower, "my friend"), strings.Contains(lower, "my brother"),
				strings.Contains(lower, "my sister"), strings.Contains(lower, "my mother"),
				strings.Contains(lower, "my father"):
				add(MemoryRelationship, 0.8, sentence)
			}
		}
	}

	return items
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

const extractionSystemPrompt = "You are a memory extraction assistant. Read the conversation and extract durable knowledge about the user. Respond with a single JSON object and nothing else. The object has four string-array fields named facts, preferences, relationships and events. Only include information that is stated or can be reasonably inferred; never invent details. At most three entries per field."

const extractionUserPrompt = "Conversation:\n{conversation}\n\nReturn the JSON object."
