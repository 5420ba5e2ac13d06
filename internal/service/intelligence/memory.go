package intelligence

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory types.
const (
	MemoryFact         = "fact"
	MemoryPreference   = "preference"
	MemoryRelationship = "relationship"
	MemoryEvent        = "event"
)

// MemoryItem is one extracted piece of long-term knowledge about a user.
type MemoryItem struct {
	ID          string    `json:"id"`
	CharacterID string    `json:"characterId"`
	UserID      string    `json:"userId"`
	ChatID      string    `json:"chatId,omitempty"`
	Type        string    `json:"type"`
	Content     string    `json:"content"`
	Importance  float64   `json:"importance"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ScoredMemory pairs a memory with its retrieval score.
type ScoredMemory struct {
	MemoryItem
	Score float64 `json:"score"`
}

// MemoryStore keeps extracted memories in memory, keyed by character and user.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]MemoryItem
}

// NewMemoryStore creates an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string][]MemoryItem)}
}

func memoryKey(characterID, userID string) string {
	return characterID + "|" + userID
}

// Add stores one memory item, assigning an id and timestamp if absent.
func (s *MemoryStore) Add(item MemoryItem) MemoryItem {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	key := memoryKey(item.CharacterID, item.UserID)
	s.mu.Lock()
	s.items[key] = append(s.items[key], item)
	s.mu.Unlock()
	return item
}

// All returns every memory held for the character/user pair.
func (s *MemoryStore) All(characterID, userID string) []MemoryItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]MemoryItem(nil), s.items[memoryKey(characterID, userID)]...)
}

// Count returns the number of memories held for the character/user pair.
func (s *MemoryStore) Count(characterID, userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items[memoryKey(characterID, userID)])
}

// Retrieve returns up to limit memories ranked against the query. The score
// blends term overlap with the query, stored importance, and recency.
func (s *MemoryStore) Retrieve(characterID, userID, chatID, query string, limit int) []ScoredMemory {
	candidates := s.All(characterID, userID)
	if len(candidates) == 0 || limit <= 0 {
		return nil
	}

	queryTerms := tokenize(query)
	now := time.Now().UTC()

	scored := make([]ScoredMemory, 0, len(candidates))
	for _, item := range candidates {
		// Session isolation: memories tagged with a different chat stay out.
		if item.ChatID != "" && chatID != "" && item.ChatID != chatID {
			continue
		}
		score := 0.5*termOverlap(queryTerms, tokenize(item.Content)) +
			0.3*item.Importance +
			0.2*recency(item.CreatedAt, now)
		scored = append(scored, ScoredMemory{MemoryItem: item, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

func tokenize(text string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, field := range strings.Fields(strings.ToLower(text)) {
		field = strings.Trim(field, ".,!?;:\"'()")
		if len(field) > 2 {
			terms[field] = struct{}{}
		}
	}
	return terms
}

func termOverlap(query, content map[string]struct{}) float64 {
	if len(query) == 0 {
		return 0
	}
	var hits int
	for term := range query {
		if _, ok := content[term]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}

// recency decays linearly over thirty days.
func recency(createdAt, now time.Time) float64 {
	age := now.Sub(createdAt)
	if age <= 0 {
		return 1
	}
	const window = 30 * 24 * time.Hour
	if age >= window {
		return 0
	}
	return 1 - float64(age)/float64(window)
}
