package intelligence

import (
	"math"
	"sync"
	"time"
)

// EmotionState places a character's mood on the 2D valence/arousal plane.
type EmotionState struct {
	Valence float64 `json:"valence"`
	Arousal float64 `json:"arousal"`
	Label   string  `json:"label"`
}

// EmotionRecord is one appended emotion observation. Records are superseded
// by newer ones, never mutated.
type EmotionRecord struct {
	CharacterID string       `json:"characterId"`
	UserID      string       `json:"userId"`
	ChatID      string       `json:"chatId,omitempty"`
	State       EmotionState `json:"state"`
	Trigger     string       `json:"trigger,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
}

type emotionRange struct {
	name    string
	valence [2]float64
	arousal [2]float64
}

// emotionMap partitions the valence/arousal plane into named regions.
var emotionMap = []emotionRange{
	{"excited", [2]float64{0.5, 1}, [2]float64{0.7, 1}},
	{"happy", [2]float64{0.3, 0.8}, [2]float64{0.3, 0.7}},
	{"loving", [2]float64{0.5, 1}, [2]float64{0.2, 0.5}},
	{"calm", [2]float64{0, 0.5}, [2]float64{0, 0.3}},
	{"curious", [2]float64{0.1, 0.5}, [2]float64{0.4, 0.7}},
	{"surprised", [2]float64{-0.2, 0.5}, [2]float64{0.6, 1}},
	{"confused", [2]float64{-0.3, 0.1}, [2]float64{0.3, 0.6}},
	{"bored", [2]float64{-0.3, 0}, [2]float64{0, 0.3}},
	{"sad", [2]float64{-0.8, -0.2}, [2]float64{0, 0.4}},
	{"fearful", [2]float64{-0.7, -0.2}, [2]float64{0.5, 0.9}},
	{"angry", [2]float64{-1, -0.4}, [2]float64{0.6, 1}},
	{"disgusted", [2]float64{-0.9, -0.4}, [2]float64{0.3, 0.7}},
}

// EmotionLabel names the region of the plane the point falls in. Ties go to
// the region whose center is closest; points outside every region are calm.
func EmotionLabel(valence, arousal float64) string {
	best := "calm"
	bestScore := math.Inf(-1)

	for _, region := range emotionMap {
		vIn := valence >= region.valence[0] && valence <= region.valence[1]
		aIn := arousal >= region.arousal[0] && arousal <= region.arousal[1]
		if !vIn || !aIn {
			continue
		}
		vCenter := (region.valence[0] + region.valence[1]) / 2
		aCenter := (region.arousal[0] + region.arousal[1]) / 2
		score := -math.Hypot(valence-vCenter, arousal-aCenter)
		if score > bestScore {
			bestScore = score
			best = region.name
		}
	}

	return best
}

// smoothTransition blends a new observation into the current state so the
// character's mood shifts gradually instead of snapping.
func smoothTransition(current, next EmotionState) EmotionState {
	return EmotionState{
		Valence: current.Valence*0.7 + next.Valence*0.3,
		Arousal: current.Arousal*0.7 + next.Arousal*0.3,
	}
}

func clampEmotion(s EmotionState) EmotionState {
	s.Valence = math.Max(-1, math.Min(1, s.Valence))
	s.Arousal = math.Max(0, math.Min(1, s.Arousal))
	return s
}

// EmotionStore keeps per-(character, user, chat) emotion histories in memory.
type EmotionStore struct {
	mu      sync.RWMutex
	records map[string][]EmotionRecord
}

// NewEmotionStore creates an empty emotion store.
func NewEmotionStore() *EmotionStore {
	return &EmotionStore{records: make(map[string][]EmotionRecord)}
}

func emotionKey(characterID, userID, chatID string) string {
	return characterID + "|" + userID + "|" + chatID
}

// Append records a new observation for the tuple.
func (s *EmotionStore) Append(rec EmotionRecord) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	key := emotionKey(rec.CharacterID, rec.UserID, rec.ChatID)
	s.mu.Lock()
	s.records[key] = append(s.records[key], rec)
	s.mu.Unlock()
}

// Current returns the latest state for the tuple, if any.
func (s *EmotionStore) Current(characterID, userID, chatID string) (EmotionState, bool) {
	key := emotionKey(characterID, userID, chatID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.records[key]
	if len(records) == 0 {
		return EmotionState{}, false
	}
	return records[len(records)-1].State, true
}

// History returns every recorded observation for the tuple, oldest first.
func (s *EmotionStore) History(characterID, userID, chatID string) []EmotionRecord {
	key := emotionKey(characterID, userID, chatID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]EmotionRecord(nil), s.records[key]...)
}
