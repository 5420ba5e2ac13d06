package intelligence

import (
	"context"
	"fmt"
	"strings"

	"github.com/zhouzirui/fireside/backend/internal/model/character"
)

// BuildEnhancedPrompt assembles the system prompt for a character-bound
// turn: the character's base card, retrieved memories about the user, the
// current emotional state, and behavioral guidelines.
func (s *Service) BuildEnhancedPrompt(_ context.Context, ch character.Character, userID, chatID, userMessage string) (string, error) {
	sections := []string{character.BasePrompt(ch)}

	if memories := s.memories.Retrieve(ch.ID, userID, chatID, userMessage, s.cfg.RetrieveTop); len(memories) > 0 {
		sections = append(sections, memorySection(memories))
	}

	if emotion, ok := s.emotions.Current(ch.ID, userID, chatID); ok {
		sections = append(sections, fmt.Sprintf(
			"## Current emotional state\nYou are feeling %s (valence %.2f, arousal %.2f).",
			emotion.Label, emotion.Valence, emotion.Arousal))
	}

	sections = append(sections, guidelines)

	return strings.Join(sections, "\n\n"), nil
}

func memorySection(memories []ScoredMemory) string {
	byType := map[string][]string{}
	for _, mem := range memories {
		byType[mem.Type] = append(byType[mem.Type], mem.Content)
	}

	parts := []string{"## What you remember about this user"}
	appendGroup := func(kind, heading string) {
		if contents := byType[kind]; len(contents) > 0 {
			parts = append(parts, heading+": "+strings.Join(contents, "; "))
		}
	}
	appendGroup(MemoryFact, "Facts")
	appendGroup(MemoryPreference, "Preferences")
	appendGroup(MemoryRelationship, "Relationships")
	appendGroup(MemoryEvent, "Events")

	return strings.Join(parts, "\n")
}

const guidelines = `## Guidelines
- Personalize replies using what you remember, but bring memories up naturally.
- Keep emotional shifts gradual and consistent with your current state.
Stay in character at all times.`
