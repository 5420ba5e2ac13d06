package character

import (
	"fmt"
	"strings"
)

// BasePrompt renders the character card as a system prompt.
func BasePrompt(ch Character) string {
	lines := []string{fmt.Sprintf("You are %s.", ch.Name)}
	if ch.Description != "" {
		lines = append(lines, ch.Description)
	}
	if ch.Personality != "" {
		lines = append(lines, "Personality: "+ch.Personality)
	}
	if ch.Scenario != "" {
		lines = append(lines, "Scenario: "+ch.Scenario)
	}
	if ch.SystemPrompt != "" {
		lines = append(lines, ch.SystemPrompt)
	}
	return strings.Join(lines, "\n")
}
