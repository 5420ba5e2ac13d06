package chat

import "time"

// Chat binds one conversation to a character and the principal that owns it.
type Chat struct {
	ID          string    `json:"id"`
	CharacterID string    `json:"characterId,omitempty"`
	UserID      string    `json:"userId"`
	TenantID    string    `json:"tenantId"`
	Title       string    `json:"title,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
