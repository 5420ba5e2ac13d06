package character

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/fireside/backend/internal/model/character"
	"github.com/zhouzirui/fireside/backend/pkg/utils"
)

// Handler serves the character catalogue.
type Handler struct {
	characters character.Store
}

func New(characters character.Store) *Handler {
	return &Handler{characters: characters}
}

// RegisterRoutes mounts the character routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/characters", h.handleListCharacters)
	r.Get("/characters/{characterID}", h.handleGetCharacter)
}

func (h *Handler) handleListCharacters(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.characters.List())
}

func (h *Handler) handleGetCharacter(w http.ResponseWriter, r *http.Request) {
	characterID := chi.URLParam(r, "characterID")
	ch, ok := h.characters.FindByID(characterID)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "character not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, ch)
}
