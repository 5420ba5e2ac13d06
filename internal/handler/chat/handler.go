package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/fireside/backend/internal/middleware"
	"github.com/zhouzirui/fireside/backend/internal/model/character"
	chatService "github.com/zhouzirui/fireside/backend/internal/service/chat"
	"github.com/zhouzirui/fireside/backend/pkg/utils"
)

// Handler serves chat creation and history over REST.
type Handler struct {
	chatSvc    *chatService.Service
	characters character.Store
}

func New(chatSvc *chatService.Service, characters character.Store) *Handler {
	return &Handler{
		chatSvc:    chatSvc,
		characters: characters,
	}
}

// RegisterRoutes mounts the chat routes. Callers are expected to wrap them
// with the auth middleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chats", h.handleCreateChat)
	r.Get("/chats/{chatID}", h.handleGetChat)
	r.Get("/chats/{chatID}/messages", h.handleGetMessages)
}

func (h *Handler) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var payload struct {
		CharacterID string `json:"characterId"`
		Title       string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if payload.CharacterID != "" {
		if _, found := h.characters.FindByID(payload.CharacterID); !found {
			utils.RespondError(w, http.StatusBadRequest, "character not found")
			return
		}
	}

	created, err := h.chatSvc.CreateChat(r.Context(), payload.CharacterID, claims.UserID, claims.TenantID, payload.Title)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleGetChat(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	found, err := h.chatSvc.FindByID(r.Context(), chatID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "chat not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, found)
}

func (h *Handler) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	messages, err := h.chatSvc.GetMessages(r.Context(), chatID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, chatService.ErrChatNotFound) {
			status = http.StatusNotFound
		}
		utils.RespondError(w, status, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, messages)
}
