package session

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/fireside/backend/pkg/utils"
)

// Issuer signs access tokens for a principal.
type Issuer interface {
	Issue(userID, tenantID string) (string, error)
}

// Handler exposes the token-issuing endpoint. The service keeps no
// credential store, so login asserts an identity and returns a signed
// access token for it.
type Handler struct {
	issuer Issuer
	ttl    time.Duration
}

func New(issuer Issuer, ttl time.Duration) *Handler {
	return &Handler{issuer: issuer, ttl: ttl}
}

// RegisterRoutes mounts the auth routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
}

type loginRequest struct {
	UserID   string `json:"userId"`
	TenantID string `json:"tenantId"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		utils.RespondError(w, http.StatusBadRequest, "userId is required")
		return
	}
	if req.TenantID == "" {
		req.TenantID = "default"
	}

	token, err := h.issuer.Issue(req.UserID, req.TenantID)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	utils.RespondJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresIn: int(h.ttl.Seconds()),
	})
}
