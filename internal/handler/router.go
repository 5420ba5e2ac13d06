package handler

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/fireside/backend/internal/auth"
	characterHandler "github.com/zhouzirui/fireside/backend/internal/handler/character"
	chatHandler "github.com/zhouzirui/fireside/backend/internal/handler/chat"
	sessionHandler "github.com/zhouzirui/fireside/backend/internal/handler/session"
	"github.com/zhouzirui/fireside/backend/internal/handler/stream"
	middlewarePkg "github.com/zhouzirui/fireside/backend/internal/middleware"
	characterModel "github.com/zhouzirui/fireside/backend/internal/model/character"
	aiService "github.com/zhouzirui/fireside/backend/internal/service/ai"
	chatService "github.com/zhouzirui/fireside/backend/internal/service/chat"
	"github.com/zhouzirui/fireside/backend/internal/service/intelligence"
	"github.com/zhouzirui/fireside/backend/internal/ws"
	"github.com/zhouzirui/fireside/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(
	characters characterModel.Store,
	chatSvc *chatService.Service,
	aiSvc *aiService.Service,
	intelSvc *intelligence.Service,
	verifier auth.Verifier,
	sessions *sessionHandler.Handler,
	wsHandler *ws.Handler,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	charHandler := characterHandler.New(characters)
	chatsHandler := chatHandler.New(chatSvc, characters)

	var streamHandler *stream.Handler
	if aiSvc != nil {
		streamHandler = stream.New(aiSvc, intelSvc, chatSvc, characters)
	}

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]any{
				"status": "ok",
				"ws":     wsHandler.Stats(),
			})
		})

		sessions.RegisterRoutes(api)
		charHandler.RegisterRoutes(api)

		// The websocket endpoint authenticates itself from the token query
		// parameter, browsers cannot set headers on the upgrade request.
		wsHandler.RegisterRoutes(api)

		api.Group(func(protected chi.Router) {
			protected.Use(middlewarePkg.RequireAuth(verifier))

			chatsHandler.RegisterRoutes(protected)

			protected.Get("/stream/{chatID}", func(w http.ResponseWriter, r *http.Request) {
				chatID := chi.URLParam(r, "chatID")
				userMessage := r.URL.Query().Get("message")

				if streamHandler == nil {
					utils.RespondError(w, http.StatusServiceUnavailable, "ai streaming unavailable")
					return
				}
				if userMessage == "" {
					utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
					return
				}

				if err := streamHandler.HandleStreamRequest(r.Context(), w, chatID, userMessage); err != nil {
					log.Printf("[stream] error handling request: %v", err)
				}
			})
		})
	})

	return r
}
