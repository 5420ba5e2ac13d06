package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/fireside/backend/internal/model/character"
	"github.com/zhouzirui/fireside/backend/internal/model/chat"
	aiService "github.com/zhouzirui/fireside/backend/internal/service/ai"
	chatService "github.com/zhouzirui/fireside/backend/internal/service/chat"
	"github.com/zhouzirui/fireside/backend/internal/service/intelligence"
	"github.com/zhouzirui/fireside/backend/pkg/utils"
)

// Handler streams assistant replies over Server-Sent Events. It is the
// fallback transport for clients without a websocket, same turn semantics,
// one subscriber.
type Handler struct {
	aiSvc      *aiService.Service
	intelSvc   *intelligence.Service
	chatSvc    *chatService.Service
	characters character.Store
}

func New(aiSvc *aiService.Service, intelSvc *intelligence.Service, chatSvc *chatService.Service, characters character.Store) *Handler {
	return &Handler{
		aiSvc:      aiSvc,
		intelSvc:   intelSvc,
		chatSvc:    chatSvc,
		characters: characters,
	}
}

// StreamResponse is one SSE frame.
type StreamResponse struct {
	Event    string `json:"event"`
	Content  string `json:"content,omitempty"`
	ChatID   string `json:"chatId,omitempty"`
	Finished bool   `json:"finished,omitempty"`
	Error    string `json:"error,omitempty"`
}

// HandleStreamRequest runs one turn for the chat and streams the reply.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, chatID, userMessage string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	utils.SetupSSEHeaders(w)

	c, err := h.chatSvc.FindByID(ctx, chatID)
	if err != nil {
		h.sendSSEError(w, flusher, "chat not found")
		return err
	}

	history, err := h.chatSvc.GetMessages(ctx, chatID)
	if err != nil {
		h.sendSSEError(w, flusher, "failed to load conversation")
		return err
	}

	// Persist the user message unless the client already did so.
	if !hasMatchingUserMessage(history, userMessage) {
		saved, saveErr := h.chatSvc.AddMessage(ctx, chatID, chat.RoleUser, userMessage)
		if saveErr != nil {
			h.sendSSEError(w, flusher, "failed to save message")
			return saveErr
		}
		history = append(history, saved)
	}

	system, err := h.systemPrompt(ctx, c, userMessage)
	if err != nil {
		h.sendSSEError(w, flusher, "failed to build prompt")
		return err
	}

	h.sendSSE(w, flusher, StreamResponse{Event: "start", ChatID: chatID})

	replayed := history
	if n := len(replayed); n > 0 && replayed[n-1].Role == chat.RoleUser && replayed[n-1].Content == userMessage {
		replayed = replayed[:n-1]
	}

	response, err := h.streamAIResponse(ctx, w, flusher, chatID, system, replayed, userMessage)
	if err != nil {
		h.sendSSEError(w, flusher, fmt.Sprintf("generation failed: %v", err))
		return err
	}

	if _, err := h.chatSvc.AddMessage(ctx, chatID, chat.RoleAssistant, response.Content); err != nil {
		h.sendSSEError(w, flusher, "failed to save reply")
		return err
	}

	h.runIntelligence(ctx, c, userMessage, response.Content)

	h.sendSSE(w, flusher, StreamResponse{
		Event:    "end",
		ChatID:   chatID,
		Finished: true,
	})

	log.Printf("[stream] completed response for chat=%s", chatID)
	return nil
}

func (h *Handler) systemPrompt(ctx context.Context, c chat.Chat, userMessage string) (string, error) {
	if c.CharacterID == "" {
		return "", nil
	}
	ch, ok := h.characters.FindByID(c.CharacterID)
	if !ok {
		return "", fmt.Errorf("character %s not found", c.CharacterID)
	}
	if h.intelSvc != nil {
		return h.intelSvc.BuildEnhancedPrompt(ctx, ch, c.UserID, c.ID, userMessage)
	}
	return character.BasePrompt(ch), nil
}

func (h *Handler) streamAIResponse(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, chatID, system string, history []chat.Message, userMessage string) (*schema.Message, error) {
	stream, err := h.aiSvc.StreamResponse(ctx, system, aiService.HistoryMessages(history, 0), userMessage)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return nil, recvErr
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content != "" {
			h.sendSSE(w, flusher, StreamResponse{
				Event:   "delta",
				ChatID:  chatID,
				Content: chunk.Content,
			})
		}
	}

	response, err := schema.ConcatMessages(chunks)
	if err != nil {
		return nil, err
	}

	h.sendSSE(w, flusher, StreamResponse{
		Event:   "message",
		ChatID:  chatID,
		Content: response.Content,
	})
	return response, nil
}

// runIntelligence mirrors the websocket turn's post-processing. Failures are
// logged, the reply already went out.
func (h *Handler) runIntelligence(ctx context.Context, c chat.Chat, userMessage, assistantMessage string) {
	if h.intelSvc == nil || c.CharacterID == "" {
		return
	}
	exchange := "user: " + userMessage + "\nassistant: " + assistantMessage
	if _, err := h.intelSvc.AnalyzeEmotion(ctx, c.CharacterID, c.UserID, c.ID, exchange); err != nil {
		log.Printf("[stream] emotion analysis failed for chat %s: %v", c.ID, err)
	}
}

func hasMatchingUserMessage(messages []chat.Message, content string) bool {
	if len(messages) == 0 {
		return false
	}
	last := messages[len(messages)-1]
	return last.Role == chat.RoleUser && last.Content == content
}

func (h *Handler) sendSSE(w http.ResponseWriter, flusher http.Flusher, response StreamResponse) {
	utils.SendSSEChunk(w, flusher, response)
}

func (h *Handler) sendSSEError(w http.ResponseWriter, flusher http.Flusher, errorMsg string) {
	h.sendSSE(w, flusher, StreamResponse{Event: "error", Error: errorMsg})
}
