package ai

import (
	"context"
	"fmt"
	"log"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/fireside/backend/internal/config"
	"github.com/zhouzirui/fireside/backend/internal/model/chat"
)

// Service wraps the chat model behind the two call shapes the rest of the
// system needs: a templated chain for the HTTP streaming endpoint and a raw
// message-list path for the realtime turn orchestrator.
type Service struct {
	chatModel model.ChatModel
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// NewService creates the provider from configuration.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewServiceWithModel(ctx, chatModel)
}

// NewServiceWithModel builds the service around an existing model instance.
func NewServiceWithModel(ctx context.Context, chatModel model.ChatModel) (*Service, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{chatModel: chatModel, chain: runnable}, nil
}

// GetChatModel returns the underlying chat model for collaborators that
// build their own chains on top of it.
func (s *Service) GetChatModel() model.ChatModel {
	return s.chatModel
}

// StreamCompletion streams a completion for a fully assembled message list.
// The returned reader yields partial messages and terminates with io.EOF.
func (s *Service) StreamCompletion(ctx context.Context, messages []*schema.Message) (*schema.StreamReader[*schema.Message], error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("empty message list")
	}
	stream, err := s.chatModel.Stream(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("failed to stream completion: %w", err)
	}
	return stream, nil
}

// GenerateResponse runs the templated chain to completion.
func (s *Service) GenerateResponse(ctx context.Context, system string, history []*schema.Message, query string) (*schema.Message, error) {
	input := map[string]any{
		"system":  system,
		"history": history,
		"query":   query,
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to run chat chain: %w", err)
	}

	log.Printf("[ai] generated response, length=%d", len(response.Content))
	return response, nil
}

// StreamResponse streams the templated chain's output.
func (s *Service) StreamResponse(ctx context.Context, system string, history []*schema.Message, query string) (*schema.StreamReader[*schema.Message], error) {
	input := map[string]any{
		"system":  system,
		"history": history,
		"query":   query,
	}

	stream, err := s.chain.Stream(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to stream chat chain output: %w", err)
	}
	return stream, nil
}

// HistoryMessages converts stored messages into model messages, keeping at
// most limit of the newest entries. A limit of zero keeps all of them.
func HistoryMessages(messages []chat.Message, limit int) []*schema.Message {
	if len(messages) == 0 {
		return nil
	}

	startIdx := 0
	if limit > 0 && len(messages) > limit {
		startIdx = len(messages) - limit
	}

	history := make([]*schema.Message, 0, len(messages)-startIdx)
	for _, msg := range messages[startIdx:] {
		switch msg.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(msg.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}

	return history
}
