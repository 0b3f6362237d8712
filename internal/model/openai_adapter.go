package model

import (
	"context"
	"fmt"

	"github.com/BaoBao112233/AI-single-agent-chat-with-pdf/internal/config"

	openai "github.com/sashabaranov/go-openai"
)

// ChatModel generates one assistant reply for a prompt built from
// conversation history.
type ChatModel interface {
	Generate(ctx context.Context, messages []ChatMessage) (string, error)
}

type openaiChatModel struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAIChatModel creates a ChatModel backed by an OpenAI-compatible API.
func NewOpenAIChatModel(cfg config.OpenAIConfig) ChatModel {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &openaiChatModel{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

func (m *openaiChatModel) Generate(ctx context.Context, messages []ChatMessage) (string, error) {
	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       m.model,
		Messages:    convertMessages(messages),
		MaxTokens:   m.maxTokens,
		Temperature: m.temperature,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from model")
	}

	return resp.Choices[0].Message.Content, nil
}

func convertMessages(messages []ChatMessage) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		// Empty assistant turns can slip in when a reply was cut short;
		// the API rejects them.
		if msg.Content == "" && msg.Role == RoleAssistant {
			continue
		}

		role := openai.ChatMessageRoleUser
		switch msg.Role {
		case RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		case RoleSystem:
			role = openai.ChatMessageRoleSystem
		}

		result = append(result, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}
	return result
}
