package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BaoBao112233/AI-single-agent-chat-with-pdf/internal/config"
	"github.com/BaoBao112233/AI-single-agent-chat-with-pdf/internal/model"
	"github.com/BaoBao112233/AI-single-agent-chat-with-pdf/internal/storage"
	"github.com/BaoBao112233/AI-single-agent-chat-with-pdf/pkg/logger"

	"github.com/google/uuid"
)

// ErrNoDocument is returned when a chat is attempted for a session that has
// no uploaded PDF.
var ErrNoDocument = errors.New("no document uploaded for this session")

const defaultSystemPrompt = `You are a helpful assistant. The user has uploaded a PDF document named %q.
Answer questions about the document accurately and concisely. If a question
cannot be answered from the document, say so instead of speculating.`

// ChatService orchestrates conversations: it owns the storage layer and the
// chat model and keeps per-session history on the server.
type ChatService struct {
	cfg     *config.Config
	storage storage.Storage
	chat    model.ChatModel
}

func NewChatService(cfg *config.Config, chat model.ChatModel) (*ChatService, error) {
	var store storage.Storage
	switch cfg.Storage.Type {
	case "memory":
		store = storage.NewMemoryStorage()
	default:
		store = storage.NewDiskStorage(cfg.Storage.DataDir, cfg.Storage.CacheSize)
	}

	if err := store.Init(); err != nil {
		return nil, err
	}

	return &ChatService{
		cfg:     cfg,
		storage: store,
		chat:    chat,
	}, nil
}

// NewChatServiceWithStorage wires an explicit storage implementation. Used by
// tests.
func NewChatServiceWithStorage(cfg *config.Config, chat model.ChatModel, store storage.Storage) *ChatService {
	return &ChatService{
		cfg:     cfg,
		storage: store,
		chat:    chat,
	}
}

func (s *ChatService) GetStorage() storage.Storage {
	return s.storage
}

// RegisterUpload records the uploaded document for the (user, session) pair,
// creating the conversation if this is its first upload. A re-upload replaces
// the document reference and keeps the history.
func (s *ChatService) RegisterUpload(userID, sessionID int64, filename, path string) error {
	conv, err := s.storage.GetConversation(userID, sessionID)
	if errors.Is(err, storage.ErrConversationNotFound) {
		conv = &model.Conversation{
			UserID:    userID,
			SessionID: sessionID,
			Messages:  []model.ChatMessage{},
			CreatedAt: time.Now(),
		}
	} else if err != nil {
		return err
	}

	conv.Document = &model.Document{
		ID:         uuid.NewString(),
		Filename:   filename,
		Path:       path,
		UploadedAt: time.Now(),
	}

	if err := s.storage.SaveConversation(conv); err != nil {
		return err
	}

	logger.Infof("Registered upload %q for user=%d session=%d", filename, userID, sessionID)
	return nil
}

// Chat sends one user message through the model and appends both turns to
// the conversation. History is only persisted after a successful reply, so a
// failed model call leaves the stored conversation untouched.
func (s *ChatService) Chat(ctx context.Context, userID, sessionID int64, message string) (string, error) {
	conv, err := s.storage.GetConversation(userID, sessionID)
	if errors.Is(err, storage.ErrConversationNotFound) {
		return "", ErrNoDocument
	}
	if err != nil {
		return "", err
	}
	if conv.Document == nil {
		return "", ErrNoDocument
	}

	userTurn := model.ChatMessage{
		ID:        uuid.NewString(),
		Role:      model.RoleUser,
		Content:   message,
		Timestamp: time.Now(),
	}

	prompt := s.buildPrompt(conv, userTurn)

	reply, err := s.chat.Generate(ctx, prompt)
	if err != nil {
		logger.Errorf("Model call failed for user=%d session=%d: %v", userID, sessionID, err)
		return "", err
	}

	assistantTurn := model.ChatMessage{
		ID:        uuid.NewString(),
		Role:      model.RoleAssistant,
		Content:   reply,
		Timestamp: time.Now(),
	}

	if err := s.storage.AppendMessages(userID, sessionID, userTurn, assistantTurn); err != nil {
		return "", err
	}

	return reply, nil
}

// GetMessages returns the stored history for a conversation.
func (s *ChatService) GetMessages(userID, sessionID int64) ([]model.ChatMessage, error) {
	conv, err := s.storage.GetConversation(userID, sessionID)
	if err != nil {
		return nil, err
	}
	return conv.Messages, nil
}

// buildPrompt assembles system prompt, bounded history window and the new
// user turn.
func (s *ChatService) buildPrompt(conv *model.Conversation, userTurn model.ChatMessage) []model.ChatMessage {
	systemPrompt := s.cfg.Chat.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = fmt.Sprintf(defaultSystemPrompt, conv.Document.Filename)
	}

	history := conv.Messages
	if max := s.cfg.Chat.MaxHistoryMessages; max > 0 && len(history) > max {
		history = history[len(history)-max:]
	}

	prompt := make([]model.ChatMessage, 0, len(history)+2)
	prompt = append(prompt, model.ChatMessage{Role: model.RoleSystem, Content: systemPrompt})
	prompt = append(prompt, history...)
	prompt = append(prompt, userTurn)

	return prompt
}
