package storage

import (
	"fmt"
	"sync"
	"time"

	"github.com/BaoBao112233/AI-single-agent-chat-with-pdf/internal/model"
)

type MemoryStorage struct {
	conversations map[string]*model.Conversation
	mu            sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		conversations: make(map[string]*model.Conversation),
	}
}

func convKey(userID, sessionID int64) string {
	return fmt.Sprintf("%d:%d", userID, sessionID)
}

// copyConversation detaches a conversation from the storage's live state so
// readers never share the Messages slice or Document with writers.
func copyConversation(conv *model.Conversation) *model.Conversation {
	out := *conv
	out.Messages = append([]model.ChatMessage(nil), conv.Messages...)
	if conv.Document != nil {
		doc := *conv.Document
		out.Document = &doc
	}
	return &out
}

func (m *MemoryStorage) Init() error {
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}

func (m *MemoryStorage) GetConversation(userID, sessionID int64) (*model.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conv, exists := m.conversations[convKey(userID, sessionID)]
	if !exists {
		return nil, ErrConversationNotFound
	}

	return copyConversation(conv), nil
}

func (m *MemoryStorage) SaveConversation(conv *model.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv.UpdatedAt = time.Now()
	m.conversations[convKey(conv.UserID, conv.SessionID)] = copyConversation(conv)
	return nil
}

func (m *MemoryStorage) DeleteConversation(userID, sessionID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := convKey(userID, sessionID)
	if _, exists := m.conversations[key]; !exists {
		return ErrConversationNotFound
	}

	delete(m.conversations, key)
	return nil
}

func (m *MemoryStorage) ListConversations() ([]*model.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conversations := make([]*model.Conversation, 0, len(m.conversations))
	for _, conv := range m.conversations {
		conversations = append(conversations, copyConversation(conv))
	}

	return conversations, nil
}

func (m *MemoryStorage) AppendMessages(userID, sessionID int64, messages ...model.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, exists := m.conversations[convKey(userID, sessionID)]
	if !exists {
		return ErrConversationNotFound
	}

	conv.Messages = append(conv.Messages, messages...)
	conv.UpdatedAt = time.Now()
	return nil
}
