package storage

import (
	"github.com/BaoBao112233/AI-single-agent-chat-with-pdf/internal/model"
)

// Storage persists server-side conversations keyed by (userID, sessionID).
type Storage interface {
	// Conversation management.
	GetConversation(userID, sessionID int64) (*model.Conversation, error)
	SaveConversation(conv *model.Conversation) error
	DeleteConversation(userID, sessionID int64) error
	ListConversations() ([]*model.Conversation, error)

	// Message management.
	AppendMessages(userID, sessionID int64, messages ...model.ChatMessage) error

	// Storage lifecycle.
	Init() error
	Close() error
}
