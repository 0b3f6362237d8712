package model

import "time"

// Role values used in conversation history and over the wire.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrorStatusOK is the sentinel value of the error_status field that marks a
// successful response. Any other value is a human-readable failure message.
const ErrorStatusOK = "success"

// ChatMessage is one turn of a server-side conversation.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Document describes the PDF uploaded for a conversation. A re-upload
// replaces the previous reference.
type Document struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Path       string    `json:"path"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Conversation is the server-side state of one (user, session) pair.
type Conversation struct {
	UserID    int64         `json:"user_id"`
	SessionID int64         `json:"session_id"`
	Document  *Document     `json:"document,omitempty"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
