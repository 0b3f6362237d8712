// Package session holds the client-side chat session: the message model, a
// pure reducer over the session state, pluggable persistence and the
// controller that sequences upload, send and clear against the backend.
package session

import "time"

// Sender values for Message.
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// Message is one visible chat message. Loading marks the transient assistant
// placeholder shown while a response is pending; a loading message is never
// persisted.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	Loading   bool      `json:"-"`
}

// ChatSession is the full client-side conversation state for one
// (user, session) pair. The message list is append-only except for Clear.
type ChatSession struct {
	UserID         int64     `json:"user_id"`
	SessionID      int64     `json:"session_id"`
	Messages       []Message `json:"messages"`
	LastActivity   time.Time `json:"last_activity"`
	DocumentLoaded bool      `json:"document_loaded"`
	DocumentName   string    `json:"document_name"`
}

// NewChatSession returns an empty session in the no-document state.
func NewChatSession(userID, sessionID int64) ChatSession {
	return ChatSession{
		UserID:    userID,
		SessionID: sessionID,
		Messages:  []Message{},
	}
}

// persistable returns a copy of the session with loading placeholders
// stripped, suitable for writing to a store.
func (s ChatSession) persistable() ChatSession {
	out := s
	out.Messages = make([]Message, 0, len(s.Messages))
	for _, m := range s.Messages {
		if !m.Loading {
			out.Messages = append(out.Messages, m)
		}
	}
	return out
}
