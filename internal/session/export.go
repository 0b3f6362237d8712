package session

import (
	"encoding/json"
	"io"
	"time"
)

// Export is the downloadable JSON document for a session. It is an output
// format only; there is no corresponding import path.
type Export struct {
	SessionID  int64           `json:"session_id"`
	UserID     int64           `json:"user_id"`
	Document   string          `json:"document,omitempty"`
	ExportedAt time.Time       `json:"exported_at"`
	Messages   []ExportMessage `json:"messages"`
}

type ExportMessage struct {
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Export writes the visible conversation as JSON. Loading placeholders are
// skipped; order and content are preserved exactly.
func (c *Controller) Export(w io.Writer) error {
	s := c.Snapshot()

	doc := Export{
		SessionID:  s.SessionID,
		UserID:     s.UserID,
		Document:   s.DocumentName,
		ExportedAt: time.Now(),
		Messages:   make([]ExportMessage, 0, len(s.Messages)),
	}

	for _, m := range s.Messages {
		if m.Loading {
			continue
		}
		doc.Messages = append(doc.Messages, ExportMessage{
			Sender:    m.Sender,
			Content:   m.Content,
			Timestamp: m.Timestamp,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
