package session

import "time"

// Action is one tagged transition over a ChatSession. Each action is applied
// by Reduce as a pure function, so the whole state machine is unit-testable
// without a UI or a network.
type Action interface {
	isAction()
}

// UploadSucceeded moves the session from no-document to ready and seeds the
// message list with a single welcome message naming the file.
type UploadSucceeded struct {
	Filename string
	Welcome  Message
}

// SendStarted appends the user message and the loading placeholder in one
// transition, so the visible list never shows one without the other.
type SendStarted struct {
	UserMessage Message
	Placeholder Message
}

// SendSucceeded resolves the placeholder identified by PlaceholderID into the
// real assistant content.
type SendSucceeded struct {
	PlaceholderID string
	Content       string
	Timestamp     time.Time
}

// SendFailed discards the placeholder; the user message stays.
type SendFailed struct {
	PlaceholderID string
}

// Cleared resets the session to an empty no-document state.
type Cleared struct{}

func (UploadSucceeded) isAction() {}
func (SendStarted) isAction()     {}
func (SendSucceeded) isAction()   {}
func (SendFailed) isAction()      {}
func (Cleared) isAction()         {}

// Reduce applies one action and returns the next state. The input session is
// not mutated; the message slice is copied before any change.
func Reduce(s ChatSession, action Action) ChatSession {
	next := s
	next.Messages = append([]Message(nil), s.Messages...)

	switch a := action.(type) {
	case UploadSucceeded:
		next.DocumentLoaded = true
		next.DocumentName = a.Filename
		next.Messages = []Message{a.Welcome}
		next.LastActivity = a.Welcome.Timestamp

	case SendStarted:
		next.Messages = append(next.Messages, a.UserMessage, a.Placeholder)
		next.LastActivity = a.UserMessage.Timestamp

	case SendSucceeded:
		for i := range next.Messages {
			if next.Messages[i].ID == a.PlaceholderID {
				next.Messages[i].Content = a.Content
				next.Messages[i].Loading = false
				next.Messages[i].Timestamp = a.Timestamp
				break
			}
		}
		next.LastActivity = a.Timestamp

	case SendFailed:
		kept := next.Messages[:0]
		for _, m := range next.Messages {
			if m.ID != a.PlaceholderID {
				kept = append(kept, m)
			}
		}
		next.Messages = kept

	case Cleared:
		next = NewChatSession(s.UserID, s.SessionID)
	}

	return next
}
