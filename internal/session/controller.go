package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BaoBao112233/AI-single-agent-chat-with-pdf/internal/client"
	"github.com/BaoBao112233/AI-single-agent-chat-with-pdf/pkg/logger"

	"github.com/google/uuid"
)

// State of the controller's upload/send cycle.
type State int

const (
	StateNoDocument State = iota
	StateReady
	StateAwaitingResponse
)

var (
	// ErrNoDocument rejects a send before any successful upload. No state
	// changes.
	ErrNoDocument = errors.New("no document uploaded yet")
	// ErrEmptyMessage rejects a blank send.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrNotPDF rejects a non-PDF file before any network call.
	ErrNotPDF = errors.New("file is not a PDF")
	// ErrBusy rejects an action while a previous one is still in flight.
	ErrBusy = errors.New("a request is already in progress")
)

// SoftSizeLimit is the upload size above which the controller warns but does
// not block.
const SoftSizeLimit = 10 << 20

// API is the backend surface the controller needs. *client.Client satisfies
// it; tests substitute a fake.
type API interface {
	UploadDocument(ctx context.Context, sessionID, userID int64, path string) (*client.Result, error)
	SendMessage(ctx context.Context, sessionID, userID int64, text string) (*client.Result, error)
}

// Controller sequences the session state machine:
// no-document -> (upload ok) -> ready -> (send) -> awaiting-response ->
// (resolved) -> ready. It persists the session after every state-settling
// transition and never persists a loading placeholder.
type Controller struct {
	api       API
	store     Store
	userID    int64
	sessionID int64

	mu      sync.Mutex
	session ChatSession
	pending bool
}

func NewController(api API, store Store, userID, sessionID int64) *Controller {
	return &Controller{
		api:       api,
		store:     store,
		userID:    userID,
		sessionID: sessionID,
		session:   NewChatSession(userID, sessionID),
	}
}

// Restore loads previously persisted state, if any. A missing entry is not an
// error; the controller simply starts in the no-document state.
func (c *Controller) Restore() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.store.Load(c.userID, c.sessionID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	c.session = s
	logger.Debugf("Restored session %s with %d messages",
		StorageKey(s.UserID, s.SessionID), len(s.Messages))
	return nil
}

// Snapshot returns a copy of the current session for rendering.
func (c *Controller) Snapshot() ChatSession {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.session
	out.Messages = append([]Message(nil), c.session.Messages...)
	return out
}

// State derives the current state-machine state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.pending:
		return StateAwaitingResponse
	case c.session.DocumentLoaded:
		return StateReady
	default:
		return StateNoDocument
	}
}

// ValidatePDF checks extension and magic bytes without touching the network.
func ValidatePDF(path string) error {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return ErrNotPDF
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	magic := make([]byte, 5)
	if _, err := io.ReadFull(f, magic); err != nil {
		return ErrNotPDF
	}
	if !bytes.Equal(magic, []byte("%PDF-")) {
		return ErrNotPDF
	}

	return nil
}

// Upload validates and uploads a PDF. A non-PDF file fails before any network
// call and changes nothing. The returned warning, when non-empty, flags an
// oversized file that was uploaded anyway. On success the session moves to
// ready, seeded with a welcome message, and is persisted.
func (c *Controller) Upload(ctx context.Context, path string) (warning string, err error) {
	if err := ValidatePDF(path); err != nil {
		return "", err
	}

	if info, err := os.Stat(path); err == nil && info.Size() > SoftSizeLimit {
		warning = fmt.Sprintf("%s is larger than 10MB; upload may be slow", filepath.Base(path))
	}

	c.mu.Lock()
	if c.pending {
		c.mu.Unlock()
		return "", ErrBusy
	}
	c.pending = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.pending = false
		c.mu.Unlock()
	}()

	if _, err := c.api.UploadDocument(ctx, c.sessionID, c.userID, path); err != nil {
		return warning, err
	}

	filename := filepath.Base(path)
	now := time.Now()
	welcome := Message{
		ID:        uuid.NewString(),
		Content:   fmt.Sprintf("I've loaded **%s**. Ask me anything about it!", filename),
		Sender:    SenderAssistant,
		Timestamp: now,
	}

	c.mu.Lock()
	c.session = Reduce(c.session, UploadSucceeded{Filename: filename, Welcome: welcome})
	saveErr := c.store.Save(c.session.persistable())
	c.mu.Unlock()

	if saveErr != nil {
		logger.Errorf("Failed to persist session after upload: %v", saveErr)
	}

	return warning, nil
}

// Send submits one user message. The user message and a loading placeholder
// appear immediately; the placeholder is resolved into the reply on success
// or discarded on failure. Only settled state is persisted.
func (c *Controller) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	if !c.session.DocumentLoaded {
		c.mu.Unlock()
		return ErrNoDocument
	}
	if c.pending {
		c.mu.Unlock()
		return ErrBusy
	}
	c.pending = true

	now := time.Now()
	userMsg := Message{
		ID:        uuid.NewString(),
		Content:   text,
		Sender:    SenderUser,
		Timestamp: now,
	}
	placeholder := Message{
		ID:        uuid.NewString(),
		Sender:    SenderAssistant,
		Timestamp: now,
		Loading:   true,
	}
	c.session = Reduce(c.session, SendStarted{UserMessage: userMsg, Placeholder: placeholder})
	c.mu.Unlock()

	result, err := c.api.SendMessage(ctx, c.sessionID, c.userID, text)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = false

	if err != nil {
		c.session = Reduce(c.session, SendFailed{PlaceholderID: placeholder.ID})
		return err
	}

	c.session = Reduce(c.session, SendSucceeded{
		PlaceholderID: placeholder.ID,
		Content:       result.Response,
		Timestamp:     time.Now(),
	})

	if err := c.store.Save(c.session.persistable()); err != nil {
		logger.Errorf("Failed to persist session after send: %v", err)
	}

	return nil
}

// Clear removes the persisted entry and resets in-memory state. The next
// interaction starts from no-document; whether the backend still holds the
// uploaded file for this session is left to the backend. While a send or
// upload is in flight Clear returns ErrBusy, otherwise the settling request
// would persist the session right after its entry was deleted.
func (c *Controller) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending {
		return ErrBusy
	}

	if err := c.store.Delete(c.userID, c.sessionID); err != nil {
		return err
	}

	c.session = Reduce(c.session, Cleared{})
	return nil
}
