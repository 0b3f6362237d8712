package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotFound is returned by Store.Load when no state is persisted for the
// key.
var ErrNotFound = errors.New("session not found")

// Store persists one ChatSession per (userID, sessionID) pair. Injected into
// the controller so persistence is testable with a fake.
type Store interface {
	Load(userID, sessionID int64) (ChatSession, error)
	Save(session ChatSession) error
	Delete(userID, sessionID int64) error
}

// StorageKey derives the persistence key for a (user, session) pair.
func StorageKey(userID, sessionID int64) string {
	return fmt.Sprintf("chat_session_%d_%d", userID, sessionID)
}

// FileStore keeps one JSON file per session under a state directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(userID, sessionID int64) string {
	return filepath.Join(f.dir, StorageKey(userID, sessionID)+".json")
}

func (f *FileStore) Load(userID, sessionID int64) (ChatSession, error) {
	data, err := os.ReadFile(f.path(userID, sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return ChatSession{}, ErrNotFound
		}
		return ChatSession{}, err
	}

	var s ChatSession
	if err := json.Unmarshal(data, &s); err != nil {
		return ChatSession{}, err
	}
	if s.Messages == nil {
		s.Messages = []Message{}
	}

	return s, nil
}

func (f *FileStore) Save(session ChatSession) error {
	path := f.path(session.UserID, session.SessionID)
	tempPath := path + ".tmp"

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}

	return os.Rename(tempPath, path)
}

func (f *FileStore) Delete(userID, sessionID int64) error {
	err := os.Remove(f.path(userID, sessionID))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]ChatSession
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]ChatSession)}
}

func (m *MemoryStore) Load(userID, sessionID int64) (ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[StorageKey(userID, sessionID)]
	if !ok {
		return ChatSession{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) Save(session ChatSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[StorageKey(session.UserID, session.SessionID)] = session
	return nil
}

func (m *MemoryStore) Delete(userID, sessionID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, StorageKey(userID, sessionID))
	return nil
}
