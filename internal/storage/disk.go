package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/BaoBao112233/AI-single-agent-chat-with-pdf/internal/model"
	"github.com/BaoBao112233/AI-single-agent-chat-with-pdf/pkg/logger"
)

// DiskStorage keeps one JSON file per conversation under
// {dataDir}/conversations plus an index file for listing, with a bounded
// in-memory cache in front.
type DiskStorage struct {
	dataDir   string
	mu        sync.RWMutex
	cache     map[string]*model.Conversation
	cacheSize int
}

type conversationIndex struct {
	UserID    int64     `json:"user_id"`
	SessionID int64     `json:"session_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewDiskStorage(dataDir string, cacheSize int) *DiskStorage {
	return &DiskStorage{
		dataDir:   dataDir,
		cache:     make(map[string]*model.Conversation),
		cacheSize: cacheSize,
	}
}

func (d *DiskStorage) Init() error {
	dirs := []string{
		d.dataDir,
		filepath.Join(d.dataDir, "conversations"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: %v", ErrStorageInit, err)
		}
	}

	indexPath := d.indexPath()
	if _, err := os.Stat(indexPath); os.IsNotExist(err) {
		if err := d.saveIndex([]conversationIndex{}); err != nil {
			return fmt.Errorf("%w: %v", ErrStorageInit, err)
		}
	}

	logger.Info("Disk storage initialized")
	return nil
}

func (d *DiskStorage) Close() error {
	return nil
}

func (d *DiskStorage) indexPath() string {
	return filepath.Join(d.dataDir, "conversations.json")
}

func (d *DiskStorage) conversationPath(userID, sessionID int64) string {
	return filepath.Join(d.dataDir, "conversations", fmt.Sprintf("%d_%d.json", userID, sessionID))
}

func (d *DiskStorage) loadIndex() ([]conversationIndex, error) {
	data, err := os.ReadFile(d.indexPath())
	if err != nil {
		return nil, err
	}

	var indexes []conversationIndex
	if err := json.Unmarshal(data, &indexes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	return indexes, nil
}

func (d *DiskStorage) saveIndex(indexes []conversationIndex) error {
	return writeFileAtomic(d.indexPath(), indexes)
}

func writeFileAtomic(path string, v interface{}) error {
	tempPath := path + ".tmp"

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}

	return os.Rename(tempPath, path)
}

func (d *DiskStorage) loadConversationFromFile(userID, sessionID int64) (*model.Conversation, error) {
	data, err := os.ReadFile(d.conversationPath(userID, sessionID))
	if err != nil {
		return nil, err
	}

	var conv model.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	return &conv, nil
}

// GetConversation returns a copy, so callers can read and mutate the result
// without synchronizing against concurrent writers.
func (d *DiskStorage) GetConversation(userID, sessionID int64) (*model.Conversation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	conv, err := d.getLocked(userID, sessionID)
	if err != nil {
		return nil, err
	}
	return copyConversation(conv), nil
}

// getLocked returns the live cached conversation, loading it from disk on a
// miss. Callers must hold the lock and must not leak the pointer.
func (d *DiskStorage) getLocked(userID, sessionID int64) (*model.Conversation, error) {
	key := convKey(userID, sessionID)
	if conv, exists := d.cache[key]; exists {
		return conv, nil
	}

	conv, err := d.loadConversationFromFile(userID, sessionID)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	d.cache[key] = conv
	d.evictCache()
	return conv, nil
}

func (d *DiskStorage) SaveConversation(conv *model.Conversation) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	conv.UpdatedAt = time.Now()
	return d.saveLocked(copyConversation(conv))
}

// saveLocked writes the conversation file and index and refreshes the cache.
// Callers must hold the lock; conv must not be aliased outside the storage.
func (d *DiskStorage) saveLocked(conv *model.Conversation) error {
	if err := writeFileAtomic(d.conversationPath(conv.UserID, conv.SessionID), conv); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	if err := d.updateIndex(conv); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	d.cache[convKey(conv.UserID, conv.SessionID)] = conv
	d.evictCache()

	return nil
}

func (d *DiskStorage) DeleteConversation(userID, sessionID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	path := d.conversationPath(userID, sessionID)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return ErrConversationNotFound
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	delete(d.cache, convKey(userID, sessionID))

	indexes, err := d.loadIndex()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	kept := indexes[:0]
	for _, idx := range indexes {
		if idx.UserID != userID || idx.SessionID != sessionID {
			kept = append(kept, idx)
		}
	}

	return d.saveIndex(kept)
}

func (d *DiskStorage) ListConversations() ([]*model.Conversation, error) {
	indexes, err := d.loadIndex()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	conversations := make([]*model.Conversation, 0, len(indexes))
	for _, idx := range indexes {
		conv, err := d.GetConversation(idx.UserID, idx.SessionID)
		if err != nil {
			logger.Errorf("Failed to load conversation %d:%d: %v", idx.UserID, idx.SessionID, err)
			continue
		}
		conversations = append(conversations, conv)
	}

	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].UpdatedAt.After(conversations[j].UpdatedAt)
	})

	return conversations, nil
}

// AppendMessages holds the lock across the whole load-append-save cycle so
// concurrent appends to the same conversation cannot lose turns.
func (d *DiskStorage) AppendMessages(userID, sessionID int64, messages ...model.ChatMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	conv, err := d.getLocked(userID, sessionID)
	if err != nil {
		return err
	}

	conv.Messages = append(conv.Messages, messages...)
	conv.UpdatedAt = time.Now()
	return d.saveLocked(conv)
}

func (d *DiskStorage) updateIndex(conv *model.Conversation) error {
	indexes, err := d.loadIndex()
	if err != nil {
		return err
	}

	found := false
	for i, idx := range indexes {
		if idx.UserID == conv.UserID && idx.SessionID == conv.SessionID {
			indexes[i].UpdatedAt = conv.UpdatedAt
			found = true
			break
		}
	}
	if !found {
		indexes = append(indexes, conversationIndex{
			UserID:    conv.UserID,
			SessionID: conv.SessionID,
			UpdatedAt: conv.UpdatedAt,
		})
	}

	return d.saveIndex(indexes)
}

// evictCache drops arbitrary entries until the cache is back under its
// bound. Callers must hold the write lock.
func (d *DiskStorage) evictCache() {
	for key := range d.cache {
		if len(d.cache) <= d.cacheSize {
			break
		}
		delete(d.cache, key)
	}
}
