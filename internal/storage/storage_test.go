package storage

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/BaoBao112233/AI-single-agent-chat-with-pdf/internal/model"
)

func newConversation(userID, sessionID int64) *model.Conversation {
	return &model.Conversation{
		UserID:    userID,
		SessionID: sessionID,
		Messages:  []model.ChatMessage{},
		CreatedAt: time.Now(),
		Document: &model.Document{
			ID:       "doc-1",
			Filename: "report.pdf",
			Path:     "/uploads/7/42/pdf/report.pdf",
		},
	}
}

// Both implementations must behave identically for the common operations.
func runStorageTests(t *testing.T, store Storage) {
	t.Helper()

	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := store.GetConversation(7, 42); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}

	conv := newConversation(7, 42)
	if err := store.SaveConversation(conv); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetConversation(7, 42)
	if err != nil {
		t.Fatal(err)
	}
	if got.Document == nil || got.Document.Filename != "report.pdf" {
		t.Fatal("document reference not preserved")
	}

	// Same session id under another user is a different conversation.
	if _, err := store.GetConversation(8, 42); !errors.Is(err, ErrConversationNotFound) {
		t.Fatal("conversations must be keyed by user and session")
	}

	err = store.AppendMessages(7, 42,
		model.ChatMessage{ID: "m1", Role: model.RoleUser, Content: "hi", Timestamp: time.Now()},
		model.ChatMessage{ID: "m2", Role: model.RoleAssistant, Content: "hello", Timestamp: time.Now()},
	)
	if err != nil {
		t.Fatal(err)
	}

	got, err = store.GetConversation(7, 42)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got.Messages))
	}
	if got.Messages[0].Content != "hi" || got.Messages[1].Content != "hello" {
		t.Fatal("message order not preserved")
	}

	if err := store.AppendMessages(9, 9, model.ChatMessage{ID: "m3"}); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("append to missing conversation: expected ErrConversationNotFound, got %v", err)
	}

	list, err := store.ListConversations()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(list))
	}

	if err := store.DeleteConversation(7, 42); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetConversation(7, 42); !errors.Is(err, ErrConversationNotFound) {
		t.Fatal("conversation should be gone after delete")
	}
	if err := store.DeleteConversation(7, 42); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("double delete: expected ErrConversationNotFound, got %v", err)
	}
}

func TestMemoryStorage(t *testing.T) {
	runStorageTests(t, NewMemoryStorage())
}

func TestDiskStorage(t *testing.T) {
	runStorageTests(t, NewDiskStorage(t.TempDir(), 10))
}

func TestConcurrentAppendsLoseNoMessages(t *testing.T) {
	for name, store := range map[string]Storage{
		"memory": NewMemoryStorage(),
		"disk":   NewDiskStorage(t.TempDir(), 10),
	} {
		t.Run(name, func(t *testing.T) {
			if err := store.Init(); err != nil {
				t.Fatal(err)
			}
			defer store.Close()

			if err := store.SaveConversation(newConversation(7, 42)); err != nil {
				t.Fatal(err)
			}

			const writers = 8
			var wg sync.WaitGroup
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					err := store.AppendMessages(7, 42,
						model.ChatMessage{ID: fmt.Sprintf("u%d", i), Role: model.RoleUser, Content: "question"},
						model.ChatMessage{ID: fmt.Sprintf("a%d", i), Role: model.RoleAssistant, Content: "answer"},
					)
					if err != nil {
						t.Error(err)
					}
				}(i)
			}
			wg.Wait()

			got, err := store.GetConversation(7, 42)
			if err != nil {
				t.Fatal(err)
			}
			if len(got.Messages) != 2*writers {
				t.Fatalf("lost turns under concurrent appends: expected %d messages, got %d",
					2*writers, len(got.Messages))
			}
		})
	}
}

func TestGetConversationReturnsIsolatedCopy(t *testing.T) {
	for name, store := range map[string]Storage{
		"memory": NewMemoryStorage(),
		"disk":   NewDiskStorage(t.TempDir(), 10),
	} {
		t.Run(name, func(t *testing.T) {
			if err := store.Init(); err != nil {
				t.Fatal(err)
			}
			defer store.Close()

			if err := store.SaveConversation(newConversation(7, 42)); err != nil {
				t.Fatal(err)
			}
			if err := store.AppendMessages(7, 42, model.ChatMessage{ID: "m1", Content: "hi"}); err != nil {
				t.Fatal(err)
			}

			got, err := store.GetConversation(7, 42)
			if err != nil {
				t.Fatal(err)
			}
			got.Messages = append(got.Messages, model.ChatMessage{ID: "rogue"})
			got.Document.Filename = "other.pdf"

			again, err := store.GetConversation(7, 42)
			if err != nil {
				t.Fatal(err)
			}
			if len(again.Messages) != 1 {
				t.Fatalf("caller mutation leaked into storage: %d messages", len(again.Messages))
			}
			if again.Document.Filename != "report.pdf" {
				t.Fatalf("caller mutation leaked into document: %q", again.Document.Filename)
			}
		})
	}
}

func TestDiskStorageSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	store := NewDiskStorage(dir, 10)
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveConversation(newConversation(7, 42)); err != nil {
		t.Fatal(err)
	}
	if err := store.AppendMessages(7, 42, model.ChatMessage{ID: "m1", Role: model.RoleUser, Content: "hi"}); err != nil {
		t.Fatal(err)
	}
	store.Close()

	reopened := NewDiskStorage(dir, 10)
	if err := reopened.Init(); err != nil {
		t.Fatal(err)
	}
	got, err := reopened.GetConversation(7, 42)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "hi" {
		t.Fatal("conversation not recovered from disk")
	}
}

func TestDiskStorageCacheEviction(t *testing.T) {
	store := NewDiskStorage(t.TempDir(), 2)
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}

	for i := int64(0); i < 5; i++ {
		if err := store.SaveConversation(newConversation(1, i)); err != nil {
			t.Fatal(err)
		}
	}

	if len(store.cache) > 2 {
		t.Fatalf("cache exceeded its bound: %d entries", len(store.cache))
	}

	// Evicted conversations are still readable from disk.
	for i := int64(0); i < 5; i++ {
		if _, err := store.GetConversation(1, i); err != nil {
			t.Fatalf("conversation %d unreadable after eviction: %v", i, err)
		}
	}
}
