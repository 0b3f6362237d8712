package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/BaoBao112233/AI-single-agent-chat-with-pdf/internal/config"
	"github.com/BaoBao112233/AI-single-agent-chat-with-pdf/internal/model"
	"github.com/BaoBao112233/AI-single-agent-chat-with-pdf/internal/storage"
)

type stubModel struct {
	reply string
	err   error
	seen  [][]model.ChatMessage
}

func (m *stubModel) Generate(ctx context.Context, messages []model.ChatMessage) (string, error) {
	m.seen = append(m.seen, messages)
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func newTestService(chat model.ChatModel) *ChatService {
	cfg := &config.Config{}
	cfg.Chat.MaxHistoryMessages = 4
	return NewChatServiceWithStorage(cfg, chat, storage.NewMemoryStorage())
}

func TestChatWithoutUpload(t *testing.T) {
	svc := newTestService(&stubModel{reply: "hi"})

	_, err := svc.Chat(context.Background(), 7, 42, "hello")
	if !errors.Is(err, ErrNoDocument) {
		t.Fatalf("expected ErrNoDocument, got %v", err)
	}
}

func TestChatAfterUploadAppendsHistory(t *testing.T) {
	chat := &stubModel{reply: "the summary is X"}
	svc := newTestService(chat)

	if err := svc.RegisterUpload(7, 42, "report.pdf", "/tmp/report.pdf"); err != nil {
		t.Fatal(err)
	}

	reply, err := svc.Chat(context.Background(), 7, 42, "What is the summary?")
	if err != nil {
		t.Fatal(err)
	}
	if reply != "the summary is X" {
		t.Fatalf("unexpected reply %q", reply)
	}

	messages, err := svc.GetMessages(7, 42)
	if err != nil {
		t.Fatal(err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected user+assistant turns stored, got %d", len(messages))
	}
	if messages[0].Role != model.RoleUser || messages[1].Role != model.RoleAssistant {
		t.Fatal("turns stored in wrong order")
	}

	// The prompt carries a system message naming the document.
	prompt := chat.seen[0]
	if prompt[0].Role != model.RoleSystem {
		t.Fatal("prompt must start with a system message")
	}
	if want := `"report.pdf"`; !strings.Contains(prompt[0].Content, want) {
		t.Fatalf("system prompt should name the document, got %q", prompt[0].Content)
	}
}

func TestChatFailureLeavesHistoryUntouched(t *testing.T) {
	chat := &stubModel{err: errors.New("model unavailable")}
	svc := newTestService(chat)

	if err := svc.RegisterUpload(7, 42, "report.pdf", "/tmp/report.pdf"); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Chat(context.Background(), 7, 42, "hello"); err == nil {
		t.Fatal("expected model error")
	}

	messages, err := svc.GetMessages(7, 42)
	if err != nil {
		t.Fatal(err)
	}
	if len(messages) != 0 {
		t.Fatalf("failed chat must not persist turns, got %d", len(messages))
	}
}

func TestChatHistoryWindowIsBounded(t *testing.T) {
	chat := &stubModel{reply: "ok"}
	svc := newTestService(chat) // window of 4

	if err := svc.RegisterUpload(7, 42, "report.pdf", "/tmp/report.pdf"); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		if _, err := svc.Chat(context.Background(), 7, 42, "q"); err != nil {
			t.Fatal(err)
		}
	}

	// Last prompt: system + 4 history turns + the new user turn.
	last := chat.seen[len(chat.seen)-1]
	if got, want := len(last), 6; got != want {
		t.Fatalf("expected %d prompt messages, got %d", want, got)
	}
}

func TestReUploadReplacesDocument(t *testing.T) {
	chat := &stubModel{reply: "ok"}
	svc := newTestService(chat)

	if err := svc.RegisterUpload(7, 42, "first.pdf", "/tmp/first.pdf"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Chat(context.Background(), 7, 42, "q"); err != nil {
		t.Fatal(err)
	}
	if err := svc.RegisterUpload(7, 42, "second.pdf", "/tmp/second.pdf"); err != nil {
		t.Fatal(err)
	}

	conv, err := svc.GetStorage().GetConversation(7, 42)
	if err != nil {
		t.Fatal(err)
	}
	if conv.Document.Filename != "second.pdf" {
		t.Fatalf("re-upload should replace the document, got %q", conv.Document.Filename)
	}
	if len(conv.Messages) != 2 {
		t.Fatal("re-upload should keep the history")
	}
}
