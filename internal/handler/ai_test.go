package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BaoBao112233/AI-single-agent-chat-with-pdf/internal/config"
	"github.com/BaoBao112233/AI-single-agent-chat-with-pdf/internal/model"
	"github.com/BaoBao112233/AI-single-agent-chat-with-pdf/internal/service"
	"github.com/BaoBao112233/AI-single-agent-chat-with-pdf/internal/storage"

	"github.com/gin-gonic/gin"
)

type stubModel struct {
	reply string
}

func (m *stubModel) Generate(ctx context.Context, messages []model.ChatMessage) (string, error) {
	return m.reply, nil
}

func newTestRouter(t *testing.T, reply string) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Chat.MaxHistoryMessages = 20

	svc := service.NewChatServiceWithStorage(cfg, &stubModel{reply: reply}, storage.NewMemoryStorage())
	uploadDir := t.TempDir()
	h := NewAIHandler(svc, uploadDir)

	router := gin.New()
	router.GET("/health", h.Health)
	router.POST("/ai/chat", h.Chat)
	router.POST("/upload/pdf", h.UploadPDF)

	return router, uploadDir
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) model.APIResponse {
	t.Helper()
	var envelope model.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("invalid envelope: %v (%s)", err, rec.Body.String())
	}
	return envelope
}

func multipartPDF(t *testing.T, sessionID, userID, filename, contentType string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	writer.WriteField("session_id", sessionID)
	writer.WriteField("user_id", userID)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("%PDF-1.4\ntest content"))
	writer.Close()

	return &buf, writer.FormDataContentType()
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t, "ok")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var health struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "healthy" {
		t.Fatalf("expected healthy, got %q", health.Status)
	}
}

func TestChatBeforeUpload(t *testing.T) {
	router, _ := newTestRouter(t, "ok")

	body, _ := json.Marshal(model.ChatRequest{SessionID: 42, UserID: 7, Message: "hello"})
	req := httptest.NewRequest(http.MethodPost, "/ai/chat", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("failures travel in the envelope, expected 200, got %d", rec.Code)
	}
	envelope := decodeEnvelope(t, rec)
	if envelope.ErrorStatus == model.ErrorStatusOK {
		t.Fatal("chat before upload must fail")
	}
	if !strings.Contains(envelope.ErrorStatus, "upload a PDF") {
		t.Fatalf("unexpected error status %q", envelope.ErrorStatus)
	}
}

func TestUploadRejectsNonPDF(t *testing.T) {
	router, uploadDir := newTestRouter(t, "ok")

	buf, contentType := multipartPDF(t, "42", "7", "notes.txt", "text/plain")
	req := httptest.NewRequest(http.MethodPost, "/upload/pdf", buf)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	envelope := decodeEnvelope(t, rec)
	if envelope.ErrorStatus != "Invalid file type. Please upload a PDF file." {
		t.Fatalf("unexpected error status %q", envelope.ErrorStatus)
	}

	entries, _ := os.ReadDir(uploadDir)
	if len(entries) != 0 {
		t.Fatal("rejected upload must not write anything")
	}
}

func TestUploadThenChat(t *testing.T) {
	router, uploadDir := newTestRouter(t, "the summary is X")

	buf, contentType := multipartPDF(t, "42", "7", "report.pdf", "application/pdf")
	req := httptest.NewRequest(http.MethodPost, "/upload/pdf", buf)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	envelope := decodeEnvelope(t, rec)
	if envelope.ErrorStatus != model.ErrorStatusOK {
		t.Fatalf("upload failed: %q", envelope.ErrorStatus)
	}
	if envelope.Response != "PDF file uploaded successfully." {
		t.Fatalf("unexpected response %q", envelope.Response)
	}

	stored := filepath.Join(uploadDir, "7", "42", "pdf", "report.pdf")
	if _, err := os.Stat(stored); err != nil {
		t.Fatalf("uploaded file not stored at %s: %v", stored, err)
	}

	body, _ := json.Marshal(model.ChatRequest{SessionID: 42, UserID: 7, Message: "What is the summary?"})
	chatReq := httptest.NewRequest(http.MethodPost, "/ai/chat", bytes.NewReader(body))
	chatReq.Header.Set("Content-Type", "application/json")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, chatReq)

	envelope = decodeEnvelope(t, rec)
	if envelope.ErrorStatus != model.ErrorStatusOK {
		t.Fatalf("chat failed: %q", envelope.ErrorStatus)
	}
	if envelope.Response != "the summary is X" {
		t.Fatalf("unexpected reply %q", envelope.Response)
	}
	if envelope.SessionID == nil || *envelope.SessionID != 42 {
		t.Fatal("envelope must echo the session id")
	}
}

func TestUploadRejectsBadIdentifiers(t *testing.T) {
	router, _ := newTestRouter(t, "ok")

	buf, contentType := multipartPDF(t, "not-a-number", "7", "report.pdf", "application/pdf")
	req := httptest.NewRequest(http.MethodPost, "/upload/pdf", buf)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed session_id, got %d", rec.Code)
	}
}
