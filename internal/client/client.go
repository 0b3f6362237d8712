// Package client wraps the chat-with-PDF backend HTTP API. All failure
// modes — transport errors, non-2xx statuses and application-level
// error_status values — are normalized into *APIError so callers never need
// to distinguish them.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BaoBao112233/AI-single-agent-chat-with-pdf/internal/model"
	"github.com/BaoBao112233/AI-single-agent-chat-with-pdf/internal/utils"
	"github.com/BaoBao112233/AI-single-agent-chat-with-pdf/pkg/logger"
)

// Upload calls get a longer timeout than chat calls; neither is cancellable
// beyond its fixed deadline.
const (
	chatTimeout   = 30 * time.Second
	uploadTimeout = 60 * time.Second
	healthTimeout = 5 * time.Second
)

// APIError is the uniform failure type for every client call.
type APIError struct {
	Message    string
	StatusCode int
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
	}
	return e.Message
}

// Result is a successful response envelope.
type Result struct {
	SessionID int64
	UserID    int64
	Response  string
}

// Client talks to one backend instance.
type Client struct {
	baseURL      string
	chatClient   *http.Client
	uploadClient *http.Client
	healthClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:      baseURL,
		chatClient:   utils.NewHTTPClient(chatTimeout),
		uploadClient: utils.NewHTTPClient(uploadTimeout),
		healthClient: utils.NewHTTPClient(healthTimeout),
	}
}

// SendMessage posts one chat message for the (user, session) pair.
func (c *Client) SendMessage(ctx context.Context, sessionID, userID int64, text string) (*Result, error) {
	body, err := json.Marshal(model.ChatRequest{
		SessionID: sessionID,
		UserID:    userID,
		Message:   text,
	})
	if err != nil {
		return nil, &APIError{Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ai/chat", bytes.NewReader(body))
	if err != nil {
		return nil, &APIError{Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(c.chatClient, req)
}

// UploadDocument posts a PDF as a multipart form together with the session
// and user identifiers.
func (c *Client) UploadDocument(ctx context.Context, sessionID, userID int64, path string) (*Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("open file: %v", err)}
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("session_id", strconv.FormatInt(sessionID, 10)); err != nil {
		return nil, &APIError{Message: err.Error()}
	}
	if err := writer.WriteField("user_id", strconv.FormatInt(userID, 10)); err != nil {
		return nil, &APIError{Message: err.Error()}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(path)))
	header.Set("Content-Type", "application/pdf")
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, &APIError{Message: err.Error()}
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, &APIError{Message: err.Error()}
	}
	if err := writer.Close(); err != nil {
		return nil, &APIError{Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload/pdf", &buf)
	if err != nil {
		return nil, &APIError{Message: err.Error()}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.do(c.uploadClient, req)
}

// HealthCheck verifies the backend is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return &APIError{Message: err.Error()}
	}

	resp, err := c.healthClient.Do(req)
	if err != nil {
		return &APIError{Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &APIError{Message: "backend unhealthy", StatusCode: resp.StatusCode}
	}

	var health struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return &APIError{Message: fmt.Sprintf("invalid health response: %v", err)}
	}

	return nil
}

func (c *Client) do(httpClient *http.Client, req *http.Request) (*Result, error) {
	logger.Debugf("%s %s", req.Method, req.URL)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("read response: %v", err)}
	}

	logger.Debugf("%s %s -> %d (%d bytes)", req.Method, req.URL, resp.StatusCode, len(respBody))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(respBody, &errResp)
		msg := errResp.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{Message: msg, StatusCode: resp.StatusCode}
	}

	var envelope model.APIResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, &APIError{Message: fmt.Sprintf("invalid response: %v", err), StatusCode: resp.StatusCode}
	}

	if envelope.ErrorStatus != model.ErrorStatusOK {
		return nil, &APIError{Message: envelope.ErrorStatus, StatusCode: resp.StatusCode}
	}

	result := &Result{Response: envelope.Response}
	if envelope.SessionID != nil {
		result.SessionID = *envelope.SessionID
	}
	if envelope.UserID != nil {
		result.UserID = *envelope.UserID
	}

	return result, nil
}
