package handler

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BaoBao112233/AI-single-agent-chat-with-pdf/internal/model"
	"github.com/BaoBao112233/AI-single-agent-chat-with-pdf/internal/service"
	"github.com/BaoBao112233/AI-single-agent-chat-with-pdf/pkg/logger"

	"github.com/gin-gonic/gin"
)

type AIHandler struct {
	chatService *service.ChatService
	uploadDir   string
}

func NewAIHandler(chatService *service.ChatService, uploadDir string) *AIHandler {
	return &AIHandler{
		chatService: chatService,
		uploadDir:   uploadDir,
	}
}

// Health answers GET /health.
func (h *AIHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Chat answers POST /ai/chat. Failures are reported inside the envelope via
// error_status, not via the HTTP status code.
func (h *AIHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	logger.Infof("Chat request user=%d session=%d len=%d", req.UserID, req.SessionID, len(req.Message))

	reply, err := h.chatService.Chat(c.Request.Context(), req.UserID, req.SessionID, req.Message)
	if err != nil {
		status := fmt.Sprintf("Error processing request: %v", err)
		if errors.Is(err, service.ErrNoDocument) {
			status = "No document uploaded for this session. Please upload a PDF file first."
		}
		c.JSON(http.StatusOK, model.Fail(req.SessionID, req.UserID, status))
		return
	}

	c.JSON(http.StatusOK, model.OK(req.SessionID, req.UserID, reply))
}

// UploadPDF answers POST /upload/pdf. The request is a multipart form with
// the file plus session_id and user_id fields.
func (h *AIHandler) UploadPDF(c *gin.Context) {
	sessionID, err := strconv.ParseInt(c.PostForm("session_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session_id"})
		return
	}
	userID, err := strconv.ParseInt(c.PostForm("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusOK, model.Fail(sessionID, userID,
			"No file uploaded. Please upload a PDF file."))
		return
	}

	if fileHeader.Filename == "" {
		c.JSON(http.StatusOK, model.Fail(sessionID, userID,
			"No file uploaded. Please upload a PDF file."))
		return
	}

	if contentType := fileHeader.Header.Get("Content-Type"); contentType != "application/pdf" {
		c.JSON(http.StatusOK, model.Fail(sessionID, userID,
			"Invalid file type. Please upload a PDF file."))
		return
	}

	folder := filepath.Join(h.uploadDir, strconv.FormatInt(userID, 10), strconv.FormatInt(sessionID, 10), "pdf")
	if err := os.MkdirAll(folder, 0755); err != nil {
		c.JSON(http.StatusOK, model.Fail(sessionID, userID,
			fmt.Sprintf("Error processing file: %v", err)))
		return
	}

	// Strip any path components a client might smuggle into the filename.
	filename := filepath.Base(fileHeader.Filename)
	dst := filepath.Join(folder, filename)

	if err := c.SaveUploadedFile(fileHeader, dst); err != nil {
		c.JSON(http.StatusOK, model.Fail(sessionID, userID,
			fmt.Sprintf("Error processing file: %v", err)))
		return
	}

	if err := h.chatService.RegisterUpload(userID, sessionID, filename, dst); err != nil {
		c.JSON(http.StatusOK, model.Fail(sessionID, userID,
			fmt.Sprintf("Error processing file: %v", err)))
		return
	}

	logger.Infof("Stored upload %q for user=%d session=%d", filename, userID, sessionID)
	c.JSON(http.StatusOK, model.OK(sessionID, userID, "PDF file uploaded successfully."))
}
