package model

// ChatRequest is the body of POST /ai/chat.
type ChatRequest struct {
	SessionID int64  `json:"session_id"`
	UserID    int64  `json:"user_id"`
	Message   string `json:"message" binding:"required"`
}
