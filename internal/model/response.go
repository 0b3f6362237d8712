package model

// APIResponse is the envelope returned by both /ai/chat and /upload/pdf.
// ErrorStatus carries "success" on success and a failure description
// otherwise; the HTTP status code is 200 in both cases.
type APIResponse struct {
	SessionID   *int64 `json:"session_id,omitempty"`
	UserID      *int64 `json:"user_id,omitempty"`
	Response    string `json:"response"`
	ErrorStatus string `json:"error_status"`
}

// OK builds a success envelope.
func OK(sessionID, userID int64, response string) APIResponse {
	return APIResponse{
		SessionID:   &sessionID,
		UserID:      &userID,
		Response:    response,
		ErrorStatus: ErrorStatusOK,
	}
}

// Fail builds a failure envelope with a human-readable status.
func Fail(sessionID, userID int64, status string) APIResponse {
	return APIResponse{
		SessionID:   &sessionID,
		UserID:      &userID,
		Response:    "",
		ErrorStatus: status,
	}
}
