package chat

// Request is the body of POST /api/chat.
type Request struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// SessionRequest is the body of DELETE /api/session.
type SessionRequest struct {
	SessionID string `json:"session_id"`
}

// Endpoint paths served by the chat server.
const (
	ChatPath    = "/api/chat"
	SessionPath = "/api/session"
	HealthPath  = "/api/health"
)
