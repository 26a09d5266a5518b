package llm

// ConversationTurn is a completed request-response pair.
type ConversationTurn struct {
	Provider  string        `json:"provider"`
	SessionID string        `json:"session_id"`
	Request   *ChatRequest  `json:"request"`
	Response  *ChatResponse `json:"response"`
}
