package llm

// ChatRequest is a provider-agnostic streaming completion request.
type ChatRequest struct {
	// Model name (e.g., "claude-sonnet-4-5", "llama3.2")
	Model string `json:"model"`

	// System prompt, sent separately from the conversation.
	System string `json:"system,omitempty"`

	// Conversation messages, oldest first. The last one is the user turn
	// being answered.
	Messages []Message `json:"messages"`

	// MaxTokens caps the length of the reply.
	MaxTokens int `json:"max_tokens,omitempty"`

	Temperature *float64 `json:"temperature,omitempty"`
}
