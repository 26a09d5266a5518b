package llm

import "context"

// TokenFunc receives reply fragments in order. Returning an error aborts the
// stream with that error.
type TokenFunc func(token string) error

// Completer streams a reply from a model.
type Completer interface {
	// Name returns the provider name (e.g., "anthropic", "ollama").
	Name() string

	// Stream sends req and calls onToken for every text fragment as it
	// arrives. It returns the assembled reply once the model is done.
	Stream(ctx context.Context, req *ChatRequest, onToken TokenFunc) (*ChatResponse, error)
}
