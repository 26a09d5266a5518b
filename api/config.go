// Package api provides the lincode chat server: a small HTTP API that streams
// model replies to clients as "token", "done" and "error" events.
package api

import "time"

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// Model is sent with every completion request.
	Model string

	// MaxTokens caps each reply. Zero lets the provider pick its default.
	MaxTokens int

	// Prompt supplies the system prompt for each request. A nil Prompt sends
	// no system prompt.
	Prompt PromptSource

	// NumWorkers is the number of turn event publishing workers.
	NumWorkers uint

	// ShutdownTimeout bounds how long Shutdown waits for open streams.
	ShutdownTimeout time.Duration
}

// PromptSource returns the current system prompt.
type PromptSource interface {
	Prompt() string
}
