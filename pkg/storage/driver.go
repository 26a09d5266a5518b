// Package storage defines how chat session history is persisted.
package storage

import (
	"context"

	"github.com/papercomputeco/lincode/pkg/llm"
)

// Driver persists the message history of chat sessions. A session that was
// never written to has an empty history.
type Driver interface {
	// Append adds a message to the end of the session's history.
	Append(ctx context.Context, sessionID string, msg llm.Message) error

	// History returns the session's messages, oldest first.
	History(ctx context.Context, sessionID string) ([]llm.Message, error)

	// PopLast removes the newest message of the session if its role matches
	// role. It reports whether a message was removed.
	PopLast(ctx context.Context, sessionID, role string) (bool, error)

	// Delete removes the session and its whole history. Deleting an unknown
	// session is a no-op.
	Delete(ctx context.Context, sessionID string) error

	// Close closes the store and releases any resources.
	Close() error
}
