// Package provider constructs the model backends a lincode server can stream
// replies from.
package provider

import (
	"net/http"

	"go.uber.org/zap"
)

// Config holds the settings shared by every provider.
type Config struct {
	// Upstream is the provider's base URL. Each provider has its own default.
	Upstream string

	// APIKey authenticates against hosted providers.
	APIKey string

	// HTTPClient defaults to a client without a timeout, since replies
	// stream for as long as the model generates.
	HTTPClient *http.Client

	Logger *zap.Logger
}
