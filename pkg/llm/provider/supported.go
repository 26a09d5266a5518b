package provider

import (
	"fmt"

	"github.com/papercomputeco/lincode/pkg/llm"
	"github.com/papercomputeco/lincode/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/lincode/pkg/llm/provider/ollama"
)

// Supported provider type constants
const (
	Anthropic = "anthropic"
	Ollama    = "ollama"
)

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{Anthropic, Ollama}
}

// New creates a Completer for the given provider type.
// Returns an error if the provider type is not recognized.
func New(providerType string, cfg Config) (llm.Completer, error) {
	switch providerType {
	case Anthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%s provider requires an API key", Anthropic)
		}
		return anthropic.New(cfg.Upstream, cfg.APIKey, cfg.HTTPClient, cfg.Logger), nil
	case Ollama:
		return ollama.New(cfg.Upstream, cfg.HTTPClient, cfg.Logger), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %q (supported: %v)", providerType, SupportedProviders())
	}
}
