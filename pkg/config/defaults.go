package config

const (
	defaultListen       = ":7777"
	defaultTarget       = "http://localhost:7777"
	defaultStallTimeout = "2m"

	defaultProvider  = "ollama"
	defaultUpstream  = "http://localhost:11434"
	defaultModel     = "llama3.2"
	defaultMaxTokens = 4096

	defaultStorageDriver = "memory"

	defaultEventStreamProvider = "nop"
	defaultEventStreamTopic    = "lincode.turns"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Server: ServerConfig{
			Listen: defaultListen,
		},
		Client: ClientConfig{
			Target:       defaultTarget,
			StallTimeout: defaultStallTimeout,
		},
		LLM: LLMConfig{
			Provider:  defaultProvider,
			Upstream:  defaultUpstream,
			Model:     defaultModel,
			MaxTokens: defaultMaxTokens,
		},
		Storage: StorageConfig{
			Driver: defaultStorageDriver,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Topic:    defaultEventStreamTopic,
		},
	}
}
