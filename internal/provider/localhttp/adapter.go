// Package localhttp implements domain.UpstreamAdapter for a local,
// OpenAI-compatible HTTP server (an Ollama-style endpoint), where an API
// key is optional. It reuses the openaicompat adapter directly: the wire
// format is identical, only the auth requirement differs.
package localhttp

import (
	"errors"

	"github.com/aicarousel/gateway/internal/provider/openaicompat"
)

const placeholderAPIKey = "local"

// Config parameterizes one local OpenAI-compatible upstream.
type Config struct {
	APIKey  string // optional
	BaseURL string // required, e.g. http://localhost:11434/v1
	Model   string
}

// New builds an adapter over a local OpenAI-compatible server. When APIKey
// is empty a placeholder is sent, since the SDK requires a non-empty
// bearer token even when the server doesn't check it.
func New(cfg Config) (*openaicompat.Adapter, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("localhttp: base URL is required")
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = placeholderAPIKey
	}

	return openaicompat.New(openaicompat.Config{
		APIKey:  apiKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
	})
}
