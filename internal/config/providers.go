package config

import "github.com/aicarousel/gateway/internal/domain"

// KnownProviders is the process-lifetime list of upstreams the gateway
// knows how to build an adapter for. A provider only becomes an
// ActiveProvider (see registry.Registry) once its API key env var is set
// and it has at least one model configured in the models file.
var KnownProviders = []domain.ProviderDescriptor{
	{
		Key:           "openai",
		Name:          "OpenAI",
		APIKeyEnvName: "OPENAI_API_KEY",
		Kind:          domain.AdapterKindOpenAICompat,
		BaseURL:       "https://api.openai.com/v1",
	},
	{
		Key:           "cerebras",
		Name:          "Cerebras",
		APIKeyEnvName: "CEREBRAS_API_KEY",
		Kind:          domain.AdapterKindOpenAICompat,
		BaseURL:       "https://api.cerebras.ai/v1",
	},
	{
		Key:           "groq",
		Name:          "Groq",
		APIKeyEnvName: "GROQ_API_KEY",
		Kind:          domain.AdapterKindOpenAICompat,
		BaseURL:       "https://api.groq.com/openai/v1",
	},
	{
		Key:           "openrouter",
		Name:          "OpenRouter",
		APIKeyEnvName: "OPENROUTER_API_KEY",
		Kind:          domain.AdapterKindOpenAICompat,
		BaseURL:       "https://openrouter.ai/api/v1",
	},
	{
		Key:           "gemini",
		Name:          "Google Gemini",
		APIKeyEnvName: "GEMINI_API_KEY",
		Kind:          domain.AdapterKindGoogle,
		BaseURL:       "https://generativelanguage.googleapis.com/v1beta",
	},
	{
		Key:           "ollama",
		Name:          "Ollama (local)",
		APIKeyEnvName: "OLLAMA_API_KEY",
		Kind:          domain.AdapterKindLocalHTTP,
		BaseURL:       "http://localhost:11434/v1",
	},
}
