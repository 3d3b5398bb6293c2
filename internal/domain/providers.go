package domain

import "time"

// AdapterKind tags which UpstreamAdapter variant a provider uses.
type AdapterKind string

const (
	// AdapterKindOpenAICompat covers any upstream speaking the OpenAI
	// chat-completions wire format (OpenAI itself, Cerebras, Groq,
	// OpenRouter, ...).
	AdapterKindOpenAICompat AdapterKind = "openai_compat"

	// AdapterKindGoogle covers Google's Gemini generateContent shape,
	// which separates the system prompt from the turn list.
	AdapterKindGoogle AdapterKind = "google"

	// AdapterKindLocalHTTP is the OpenAI-compatible shape targeting a
	// fixed local base URL (e.g. an Ollama-style local server), where an
	// API key is optional.
	AdapterKindLocalHTTP AdapterKind = "local_http"
)

// ProviderDescriptor is the process-lifetime, build-time description of one
// known upstream: which env var carries its key, which adapter variant
// talks to it, and its default base URL.
type ProviderDescriptor struct {
	Key           string
	Name          string
	APIKeyEnvName string
	Kind          AdapterKind
	BaseURL       string
}

// ProviderModelConfig is the persisted, validated per-provider model list
// that drives intra-provider fallback order.
type ProviderModelConfig struct {
	Default        string   `json:"default"`
	EnableFallback bool     `json:"enableFallback"`
	Models         []string `json:"models"`
}

// ProviderSetting is the persisted enable flag and priority for one
// provider key. ID reflects insertion order (row creation order), which is
// what priority ties resolve on.
type ProviderSetting struct {
	ID          int64
	ProviderKey string
	IsEnabled   bool
	Priority    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ActiveProvider is a provider eligible to serve a request right now: it
// has API-key material, is enabled, and has at least one configured model.
// It is derived fresh on every ProviderRegistry query and never cached
// across requests.
type ActiveProvider struct {
	Key            string
	Name           string
	Models         []string
	DefaultModel   string
	EnableFallback bool
	Priority       int
}

// FallbackOrder returns the models this provider should attempt, in order:
// the default first, then the rest of the configured list (excluding the
// default) in list order, if fallback is enabled — otherwise just the
// default.
func (p ActiveProvider) FallbackOrder() []string {
	if !p.EnableFallback {
		return []string{p.DefaultModel}
	}

	order := make([]string, 0, len(p.Models))
	order = append(order, p.DefaultModel)
	for _, m := range p.Models {
		if m != p.DefaultModel {
			order = append(order, m)
		}
	}
	return order
}
