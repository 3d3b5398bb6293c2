// Package provider wires the known provider descriptors to concrete
// domain.UpstreamAdapter constructions, dispatching on AdapterKind.
package provider

import (
	"fmt"
	"os"
	"strings"

	"github.com/aicarousel/gateway/internal/domain"
	"github.com/aicarousel/gateway/internal/provider/google"
	"github.com/aicarousel/gateway/internal/provider/localhttp"
	"github.com/aicarousel/gateway/internal/provider/openaicompat"
)

// Builder is a domain.AdapterBuilder over the fixed set of known provider
// descriptors, resolving API keys from the process environment.
type Builder struct {
	descriptors map[string]domain.ProviderDescriptor
	envLookup   func(string) string
}

// NewBuilder indexes descriptors by key for fast Build lookups.
func NewBuilder(descriptors []domain.ProviderDescriptor) *Builder {
	byKey := make(map[string]domain.ProviderDescriptor, len(descriptors))
	for _, d := range descriptors {
		byKey[d.Key] = d
	}
	return &Builder{descriptors: byKey, envLookup: os.Getenv}
}

// Build constructs the UpstreamAdapter for providerKey's configured kind,
// targeting model.
func (b *Builder) Build(providerKey, model string) (domain.UpstreamAdapter, error) {
	desc, ok := b.descriptors[providerKey]
	if !ok {
		return nil, &domain.ConfigError{ProviderKey: providerKey, Reason: "unknown provider"}
	}

	apiKey := strings.TrimSpace(b.envLookup(desc.APIKeyEnvName))

	switch desc.Kind {
	case domain.AdapterKindOpenAICompat:
		return openaicompat.New(openaicompat.Config{
			APIKey:  apiKey,
			BaseURL: desc.BaseURL,
			Model:   model,
		})

	case domain.AdapterKindGoogle:
		return google.New(google.Config{
			APIKey:  apiKey,
			BaseURL: desc.BaseURL,
			Model:   model,
		})

	case domain.AdapterKindLocalHTTP:
		return localhttp.New(localhttp.Config{
			APIKey:  apiKey,
			BaseURL: desc.BaseURL,
			Model:   model,
		})

	default:
		return nil, fmt.Errorf("provider: unknown adapter kind %q for %s", desc.Kind, providerKey)
	}
}

var _ domain.AdapterBuilder = (*Builder)(nil)
