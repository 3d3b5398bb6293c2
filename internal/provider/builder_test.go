package provider_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aicarousel/gateway/internal/domain"
	"github.com/aicarousel/gateway/internal/provider"
)

var testDescriptors = []domain.ProviderDescriptor{
	{Key: "cerebras", Name: "Cerebras", APIKeyEnvName: "CEREBRAS_API_KEY", Kind: domain.AdapterKindOpenAICompat, BaseURL: "https://api.cerebras.ai/v1"},
	{Key: "gemini", Name: "Gemini", APIKeyEnvName: "GEMINI_API_KEY", Kind: domain.AdapterKindGoogle},
	{Key: "ollama", Name: "Ollama", APIKeyEnvName: "OLLAMA_API_KEY", Kind: domain.AdapterKindLocalHTTP, BaseURL: "http://localhost:11434/v1"},
}

func TestBuilder_Build_UnknownProvider(t *testing.T) {
	b := provider.NewBuilder(testDescriptors)
	_, err := b.Build("nonexistent", "some-model")
	require.Error(t, err)
}

func TestBuilder_Build_OpenAICompat_RequiresAPIKey(t *testing.T) {
	t.Setenv("CEREBRAS_API_KEY", "")
	b := provider.NewBuilder(testDescriptors)
	_, err := b.Build("cerebras", "llama-3.3-70b")
	require.Error(t, err)
}

func TestBuilder_Build_OpenAICompat_Succeeds(t *testing.T) {
	t.Setenv("CEREBRAS_API_KEY", "test-key")
	b := provider.NewBuilder(testDescriptors)
	adapter, err := b.Build("cerebras", "llama-3.3-70b")
	require.NoError(t, err)
	require.NotNil(t, adapter)
}

func TestBuilder_Build_Google_Succeeds(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	b := provider.NewBuilder(testDescriptors)
	adapter, err := b.Build("gemini", "gemini-2.0-flash")
	require.NoError(t, err)
	require.NotNil(t, adapter)
}

func TestBuilder_Build_LocalHTTP_AllowsEmptyAPIKey(t *testing.T) {
	t.Setenv("OLLAMA_API_KEY", "")
	b := provider.NewBuilder(testDescriptors)
	adapter, err := b.Build("ollama", "llama3")
	require.NoError(t, err)
	require.NotNil(t, adapter)
}
