package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aicarousel/gateway/internal/domain"
	"github.com/aicarousel/gateway/internal/provider/registry"
)

type fakeSettingsStore struct {
	settings []domain.ProviderSetting
}

func (f *fakeSettingsStore) List(_ context.Context) ([]domain.ProviderSetting, error) {
	return f.settings, nil
}

func (f *fakeSettingsStore) Upsert(_ context.Context, setting domain.ProviderSetting) error {
	f.settings = append(f.settings, setting)
	return nil
}

type fakeModelsConfig struct {
	snapshot domain.ModelsConfigSnapshot
}

func (f *fakeModelsConfig) Read(_ context.Context) (domain.ModelsConfigSnapshot, error) {
	return f.snapshot, nil
}
func (f *fakeModelsConfig) Save(_ context.Context, s domain.ModelsConfigSnapshot) error {
	f.snapshot = s
	return nil
}
func (f *fakeModelsConfig) AddModel(_ context.Context, _, _ string) error { return nil }
func (f *fakeModelsConfig) RemoveModel(_ context.Context, _, _ string) error { return nil }
func (f *fakeModelsConfig) SetDefault(_ context.Context, _, _ string) error { return nil }
func (f *fakeModelsConfig) ToggleFallback(_ context.Context, _ string, _ *bool) (bool, error) {
	return false, nil
}
func (f *fakeModelsConfig) ReorderModels(_ context.Context, _ string, _ []string) error { return nil }
func (f *fakeModelsConfig) UpdateModel(_ context.Context, _, _, _ string) error { return nil }

var descriptors = []domain.ProviderDescriptor{
	{Key: "cerebras", Name: "Cerebras", APIKeyEnvName: "CEREBRAS_API_KEY", Kind: domain.AdapterKindOpenAICompat},
	{Key: "groq", Name: "Groq", APIKeyEnvName: "GROQ_API_KEY", Kind: domain.AdapterKindOpenAICompat},
	{Key: "gemini", Name: "Gemini", APIKeyEnvName: "GEMINI_API_KEY", Kind: domain.AdapterKindGoogle},
}

func TestListActive_FiltersByAPIKeyPresence(t *testing.T) {
	t.Setenv("CEREBRAS_API_KEY", "present")
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	models := &fakeModelsConfig{snapshot: domain.ModelsConfigSnapshot{
		"cerebras": {Default: "llama-3.3-70b", Models: []string{"llama-3.3-70b"}},
		"groq":     {Default: "mixtral", Models: []string{"mixtral"}},
	}}
	reg := registry.New(descriptors, &fakeSettingsStore{}, models)

	actives, err := reg.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, actives, 1)
	require.Equal(t, "cerebras", actives[0].Key)
}

func TestListActive_FiltersByModelsConfigured(t *testing.T) {
	t.Setenv("CEREBRAS_API_KEY", "present")
	t.Setenv("GROQ_API_KEY", "present")
	t.Setenv("GEMINI_API_KEY", "")

	models := &fakeModelsConfig{snapshot: domain.ModelsConfigSnapshot{
		"cerebras": {Default: "llama-3.3-70b", Models: []string{"llama-3.3-70b"}},
	}}
	reg := registry.New(descriptors, &fakeSettingsStore{}, models)

	actives, err := reg.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, actives, 1)
	require.Equal(t, "cerebras", actives[0].Key)
}

func TestListActive_FiltersByEnabledSetting(t *testing.T) {
	t.Setenv("CEREBRAS_API_KEY", "present")
	t.Setenv("GROQ_API_KEY", "present")
	t.Setenv("GEMINI_API_KEY", "")

	models := &fakeModelsConfig{snapshot: domain.ModelsConfigSnapshot{
		"cerebras": {Default: "llama-3.3-70b", Models: []string{"llama-3.3-70b"}},
		"groq":     {Default: "mixtral", Models: []string{"mixtral"}},
	}}
	settings := &fakeSettingsStore{settings: []domain.ProviderSetting{
		{ProviderKey: "groq", IsEnabled: false, Priority: 0},
	}}
	reg := registry.New(descriptors, settings, models)

	actives, err := reg.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, actives, 1)
	require.Equal(t, "cerebras", actives[0].Key)
}

func TestListActive_SortsByPriority(t *testing.T) {
	t.Setenv("CEREBRAS_API_KEY", "present")
	t.Setenv("GROQ_API_KEY", "present")
	t.Setenv("GEMINI_API_KEY", "")

	models := &fakeModelsConfig{snapshot: domain.ModelsConfigSnapshot{
		"cerebras": {Default: "llama-3.3-70b", Models: []string{"llama-3.3-70b"}},
		"groq":     {Default: "mixtral", Models: []string{"mixtral"}},
	}}
	settings := &fakeSettingsStore{settings: []domain.ProviderSetting{
		{ProviderKey: "cerebras", IsEnabled: true, Priority: 5},
		{ProviderKey: "groq", IsEnabled: true, Priority: 1},
	}}
	reg := registry.New(descriptors, settings, models)

	actives, err := reg.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, actives, 2)
	require.Equal(t, "groq", actives[0].Key)
	require.Equal(t, "cerebras", actives[1].Key)
}

func TestListActive_EqualPriorityTiesBrokenByInsertionOrder(t *testing.T) {
	t.Setenv("CEREBRAS_API_KEY", "present")
	t.Setenv("GROQ_API_KEY", "present")
	t.Setenv("GEMINI_API_KEY", "")

	models := &fakeModelsConfig{snapshot: domain.ModelsConfigSnapshot{
		"cerebras": {Default: "llama-3.3-70b", Models: []string{"llama-3.3-70b"}},
		"groq":     {Default: "mixtral", Models: []string{"mixtral"}},
	}}
	// groq was inserted first (lower ID) despite coming later in the static
	// descriptor list, so a descriptor-array-position tie-break would
	// (wrongly) put cerebras first; insertion order must put groq first.
	settings := &fakeSettingsStore{settings: []domain.ProviderSetting{
		{ID: 2, ProviderKey: "cerebras", IsEnabled: true, Priority: 5},
		{ID: 1, ProviderKey: "groq", IsEnabled: true, Priority: 5},
	}}
	reg := registry.New(descriptors, settings, models)

	actives, err := reg.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, actives, 2)
	require.Equal(t, "groq", actives[0].Key)
	require.Equal(t, "cerebras", actives[1].Key)
}

func TestListActive_SettingslessProvidersSortLast(t *testing.T) {
	t.Setenv("CEREBRAS_API_KEY", "present")
	t.Setenv("GROQ_API_KEY", "present")
	t.Setenv("GEMINI_API_KEY", "")

	models := &fakeModelsConfig{snapshot: domain.ModelsConfigSnapshot{
		"cerebras": {Default: "llama-3.3-70b", Models: []string{"llama-3.3-70b"}},
		"groq":     {Default: "mixtral", Models: []string{"mixtral"}},
	}}
	settings := &fakeSettingsStore{settings: []domain.ProviderSetting{
		{ProviderKey: "groq", IsEnabled: true, Priority: 99},
	}}
	reg := registry.New(descriptors, settings, models)

	actives, err := reg.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, actives, 2)
	require.Equal(t, "groq", actives[0].Key)
	require.Equal(t, "cerebras", actives[1].Key)
}
