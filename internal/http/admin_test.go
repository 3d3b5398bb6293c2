package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aicarousel/gateway/internal/domain"
)

type fakeCredStore struct {
	records []*domain.ApiKeyRecord
	revoked map[int64]bool
	deleted map[int64]bool
}

func (f *fakeCredStore) Create(ctx context.Context, name string) (string, *domain.ApiKeyRecord, error) {
	record := &domain.ApiKeyRecord{ID: int64(len(f.records) + 1), Name: name, IsActive: true, KeyHash: "deadbeef"}
	f.records = append(f.records, record)
	return "sk-generated", record, nil
}

func (f *fakeCredStore) Validate(ctx context.Context, presented string) (*domain.ApiKeyRecord, error) {
	return nil, domain.ErrAuthentication
}

func (f *fakeCredStore) List(ctx context.Context) ([]*domain.ApiKeyRecord, error) {
	return f.records, nil
}

func (f *fakeCredStore) Revoke(ctx context.Context, id int64) error {
	if f.revoked == nil {
		f.revoked = map[int64]bool{}
	}
	f.revoked[id] = true
	return nil
}

func (f *fakeCredStore) Delete(ctx context.Context, id int64) error {
	if f.deleted == nil {
		f.deleted = map[int64]bool{}
	}
	f.deleted[id] = true
	return nil
}

type fakeSettingsStore struct {
	settings []domain.ProviderSetting
}

func (f *fakeSettingsStore) List(ctx context.Context) ([]domain.ProviderSetting, error) {
	return f.settings, nil
}

func (f *fakeSettingsStore) Upsert(ctx context.Context, setting domain.ProviderSetting) error {
	f.settings = append(f.settings, setting)
	return nil
}

type fakeModelsConfig struct {
	snapshot domain.ModelsConfigSnapshot
	lastOp   string
}

func newFakeModelsConfig() *fakeModelsConfig {
	return &fakeModelsConfig{snapshot: domain.ModelsConfigSnapshot{
		"openai": {Default: "gpt-4", Models: []string{"gpt-4"}},
	}}
}

func (f *fakeModelsConfig) Read(ctx context.Context) (domain.ModelsConfigSnapshot, error) {
	return f.snapshot.Clone(), nil
}

func (f *fakeModelsConfig) Save(ctx context.Context, snapshot domain.ModelsConfigSnapshot) error {
	f.snapshot = snapshot
	return nil
}

func (f *fakeModelsConfig) AddModel(ctx context.Context, providerKey, model string) error {
	f.lastOp = "add"
	cfg := f.snapshot[providerKey]
	cfg.Models = append(cfg.Models, model)
	f.snapshot[providerKey] = cfg
	return nil
}

func (f *fakeModelsConfig) RemoveModel(ctx context.Context, providerKey, model string) error {
	f.lastOp = "remove"
	return nil
}

func (f *fakeModelsConfig) SetDefault(ctx context.Context, providerKey, model string) error {
	f.lastOp = "setDefault"
	cfg := f.snapshot[providerKey]
	cfg.Default = model
	f.snapshot[providerKey] = cfg
	return nil
}

func (f *fakeModelsConfig) ToggleFallback(ctx context.Context, providerKey string, desired *bool) (bool, error) {
	f.lastOp = "toggleFallback"
	return true, nil
}

func (f *fakeModelsConfig) ReorderModels(ctx context.Context, providerKey string, newOrder []string) error {
	f.lastOp = "reorder"
	return nil
}

func (f *fakeModelsConfig) UpdateModel(ctx context.Context, providerKey, oldName, newName string) error {
	f.lastOp = "rename"
	return nil
}

func newTestAdminHandler() (*AdminHandler, *fakeCredStore, *fakeSettingsStore, *fakeModelsConfig) {
	creds := &fakeCredStore{}
	settings := &fakeSettingsStore{}
	models := newFakeModelsConfig()
	return NewAdminHandler(creds, settings, models), creds, settings, models
}

func TestAdminHandleKeys_CreateAndList(t *testing.T) {
	handler, _, _, _ := newTestAdminHandler()

	body, _ := json.Marshal(map[string]string{"name": "ci-bot"})
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/keys", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.HandleKeys(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"key":"sk-generated"`)
	require.NotContains(t, w.Body.String(), "deadbeef")

	req = httptest.NewRequest(http.MethodGet, "/v1/admin/keys", nil)
	w = httptest.NewRecorder()
	handler.HandleKeys(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"ci-bot"`)
	require.NotContains(t, w.Body.String(), "deadbeef")
}

func TestAdminHandleKeyByID_RevokeAndDelete(t *testing.T) {
	handler, creds, _, _ := newTestAdminHandler()

	req := httptest.NewRequest(http.MethodPatch, "/v1/admin/keys/7", nil)
	w := httptest.NewRecorder()
	handler.HandleKeyByID(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, creds.revoked[7])

	req = httptest.NewRequest(http.MethodDelete, "/v1/admin/keys/7", nil)
	w = httptest.NewRecorder()
	handler.HandleKeyByID(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, creds.deleted[7])
}

func TestAdminHandleKeyByID_InvalidIDRejected(t *testing.T) {
	handler, _, _, _ := newTestAdminHandler()

	req := httptest.NewRequest(http.MethodDelete, "/v1/admin/keys/not-a-number", nil)
	w := httptest.NewRecorder()
	handler.HandleKeyByID(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminHandleProviders_UpsertThenList(t *testing.T) {
	handler, _, settings, _ := newTestAdminHandler()

	body, _ := json.Marshal(domain.ProviderSetting{ProviderKey: "openai", IsEnabled: true, Priority: 1})
	req := httptest.NewRequest(http.MethodPatch, "/v1/admin/providers", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.HandleProviders(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, settings.settings, 1)

	req = httptest.NewRequest(http.MethodGet, "/v1/admin/providers", nil)
	w = httptest.NewRecorder()
	handler.HandleProviders(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"openai"`)
}

func TestAdminHandleModels_AddDispatchesToStore(t *testing.T) {
	handler, _, _, models := newTestAdminHandler()

	body, _ := json.Marshal(modelsPatchRequest{Op: "add", ProviderKey: "openai", Model: "gpt-4o"})
	req := httptest.NewRequest(http.MethodPatch, "/v1/admin/models", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.HandleModels(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "add", models.lastOp)
}

func TestAdminHandleModels_UnknownOpRejected(t *testing.T) {
	handler, _, _, _ := newTestAdminHandler()

	body, _ := json.Marshal(modelsPatchRequest{Op: "explode", ProviderKey: "openai"})
	req := httptest.NewRequest(http.MethodPatch, "/v1/admin/models", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.HandleModels(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
