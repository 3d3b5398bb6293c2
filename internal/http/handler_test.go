package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aicarousel/gateway/internal/dispatch"
	"github.com/aicarousel/gateway/internal/domain"
)

type emptyRegistry struct{}

func (emptyRegistry) ListActive(ctx context.Context) ([]domain.ActiveProvider, error) {
	return nil, nil
}

type noopBuilder struct{}

func (noopBuilder) Build(providerKey, model string) (domain.UpstreamAdapter, error) {
	return nil, nil
}

func newTestHandler() *Handler {
	h := dispatch.New(emptyRegistry{}, noopBuilder{}, 0)
	return NewHandler(h, nil)
}

func TestHandleHealth(t *testing.T) {
	handler := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	handler.HandleHealth(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Equal(t, "ok", body["status"])
	require.Equal(t, "aicarousel", body["service"])
}

func TestHandleModelsList_IncludesAicarousel(t *testing.T) {
	handler := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	w := httptest.NewRecorder()

	handler.HandleModelsList(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"id":"aicarousel"`)
}

func TestHandleModelDetail_EchoesID(t *testing.T) {
	handler := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/v1/models/gpt-4", nil)
	w := httptest.NewRecorder()

	handler.HandleModelDetail(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"id":"gpt-4"`)
}

func TestHandleChatCompletions_NoProvidersReturns503(t *testing.T) {
	handler := newTestHandler()

	body, _ := json.Marshal(map[string]any{
		"model":    "gpt-4",
		"messages": []map[string]string{{"role": "user", "content": "hi"}},
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.HandleChatCompletions(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandleChatCompletions_MissingMessagesReturns400(t *testing.T) {
	handler := newTestHandler()

	body, _ := json.Marshal(map[string]any{"model": "gpt-4"})
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.HandleChatCompletions(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleMessages_MissingMaxTokensReturns400(t *testing.T) {
	handler := newTestHandler()

	body, _ := json.Marshal(map[string]any{
		"model":    "claude-3-5-sonnet",
		"messages": []map[string]string{{"role": "user", "content": "hi"}},
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.HandleMessages(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleCountTokens_EstimatesFromCharCount(t *testing.T) {
	handler := newTestHandler()

	body, _ := json.Marshal(map[string]any{
		"messages": []map[string]string{{"role": "user", "content": "12345678"}},
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/messages/count_tokens", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.HandleCountTokens(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"input_tokens":2`)
}
