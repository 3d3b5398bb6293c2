package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aicarousel/gateway/internal/dispatch"
	"github.com/aicarousel/gateway/internal/domain"
	anthropicfmt "github.com/aicarousel/gateway/internal/format/anthropic"
	openaifmt "github.com/aicarousel/gateway/internal/format/openai"
	"github.com/aicarousel/gateway/internal/observability"
)

// Handler serves the gateway's client-facing HTTP surface. It holds no
// dispatch logic of its own beyond request parsing, cache consultation, and
// response translation.
type Handler struct {
	dispatch *dispatch.Handler
	cache    domain.CompletionCache
	now      func() time.Time
}

// NewHandler creates a new HTTP handler (DI constructor).
func NewHandler(dispatchHandler *dispatch.Handler, cache domain.CompletionCache) *Handler {
	return &Handler{
		dispatch: dispatchHandler,
		cache:    cache,
		now:      time.Now,
	}
}

// HandleHealth answers the liveness probe.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "aicarousel"})
}

// HandleModelsList answers the public model catalog.
func (h *Handler) HandleModelsList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"object": "list",
		"data": []map[string]any{
			{"id": "aicarousel", "object": "model", "owned_by": "aicarousel"},
		},
	})
}

// HandleModelDetail echoes the requested model id.
func (h *Handler) HandleModelDetail(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/models/")
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "object": "model", "owned_by": "aicarousel"})
}

// HandleChatCompletions implements POST /v1/chat/completions.
func (h *Handler) HandleChatCompletions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.FromContext(ctx)

	var req openaifmt.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		openaifmt.WriteError(w, http.StatusBadRequest, "invalid_request_error", "invalid_json", err.Error())
		return
	}

	messages := req.ToDomainMessages()
	if len(messages) == 0 {
		openaifmt.WriteError(w, http.StatusBadRequest, "invalid_request_error", "missing_messages", "messages is required")
		return
	}

	if !req.Stream && h.cache != nil {
		if hit, err := h.cache.Get(ctx, messages); err == nil && hit != nil {
			writeJSON(w, http.StatusOK, map[string]any{
				"id": "chatcmpl-cache", "object": "chat.completion", "created": h.now().Unix(),
				"choices": []map[string]any{{
					"index":         0,
					"message":       map[string]string{"role": "assistant", "content": hit.Text},
					"finish_reason": "stop",
				}},
			})
			return
		}
	}

	result, err := h.dispatch.Dispatch(ctx, messages)
	if err != nil {
		writeOpenAIDispatchError(w, err)
		return
	}

	if req.Stream {
		flusher, ok := w.(http.Flusher)
		if !ok {
			openaifmt.WriteError(w, http.StatusInternalServerError, "internal_error", "streaming_unsupported", "response writer does not support streaming")
			return
		}
		if err := openaifmt.WriteStream(w, flusher, result, h.now()); err != nil {
			logger.Warn("stream write failed", observability.Error(err))
		}
		return
	}

	completion, err := openaifmt.Collect(result, h.now())
	if err != nil {
		writeOpenAIDispatchError(w, err)
		return
	}
	if h.cache != nil && len(completion.Choices) > 0 {
		if err := h.cache.Set(ctx, messages, completion.Choices[0].Message.Content, 0); err != nil {
			logger.Warn("completion cache set failed", observability.Error(err))
		}
	}
	if err := openaifmt.WriteCompletion(w, completion); err != nil {
		logger.Warn("write completion failed", observability.Error(err))
	}
}

// HandleMessages implements POST /v1/messages.
func (h *Handler) HandleMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.FromContext(ctx)

	var req anthropicfmt.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		anthropicfmt.WriteError(w, http.StatusBadRequest, "invalid_request_error", err.Error())
		return
	}

	messages, err := req.ToDomainMessages()
	if err != nil {
		anthropicfmt.WriteError(w, http.StatusBadRequest, "invalid_request_error", err.Error())
		return
	}

	result, err := h.dispatch.Dispatch(ctx, messages)
	if err != nil {
		writeAnthropicDispatchError(w, err)
		return
	}

	if req.Stream {
		flusher, ok := w.(http.Flusher)
		if !ok {
			anthropicfmt.WriteError(w, http.StatusInternalServerError, "api_error", "response writer does not support streaming")
			return
		}
		if err := anthropicfmt.WriteStream(w, flusher, result); err != nil {
			logger.Warn("stream write failed", observability.Error(err))
		}
		return
	}

	msg, err := anthropicfmt.Collect(result)
	if err != nil {
		writeAnthropicDispatchError(w, err)
		return
	}
	if err := anthropicfmt.WriteMessage(w, msg); err != nil {
		logger.Warn("write message failed", observability.Error(err))
	}
}

// HandleCountTokens implements POST /v1/messages/count_tokens.
func (h *Handler) HandleCountTokens(w http.ResponseWriter, r *http.Request) {
	var req anthropicfmt.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		anthropicfmt.WriteError(w, http.StatusBadRequest, "invalid_request_error", err.Error())
		return
	}
	if req.MaxTokens == nil {
		// max_tokens plays no part in counting; a placeholder lets the
		// shared normalization run without it.
		placeholder := 0
		req.MaxTokens = &placeholder
	}

	messages, err := req.ToDomainMessages()
	if err != nil {
		anthropicfmt.WriteError(w, http.StatusBadRequest, "invalid_request_error", err.Error())
		return
	}

	total := 0
	for _, m := range messages {
		total += len(m.Content)
	}

	writeJSON(w, http.StatusOK, map[string]int{"input_tokens": (total + 3) / 4})
}

// HandleRawChat implements POST /chat: a raw ChatMessage array in, an
// unframed text/event-stream of plain text deltas out.
func (h *Handler) HandleRawChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.FromContext(ctx)

	var messages []domain.ChatMessage
	if err := json.NewDecoder(r.Body).Decode(&messages); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(messages) == 0 {
		http.Error(w, "messages is required", http.StatusBadRequest)
		return
	}

	result, err := h.dispatch.Dispatch(ctx, messages)
	if err != nil {
		http.Error(w, err.Error(), dispatchErrorStatus(err))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for chunk := range result.Stream {
		if chunk.Err != nil {
			logger.Warn("raw chat stream failed", observability.Error(chunk.Err))
			return
		}
		if _, err := fmt.Fprint(w, chunk.Text); err != nil {
			return
		}
		flusher.Flush()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func dispatchErrorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrNoProviders), errors.Is(err, domain.ErrAllFailed):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeOpenAIDispatchError(w http.ResponseWriter, err error) {
	status := dispatchErrorStatus(err)
	openaifmt.WriteError(w, status, "api_error", "dispatch_failed", err.Error())
}

func writeAnthropicDispatchError(w http.ResponseWriter, err error) {
	status := dispatchErrorStatus(err)
	anthropicfmt.WriteError(w, status, "api_error", err.Error())
}
