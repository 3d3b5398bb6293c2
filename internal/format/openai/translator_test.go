package openai_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aicarousel/gateway/internal/domain"
	"github.com/aicarousel/gateway/internal/format/openai"
)

func chatResult(chunks ...domain.StreamChunk) *domain.ChatResult {
	ch := make(chan domain.StreamChunk, len(chunks))
	for _, c := range chunks {
		ch <- c
	}
	close(ch)
	return &domain.ChatResult{Stream: ch, Model: "llama-3.3-70b", ServiceName: "Cerebras", ProviderKey: "cerebras"}
}

func TestWriteStream_EndsWithDoneFrame(t *testing.T) {
	rec := httptest.NewRecorder()
	result := chatResult(domain.StreamChunk{Text: "hello"}, domain.StreamChunk{Text: " world"})

	err := openai.WriteStream(rec, rec, result, time.Unix(0, 0))
	require.NoError(t, err)

	body := rec.Body.String()
	require.Equal(t, 1, strings.Count(body, "data: [DONE]\n\n"))
	require.True(t, strings.HasSuffix(body, "data: [DONE]\n\n"))
	require.Contains(t, body, `"role":"assistant"`)
	require.Contains(t, body, `"finish_reason":"stop"`)
}

func TestToDomainMessages_PassesThrough(t *testing.T) {
	req := openai.ChatRequest{Messages: []openai.ChatMessage{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "hi"},
	}}
	msgs := req.ToDomainMessages()
	require.Equal(t, []domain.ChatMessage{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "hi"},
	}, msgs)
}

func TestCollect_EstimatesTokens(t *testing.T) {
	result := chatResult(domain.StreamChunk{Text: "12345678"})
	c, err := openai.Collect(result, time.Unix(0, 0))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, openai.WriteCompletion(rec, c))
	require.Contains(t, rec.Body.String(), `"completion_tokens":2`)
	require.Contains(t, rec.Body.String(), `"content":"12345678"`)
}
