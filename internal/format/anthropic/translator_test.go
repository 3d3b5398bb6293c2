package anthropic_test

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aicarousel/gateway/internal/domain"
	"github.com/aicarousel/gateway/internal/format/anthropic"
)

func chatResult(chunks ...domain.StreamChunk) *domain.ChatResult {
	ch := make(chan domain.StreamChunk, len(chunks))
	for _, c := range chunks {
		ch <- c
	}
	close(ch)
	return &domain.ChatResult{Stream: ch, Model: "claude-3-5-sonnet", ServiceName: "Anthropic", ProviderKey: "anthropic"}
}

func TestWriteStream_EndsWithMessageStop(t *testing.T) {
	rec := httptest.NewRecorder()
	result := chatResult(domain.StreamChunk{Text: "hi"}, domain.StreamChunk{Text: " there"})

	err := anthropic.WriteStream(rec, rec, result)
	require.NoError(t, err)

	body := rec.Body.String()
	require.Equal(t, 1, strings.Count(body, "event: message_stop"))
	require.True(t, strings.HasSuffix(strings.TrimRight(body, "\n"), `data: {}`))
	require.Contains(t, body, "event: message_start")
	require.Contains(t, body, "event: content_block_start")
	require.Contains(t, body, "event: content_block_delta")
	require.Contains(t, body, "event: content_block_stop")
	require.Contains(t, body, "event: message_delta")
}

func TestToDomainMessages_RequiresMaxTokens(t *testing.T) {
	req := anthropic.ChatRequest{}
	_, err := req.ToDomainMessages()
	require.ErrorIs(t, err, anthropic.ErrMissingMaxTokens)
}

func TestToDomainMessages_FlattensSystemAndContentBlocks(t *testing.T) {
	raw := []byte(`{
		"max_tokens": 1024,
		"system": "be terse",
		"messages": [
			{"role": "user", "content": [{"type": "text", "text": "part one"}, {"type": "text", "text": "part two"}]}
		]
	}`)

	var parsed anthropic.ChatRequest
	require.NoError(t, json.Unmarshal(raw, &parsed))

	msgs, err := parsed.ToDomainMessages()
	require.NoError(t, err)
	require.Equal(t, []domain.ChatMessage{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "part one\npart two"},
	}, msgs)
}

func TestCollect_SetsStopReason(t *testing.T) {
	result := chatResult(domain.StreamChunk{Text: "answer"})
	msg, err := anthropic.Collect(result)
	require.NoError(t, err)
	require.NotNil(t, msg.StopReason)
	require.Equal(t, "end_turn", *msg.StopReason)
}
