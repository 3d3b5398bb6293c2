// Package anthropic translates the internal chat-chunk stream into
// Anthropic's Messages wire format: a fixed SSE event sequence for
// streaming requests, and a single collected Message object otherwise.
package anthropic

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/aicarousel/gateway/internal/domain"
)

const idHexChars = 24

// ErrMissingMaxTokens is returned when an inbound request omits the
// required (but never forwarded) max_tokens field.
var ErrMissingMaxTokens = errors.New("anthropic: max_tokens is required")

// rawMessage's content is either a plain string or a list of
// {type, text, ...} blocks in the wire format; json.RawMessage defers the
// choice to flattenContent.
type rawMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// ChatRequest is the inbound Anthropic-style request body.
type ChatRequest struct {
	Model     string          `json:"model"`
	Messages  []rawMessage    `json:"messages"`
	System    json.RawMessage `json:"system"`
	MaxTokens *int            `json:"max_tokens"`
	Stream    bool            `json:"stream"`
}

type contentBlockUnit struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ToDomainMessages implements the §4.5.3 input normalization: content
// blocks/strings are flattened to plain text, and a top-level system field
// is prepended as a ChatMessage{role: "system"}. max_tokens is validated as
// present but never forwarded upstream.
func (r ChatRequest) ToDomainMessages() ([]domain.ChatMessage, error) {
	if r.MaxTokens == nil {
		return nil, ErrMissingMaxTokens
	}

	var out []domain.ChatMessage

	if len(r.System) > 0 {
		systemText, err := flattenContent(r.System)
		if err != nil {
			return nil, fmt.Errorf("anthropic: parsing system field: %w", err)
		}
		if systemText != "" {
			out = append(out, domain.ChatMessage{Role: "system", Content: systemText})
		}
	}

	for _, m := range r.Messages {
		text, err := flattenContent(m.Content)
		if err != nil {
			return nil, fmt.Errorf("anthropic: parsing message content: %w", err)
		}
		out = append(out, domain.ChatMessage{Role: m.Role, Content: text})
	}

	return out, nil
}

// flattenContent accepts either a JSON string or a list of content blocks,
// keeping only type:"text" blocks and joining them with "\n".
func flattenContent(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString, nil
	}

	var blocks []contentBlockUnit
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return "", err
	}

	texts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b.Type == "text" {
			texts = append(texts, b.Text)
		}
	}
	return strings.Join(texts, "\n"), nil
}

type messageEnvelope struct {
	ID           string        `json:"id"`
	Type         string        `json:"type"`
	Role         string        `json:"role"`
	Model        string        `json:"model"`
	Content      []textContent `json:"content"`
	StopReason   *string       `json:"stop_reason"`
	StopSequence *string       `json:"stop_sequence"`
	Usage        usageBlock    `json:"usage"`
}

type textContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type usageBlock struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// WriteStream renders result's stream as the fixed Anthropic SSE event
// sequence, flushing after each event.
func WriteStream(w http.ResponseWriter, flusher http.Flusher, result *domain.ChatResult) error {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	id := "msg_" + randomHex(idHexChars)

	if err := writeEvent(w, "message_start", map[string]any{
		"message": messageEnvelope{
			ID: id, Type: "message", Role: "assistant", Model: result.Model,
			Content: []textContent{}, Usage: usageBlock{},
		},
	}); err != nil {
		return err
	}
	flusher.Flush()

	if err := writeEvent(w, "content_block_start", map[string]any{
		"index":         0,
		"content_block": textContent{Type: "text", Text: ""},
	}); err != nil {
		return err
	}
	flusher.Flush()

	outputTokens := 0
	for chunk := range result.Stream {
		if chunk.Err != nil {
			return chunk.Err
		}
		if chunk.Text == "" {
			continue
		}

		outputTokens += estimateTokens(chunk.Text)
		if err := writeEvent(w, "content_block_delta", map[string]any{
			"index": 0,
			"delta": map[string]string{"type": "text_delta", "text": chunk.Text},
		}); err != nil {
			return err
		}
		flusher.Flush()
	}

	if err := writeEvent(w, "content_block_stop", map[string]any{"index": 0}); err != nil {
		return err
	}
	flusher.Flush()

	if err := writeEvent(w, "message_delta", map[string]any{
		"delta": map[string]any{"stop_reason": "end_turn", "stop_sequence": nil},
		"usage": usageBlock{OutputTokens: outputTokens},
	}); err != nil {
		return err
	}
	flusher.Flush()

	if err := writeEvent(w, "message_stop", map[string]any{}); err != nil {
		return err
	}
	flusher.Flush()

	return nil
}

func writeEvent(w http.ResponseWriter, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("anthropic: encoding %s event: %w", name, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}

// Collect drains result's stream and builds the non-streaming Message
// object.
func Collect(result *domain.ChatResult) (*messageEnvelope, error) {
	var sb strings.Builder
	for chunk := range result.Stream {
		if chunk.Err != nil {
			return nil, chunk.Err
		}
		sb.WriteString(chunk.Text)
	}

	content := sb.String()
	outputTokens := estimateTokens(content)
	stopReason := "end_turn"

	return &messageEnvelope{
		ID: "msg_" + randomHex(idHexChars), Type: "message", Role: "assistant", Model: result.Model,
		Content:    []textContent{{Type: "text", Text: content}},
		StopReason: &stopReason,
		Usage:      usageBlock{OutputTokens: outputTokens},
	}, nil
}

// WriteMessage JSON-encodes a Collect result.
func WriteMessage(w http.ResponseWriter, m *messageEnvelope) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(m)
}

// WriteError writes an Anthropic-style error response:
// {type: "error", error: {type, message}}.
func WriteError(w http.ResponseWriter, status int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type": "error",
		"error": map[string]string{
			"type":    errType,
			"message": message,
		},
	})
}

func estimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return int(math.Ceil(float64(len(text)) / 4))
}

func randomHex(n int) string {
	buf := make([]byte, (n+1)/2)
	if _, err := rand.Read(buf); err != nil {
		return strings.Repeat("0", n)
	}
	return hex.EncodeToString(buf)[:n]
}
