// Package openai translates the internal chat-chunk stream into the OpenAI
// chat-completions wire format, both as text/event-stream SSE frames and as
// a single collected JSON object for non-streaming requests.
package openai

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/aicarousel/gateway/internal/domain"
)

const idHexChars = 24

// ChatMessage mirrors the OpenAI request message shape.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the inbound OpenAI-style request body.
type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// ToDomainMessages passes messages through unchanged aside from role
// preservation, per §4.5.3.
func (r ChatRequest) ToDomainMessages() []domain.ChatMessage {
	out := make([]domain.ChatMessage, len(r.Messages))
	for i, m := range r.Messages {
		out[i] = domain.ChatMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

type streamDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

type streamChoice struct {
	Index        int         `json:"index"`
	Delta        streamDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason"`
}

type streamFrame struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []streamChoice `json:"choices"`
}

// WriteStream renders result's stream as OpenAI SSE frames onto w, flushing
// after each frame, and terminates with a literal "data: [DONE]\n\n".
func WriteStream(w http.ResponseWriter, flusher http.Flusher, result *domain.ChatResult, now time.Time) error {
	id := "chatcmpl-" + randomHex(idHexChars)
	created := now.Unix()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	first := true
	for chunk := range result.Stream {
		if chunk.Err != nil {
			return chunk.Err
		}

		delta := streamDelta{Content: chunk.Text}
		if first {
			delta.Role = "assistant"
			first = false
		}

		if err := writeFrame(w, streamFrame{
			ID: id, Object: "chat.completion.chunk", Created: created, Model: result.Model,
			Choices: []streamChoice{{Index: 0, Delta: delta}},
		}); err != nil {
			return err
		}
		flusher.Flush()
	}

	finish := "stop"
	if err := writeFrame(w, streamFrame{
		ID: id, Object: "chat.completion.chunk", Created: created, Model: result.Model,
		Choices: []streamChoice{{Index: 0, Delta: streamDelta{}, FinishReason: &finish}},
	}); err != nil {
		return err
	}
	flusher.Flush()

	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()

	return nil
}

func writeFrame(w http.ResponseWriter, frame streamFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("openai: encoding stream frame: %w", err)
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type completionChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type completion struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []completionChoice `json:"choices"`
	Usage   usage              `json:"usage"`
}

// Collect drains result's stream and builds the non-streaming completion
// object.
func Collect(result *domain.ChatResult, now time.Time) (*completion, error) {
	var sb strings.Builder
	for chunk := range result.Stream {
		if chunk.Err != nil {
			return nil, chunk.Err
		}
		sb.WriteString(chunk.Text)
	}

	content := sb.String()
	completionTokens := estimateTokens(content)

	return &completion{
		ID:      "chatcmpl-" + randomHex(idHexChars),
		Object:  "chat.completion",
		Created: now.Unix(),
		Model:   result.Model,
		Choices: []completionChoice{{
			Index:        0,
			Message:      ChatMessage{Role: "assistant", Content: content},
			FinishReason: "stop",
		}},
		Usage: usage{PromptTokens: 0, CompletionTokens: completionTokens, TotalTokens: completionTokens},
	}, nil
}

// WriteCompletion JSON-encodes a Collect result.
func WriteCompletion(w http.ResponseWriter, c *completion) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(c)
}

// errorBody is the OpenAI-style error envelope.
type errorBody struct {
	Error struct {
		Message string  `json:"message"`
		Type    string  `json:"type"`
		Param   *string `json:"param"`
		Code    string  `json:"code"`
	} `json:"error"`
}

// WriteError writes an OpenAI-style error response.
func WriteError(w http.ResponseWriter, status int, errType, code, message string) {
	body := errorBody{}
	body.Error.Message = message
	body.Error.Type = errType
	body.Error.Code = code

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
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
