// Package openaicompat implements domain.UpstreamAdapter for any upstream
// that speaks the OpenAI chat-completions wire format: OpenAI itself,
// Cerebras, Groq, and OpenRouter all fit this shape, differing only in
// base URL and API key. It uses the official OpenAI SDK the way the
// teacher's single-provider adapter did, generalized to a parameterized
// base URL.
package openaicompat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/aicarousel/gateway/internal/domain"
	"github.com/aicarousel/gateway/internal/observability"
)

const defaultTimeout = 60 * time.Second

// Config parameterizes one openai_compat upstream.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// Adapter is a domain.UpstreamAdapter for one (provider, model) pair.
type Adapter struct {
	client openai.Client
	model  string
}

// New builds an Adapter from cfg. APIKey is required; BaseURL, when empty,
// defaults to the SDK's own default (OpenAI's public API).
func New(cfg Config) (*Adapter, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openaicompat: API key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("openaicompat: model is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(timeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}

	return &Adapter{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
	}, nil
}

// Chat implements domain.UpstreamAdapter.
func (a *Adapter) Chat(ctx context.Context, messages []domain.ChatMessage) (domain.ChatStream, error) {
	logger := observability.FromContext(ctx)
	logger.Debug("calling openai-compatible upstream", observability.String("model", a.model))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(a.model),
		Messages: toSDKMessages(messages),
	}

	stream := a.client.Chat.Completions.NewStreaming(ctx, params)

	chunks := make(chan domain.StreamChunk)

	go func() {
		defer close(chunks)

		for stream.Next() {
			current := stream.Current()
			if len(current.Choices) == 0 {
				continue
			}

			delta := current.Choices[0].Delta.Content
			if delta != "" {
				select {
				case chunks <- domain.StreamChunk{Text: delta}:
				case <-ctx.Done():
					return
				}
			}
		}

		if err := stream.Err(); err != nil && !errors.Is(err, io.EOF) {
			logger.Warn("openai-compatible stream error", observability.Error(err))
			select {
			case chunks <- domain.StreamChunk{Err: fmt.Errorf("openaicompat: stream error: %w", err)}:
			case <-ctx.Done():
			}
		}
	}()

	return chunks, nil
}

func toSDKMessages(messages []domain.ChatMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case "system":
			out[i] = openai.SystemMessage(msg.Content)
		case "assistant":
			out[i] = openai.AssistantMessage(msg.Content)
		default:
			out[i] = openai.UserMessage(msg.Content)
		}
	}
	return out
}

var _ domain.UpstreamAdapter = (*Adapter)(nil)
