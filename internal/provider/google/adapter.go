// Package google implements domain.UpstreamAdapter for Google's Gemini
// generateContent API. No Google SDK appears anywhere in the retrieval
// pack, so this adapter speaks the documented REST+SSE shape directly over
// net/http, following the same lazy-channel streaming idiom the teacher
// uses for its OpenAI adapter.
package google

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aicarousel/gateway/internal/domain"
	"github.com/aicarousel/gateway/internal/observability"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultTimeout = 60 * time.Second
	sseDataPrefix  = "data: "
)

// Config parameterizes one Gemini upstream.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Adapter is a domain.UpstreamAdapter for one Gemini model.
type Adapter struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
}

// New builds an Adapter from cfg.
func New(cfg Config) (*Adapter, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("google: API key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("google: model is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Adapter{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      cfg.Model,
	}, nil
}

// generateContentRequest is Gemini's request shape: the system prompt is a
// separate top-level field, distinct from the turn-by-turn contents list.
type generateContentRequest struct {
	SystemInstruction *content  `json:"systemInstruction,omitempty"`
	Contents          []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateContentChunk struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Chat implements domain.UpstreamAdapter.
func (a *Adapter) Chat(ctx context.Context, messages []domain.ChatMessage) (domain.ChatStream, error) {
	logger := observability.FromContext(ctx)
	logger.Debug("calling Google generateContent upstream", observability.String("model", a.model))

	body, err := json.Marshal(toGeminiRequest(messages))
	if err != nil {
		return nil, fmt.Errorf("google: encoding request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse&key=%s", a.baseURL, a.model, a.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("google: building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("google: request failed: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		return nil, fmt.Errorf("google: upstream returned status %d", resp.StatusCode)
	}

	chunks := make(chan domain.StreamChunk)

	go func() {
		defer close(chunks)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, sseDataPrefix) {
				continue
			}

			payload := strings.TrimPrefix(line, sseDataPrefix)
			var chunk generateContentChunk
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				continue
			}

			for _, candidate := range chunk.Candidates {
				for _, p := range candidate.Content.Parts {
					if p.Text == "" {
						continue
					}
					select {
					case chunks <- domain.StreamChunk{Text: p.Text}:
					case <-ctx.Done():
						return
					}
				}
			}
		}

		if err := scanner.Err(); err != nil {
			logger.Warn("google stream error", observability.Error(err))
			select {
			case chunks <- domain.StreamChunk{Err: fmt.Errorf("google: stream error: %w", err)}:
			case <-ctx.Done():
			}
		}
	}()

	return chunks, nil
}

// toGeminiRequest separates any system message out of the turn list, since
// Gemini carries it in a dedicated field rather than as a "system" turn.
func toGeminiRequest(messages []domain.ChatMessage) generateContentRequest {
	req := generateContentRequest{}

	for _, msg := range messages {
		if msg.Role == "system" {
			req.SystemInstruction = &content{Parts: []part{{Text: msg.Content}}}
			continue
		}

		role := "user"
		if msg.Role == "assistant" {
			role = "model"
		}
		req.Contents = append(req.Contents, content{Role: role, Parts: []part{{Text: msg.Content}}})
	}

	return req
}

var _ domain.UpstreamAdapter = (*Adapter)(nil)
