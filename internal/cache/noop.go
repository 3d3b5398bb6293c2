// Package cache provides CompletionCache implementations: a Redis-backed
// vector cache (package redis) and this no-op fallback for when caching is
// disabled.
package cache

import (
	"context"
	"time"

	"github.com/aicarousel/gateway/internal/domain"
)

// Noop is a CompletionCache that always misses. It lets the dispatch and
// HTTP layers treat caching uniformly: a cache is always present, just
// sometimes uninteresting.
type Noop struct{}

// Get always reports a miss.
func (Noop) Get(ctx context.Context, messages []domain.ChatMessage) (*domain.CachedCompletion, error) {
	return nil, domain.ErrCacheMiss
}

// Set is a no-op.
func (Noop) Set(ctx context.Context, messages []domain.ChatMessage, text string, ttl time.Duration) error {
	return nil
}

var _ domain.CompletionCache = Noop{}
