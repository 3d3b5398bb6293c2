// Package dispatch implements the ChatHandler dispatch core: provider
// round-robin selection, per-provider model fallback, cross-provider
// failover, and first-chunk stream validation.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/aicarousel/gateway/internal/domain"
	"github.com/aicarousel/gateway/internal/observability"
)

// DefaultFirstChunkTimeout bounds how long tryModel waits for an upstream's
// first chunk before treating the attempt as failed.
const DefaultFirstChunkTimeout = 30 * time.Second

// Handler is the dispatch core. Its only mutable state is a process-wide
// round-robin index, advanced with sync/atomic so concurrent dispatches
// never need a lock around the algorithm itself.
type Handler struct {
	registry domain.ProviderRegistry
	builder  domain.AdapterBuilder

	nextIndex uint64 // atomic

	firstChunkTimeout time.Duration
}

// New creates a Handler. firstChunkTimeout of zero uses DefaultFirstChunkTimeout.
func New(registry domain.ProviderRegistry, builder domain.AdapterBuilder, firstChunkTimeout time.Duration) *Handler {
	if firstChunkTimeout <= 0 {
		firstChunkTimeout = DefaultFirstChunkTimeout
	}
	return &Handler{
		registry:          registry,
		builder:           builder,
		firstChunkTimeout: firstChunkTimeout,
	}
}

// Dispatch runs the round-robin + fallback algorithm and returns a
// validated ChatResult, or domain.ErrNoProviders / domain.ErrAllFailed.
func (h *Handler) Dispatch(ctx context.Context, messages []domain.ChatMessage) (*domain.ChatResult, error) {
	actives, err := h.registry.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("dispatch: listing active providers: %w", err)
	}
	if len(actives) == 0 {
		return nil, domain.ErrNoProviders
	}

	logger := observability.FromContext(ctx)
	n := len(actives)
	start := int(atomic.LoadUint64(&h.nextIndex) % uint64(n))

	var lastErr error
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		p := actives[idx]

		result, err := h.tryProvider(ctx, p, messages)
		if result != nil {
			atomic.StoreUint64(&h.nextIndex, uint64((idx+1)%n))
			return result, nil
		}
		if err != nil {
			logger.Warn("provider attempt failed",
				observability.String("provider", p.Key),
				observability.Error(err),
			)
			lastErr = err
		}
	}

	return nil, fmt.Errorf("%w: %s", domain.ErrAllFailed, upstreamMessage(lastErr))
}

// upstreamMessage strips tryModel's own "dispatch: provider/model:" wrapping
// so the client sees the message of the last observed upstream error, not
// dispatch's routing metadata.
func upstreamMessage(err error) string {
	if err == nil {
		return "unknown error"
	}
	if cause := errors.Unwrap(err); cause != nil {
		return cause.Error()
	}
	return err.Error()
}

// tryProvider attempts each of p's fallback-ordered models in turn, per the
// §4.3 algorithm: without fallback enabled, only the default model is
// attempted.
func (h *Handler) tryProvider(ctx context.Context, p domain.ActiveProvider, messages []domain.ChatMessage) (*domain.ChatResult, error) {
	var lastErr error

	for _, model := range p.FallbackOrder() {
		adapter, err := h.builder.Build(p.Key, model)
		if err != nil {
			lastErr = err
			if !p.EnableFallback {
				break
			}
			continue
		}

		result, err := h.tryModel(ctx, adapter, p, model, messages)
		if result != nil {
			return result, nil
		}
		if err != nil {
			lastErr = err
		}
		if !p.EnableFallback {
			break
		}
	}

	return nil, lastErr
}

// tryModel opens the adapter's stream and validates its first chunk before
// handing the result to the caller: an empty (immediately-closed) or
// immediately-erroring stream counts as a failed attempt and falls through
// to the next model or provider.
func (h *Handler) tryModel(ctx context.Context, adapter domain.UpstreamAdapter, p domain.ActiveProvider, model string, messages []domain.ChatMessage) (*domain.ChatResult, error) {
	// adapter.Chat runs on a context armed to cancel at the first-chunk
	// deadline, so a stalled upstream request is actually released at that
	// boundary instead of running on against the adapter's own internal
	// timeout. context.WithTimeout can't have its deadline lifted once set,
	// so the deadline is built from an explicit cancel wired to a stoppable
	// timer: the timer is stopped, not left to fire, once the first chunk
	// arrives, which is what lets long streams run past firstChunkTimeout
	// uninterrupted.
	streamCtx, cancel := context.WithCancel(ctx)
	timer := time.AfterFunc(h.firstChunkTimeout, cancel)

	stream, err := adapter.Chat(streamCtx, messages)
	if err != nil {
		timer.Stop()
		cancel()
		return nil, fmt.Errorf("dispatch: %s/%s: %w", p.Key, model, err)
	}

	select {
	case first, ok := <-stream:
		timer.Stop()
		if !ok {
			cancel()
			return nil, fmt.Errorf("dispatch: %s/%s: empty response", p.Key, model)
		}
		if first.Err != nil {
			cancel()
			return nil, fmt.Errorf("dispatch: %s/%s: %w", p.Key, model, first.Err)
		}

		return &domain.ChatResult{
			Stream:      prepend(first, stream),
			ServiceName: p.Name,
			Model:       model,
			ProviderKey: p.Key,
		}, nil

	case <-streamCtx.Done():
		timer.Stop()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("dispatch: %s/%s: timed out waiting for first chunk", p.Key, model)
	}
}

// prepend reconstitutes the stream after having consumed its first chunk to
// validate it: the caller still receives every chunk, in order.
func prepend(first domain.StreamChunk, rest domain.ChatStream) domain.ChatStream {
	out := make(chan domain.StreamChunk)
	go func() {
		defer close(out)
		out <- first
		for chunk := range rest {
			out <- chunk
		}
	}()
	return out
}
