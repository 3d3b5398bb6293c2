package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aicarousel/gateway/internal/observability"
)

// ErrCacheMiss indicates no cached entry was found above the similarity
// threshold.
var ErrCacheMiss = errors.New("cache miss")

// CompletionCacheService implements CompletionCache using embeddings and
// vector similarity search. Callers that want caching disabled use the
// no-op implementation in package cache instead, so dispatch code never
// has to nil-check the cache.
type CompletionCacheService struct {
	embeddingGen     EmbeddingGenerator
	similaritySearch SimilaritySearch
	threshold        float64
}

// NewCompletionCacheService creates a new completion cache service.
func NewCompletionCacheService(
	embeddingGen EmbeddingGenerator,
	similaritySearch SimilaritySearch,
	threshold float64,
) *CompletionCacheService {
	return &CompletionCacheService{
		embeddingGen:     embeddingGen,
		similaritySearch: similaritySearch,
		threshold:        threshold,
	}
}

// Get retrieves a cached response for a semantically similar message list.
func (s *CompletionCacheService) Get(ctx context.Context, messages []ChatMessage) (*CachedCompletion, error) {
	logger := observability.FromContext(ctx)

	queryText := buildQueryText(messages)

	embedding, err := s.embeddingGen.Generate(ctx, queryText)
	if err != nil {
		logger.Warn("completion cache embedding failed", observability.Error(err))
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	results, err := s.similaritySearch.Search(ctx, embedding, s.threshold, 1)
	if err != nil {
		logger.Warn("completion cache search failed", observability.Error(err))
		return nil, fmt.Errorf("failed to search similar vectors: %w", err)
	}

	if len(results) == 0 {
		return nil, ErrCacheMiss
	}

	var stored cachedPayload
	if unmarshalErr := json.Unmarshal(results[0].Data, &stored); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal cached response: %w", unmarshalErr)
	}

	return &CachedCompletion{
		Text:            stored.Text,
		CachedAt:        results[0].IndexedAt,
		SimilarityScore: results[0].Similarity,
	}, nil
}

// Set stores a response's collected text with its embedding.
func (s *CompletionCacheService) Set(ctx context.Context, messages []ChatMessage, text string, ttl time.Duration) error {
	logger := observability.FromContext(ctx)

	queryText := buildQueryText(messages)

	embedding, err := s.embeddingGen.Generate(ctx, queryText)
	if err != nil {
		logger.Warn("completion cache embedding failed on store", observability.Error(err))
		return fmt.Errorf("failed to generate embedding: %w", err)
	}

	data, err := json.Marshal(cachedPayload{Text: text})
	if err != nil {
		return fmt.Errorf("failed to marshal cached payload: %w", err)
	}

	cacheKey := cacheKeyFor(queryText)
	if indexErr := s.similaritySearch.Index(ctx, cacheKey, embedding, data, ttl); indexErr != nil {
		logger.Warn("completion cache index failed", observability.Error(indexErr))
		return fmt.Errorf("failed to index in cache: %w", indexErr)
	}

	return nil
}

// cachedPayload is the JSON shape stored alongside each cache entry's
// embedding.
type cachedPayload struct {
	Text string `json:"text"`
}

// buildQueryText constructs a consistent text representation of the
// message list for embedding.
func buildQueryText(messages []ChatMessage) string {
	parts := make([]string, 0, len(messages))
	for _, msg := range messages {
		parts = append(parts, fmt.Sprintf("%s: %s", msg.Role, msg.Content))
	}
	return strings.Join(parts, " | ")
}

// cacheKeyFor creates a unique cache key from query text.
func cacheKeyFor(queryText string) string {
	hash := sha256.Sum256([]byte(queryText))
	return "cache:" + hex.EncodeToString(hash[:])
}
