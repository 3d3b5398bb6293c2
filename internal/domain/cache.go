package domain

import (
	"context"
	"time"
)

// CompletionCache is the §4.7 enrichment: an optional, best-effort,
// non-streaming-only response cache in front of the dispatch core. A miss
// (including any backend error) always falls through to the dispatch core;
// it never turns into a request failure.
type CompletionCache interface {
	// Get retrieves a cached response for a semantically similar message
	// list.
	Get(ctx context.Context, messages []ChatMessage) (*CachedCompletion, error)

	// Set stores a completed response text with its embedding.
	Set(ctx context.Context, messages []ChatMessage, text string, ttl time.Duration) error
}

// EmbeddingGenerator creates vector embeddings from text.
type EmbeddingGenerator interface {
	Generate(ctx context.Context, text string) ([]float64, error)
	Name() string
	Dimension() int
}

// SimilaritySearch performs vector similarity search operations.
type SimilaritySearch interface {
	Search(ctx context.Context, embedding []float64, threshold float64, limit int) ([]*SearchResult, error)
	Index(ctx context.Context, key string, embedding []float64, data []byte, ttl time.Duration) error
}

// CachedCompletion is a cache hit: the collected text of a prior response
// plus how confident the match was.
type CachedCompletion struct {
	Text            string
	CachedAt        time.Time
	SimilarityScore float64
}

// SearchResult represents a vector search result.
type SearchResult struct {
	Key        string
	Similarity float64
	Data       []byte
	IndexedAt  time.Time
}
