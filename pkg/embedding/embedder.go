// Package embedding provides embedding generation and two-tier caching for
// semantic recipe retrieval.
//
// The Embedder interface abstracts the batch text-to-vector provider. The
// TieredCache memoizes provider results under a canonical batch key: a
// shared NATS JetStream KV tier first, falling back permanently to a
// process-local map when the remote tier becomes unavailable.
package embedding

import "context"

// Embedder generates vector embeddings for text.
//
// Implementations wrap different providers behind a consistent interface.
// All operations are batch-shaped, following OpenAI API patterns; for a
// single text, pass a slice with one element.
type Embedder interface {
	// Generate creates embeddings for the given texts.
	//
	// Returns one vector per input text, in input order. No implicit
	// retries; callers own their fallback policy.
	Generate(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the dimensionality of embeddings produced by this
	// embedder. For example, text-embedding-3-small produces
	// 1536-dimensional vectors.
	Dimensions() int

	// Model returns the model identifier used by this embedder.
	Model() string

	// Close releases any resources held by the embedder. For HTTP
	// providers this is typically a no-op.
	Close() error
}
