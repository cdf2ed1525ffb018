// Package ranking orders candidate strings by semantic similarity to a
// query. Query and candidates are embedded as a single batch so one
// ranking call costs at most one provider round trip, and repeated calls
// with the same inputs are served entirely from the embedding cache.
package ranking

import (
	"context"
	"fmt"
	"sort"

	"github.com/c360/sousschef/errors"
	"github.com/c360/sousschef/pkg/embedding"
)

// EmbeddingSource supplies vectors for a batch of texts.
// *embedding.TieredCache satisfies this.
type EmbeddingSource interface {
	GetOrCompute(ctx context.Context, texts []string) ([][]float32, error)
}

// Result pairs a candidate with its similarity score. Scores are cosine
// similarities in [-1, 1].
type Result struct {
	Item  string  `json:"item"`
	Score float64 `json:"score"`
}

// Ranker scores candidates against a query using cached embeddings.
type Ranker struct {
	source EmbeddingSource
}

// NewRanker creates a ranker backed by the given embedding source.
func NewRanker(source EmbeddingSource) (*Ranker, error) {
	if source == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "ranking", "NewRanker", "embedding source is required")
	}
	return &Ranker{source: source}, nil
}

// TopN returns the n candidates most similar to query, best first.
// The result holds min(n, len(candidates)) entries. Ties keep input
// order. Embedding failures propagate to the caller, which owns any
// fallback (such as keeping the original candidate order).
func (r *Ranker) TopN(ctx context.Context, query string, candidates []string, n int) ([]Result, error) {
	if n <= 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: n must be positive, got %d", errors.ErrInvalidData, n),
			"ranking", "TopN", "argument validation")
	}
	if len(candidates) == 0 {
		return []Result{}, nil
	}

	// One batch: query first, candidates after, in input order.
	texts := make([]string, 0, len(candidates)+1)
	texts = append(texts, query)
	texts = append(texts, candidates...)

	vectors, err := r.source.GetOrCompute(ctx, texts)
	if err != nil {
		return nil, errors.Wrap(err, "ranking", "TopN", "embedding batch")
	}
	if len(vectors) != len(texts) {
		return nil, errors.WrapTransient(
			fmt.Errorf("embedding source returned %d vectors for %d texts", len(vectors), len(texts)),
			"ranking", "TopN", "embedding batch")
	}

	queryVector := vectors[0]
	results := make([]Result, len(candidates))
	for i, candidate := range candidates {
		results[i] = Result{
			Item:  candidate,
			Score: embedding.CosineSimilarity(queryVector, vectors[i+1]),
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if n < len(results) {
		results = results[:n]
	}
	return results, nil
}
