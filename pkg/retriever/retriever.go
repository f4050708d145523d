// Package retriever performs similarity search over the vector index.
package retriever

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ragline/ragline/pkg/embedder"
	"github.com/ragline/ragline/pkg/vector"
)

// Result is a retrieved chunk with its similarity score.
type Result struct {
	Content    string
	Metadata   map[string]string
	Similarity float64
}

// Config tunes retrieval.
type Config struct {
	// TopK is the number of candidates fetched from the store (default: 3).
	TopK int

	// Threshold is the minimum similarity to keep a hit. The caller resolves
	// defaults; 0 keeps every candidate.
	Threshold float64
}

// Retriever embeds a query and searches the vector store.
type Retriever struct {
	embedder  embedder.Embedder
	store     vector.Store
	topK      int
	threshold float64
}

// New creates a retriever.
func New(e embedder.Embedder, store vector.Store, cfg Config) *Retriever {
	topK := cfg.TopK
	if topK <= 0 {
		topK = 3
	}
	return &Retriever{embedder: e, store: store, topK: topK, threshold: cfg.Threshold}
}

// Search embeds the query, fetches the topK nearest chunks and keeps those at
// or above the similarity threshold, in rank order. For unit vectors the store
// distance maps to similarity as 1 - distance/2. An empty result is not an
// error.
func (r *Retriever) Search(ctx context.Context, query string) ([]Result, error) {
	queryVector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := r.store.Search(ctx, queryVector, r.topK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		similarity := 1 - hit.Distance/2
		if similarity < r.threshold {
			continue
		}
		results = append(results, Result{
			Content:    hit.Content,
			Metadata:   hit.Metadata,
			Similarity: similarity,
		})
	}

	slog.Debug("retrieval complete",
		"query_len", len(query),
		"candidates", len(hits),
		"kept", len(results))
	return results, nil
}
