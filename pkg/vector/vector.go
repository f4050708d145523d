// Package vector provides the vector store abstraction and its backends.
package vector

import "context"

// Document is a unit of indexed content.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string
	Vector   []float32
}

// Hit is a single search result. Distance follows the L2 convention for
// unit vectors: lower is closer, and similarity = 1 - distance/2.
type Hit struct {
	ID       string
	Content  string
	Metadata map[string]string
	Distance float64
}

// Store is a vector index.
type Store interface {
	// Upsert adds or replaces documents.
	Upsert(ctx context.Context, docs []Document) error

	// Search returns up to topK nearest hits, closest first.
	Search(ctx context.Context, vector []float32, topK int) ([]Hit, error)

	// Count returns the number of indexed documents.
	Count(ctx context.Context) (int, error)

	// Reset drops all indexed documents.
	Reset(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
