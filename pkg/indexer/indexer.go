// Package indexer builds the vector index from a CSV corpus.
package indexer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/ragline/ragline/pkg/embedder"
	"github.com/ragline/ragline/pkg/vector"
)

// ContentColumn is the CSV column holding the chunk text. Every other
// column becomes metadata on the indexed document.
const ContentColumn = "context"

// Indexer embeds CSV rows and upserts them into the vector store.
type Indexer struct {
	embedder  embedder.Embedder
	store     vector.Store
	batchSize int
}

// New creates an indexer. batchSize controls how many rows are embedded and
// upserted per round trip (default: 64).
func New(e embedder.Embedder, store vector.Store, batchSize int) *Indexer {
	if batchSize <= 0 {
		batchSize = 64
	}
	return &Indexer{embedder: e, store: store, batchSize: batchSize}
}

// IndexFile indexes a CSV file and returns the number of indexed rows.
func (ix *Indexer) IndexFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open corpus %s: %w", path, err)
	}
	defer f.Close()
	return ix.Index(ctx, f)
}

// Index indexes CSV content from r.
func (ix *Indexer) Index(ctx context.Context, r io.Reader) (int, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read CSV header: %w", err)
	}

	contentCol := -1
	for i, name := range header {
		if name == ContentColumn {
			contentCol = i
			break
		}
	}
	if contentCol < 0 {
		return 0, fmt.Errorf("CSV has no %q column", ContentColumn)
	}

	total := 0
	batch := make([]vector.Document, 0, ix.batchSize)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return total, fmt.Errorf("failed to read CSV row: %w", err)
		}

		content := record[contentCol]
		if content == "" {
			continue
		}

		metadata := make(map[string]string)
		for i, value := range record {
			if i == contentCol || i >= len(header) || value == "" {
				continue
			}
			metadata[header[i]] = value
		}

		batch = append(batch, vector.Document{
			ID:       uuid.New().String(),
			Content:  content,
			Metadata: metadata,
		})

		if len(batch) >= ix.batchSize {
			if err := ix.flush(ctx, batch); err != nil {
				return total, err
			}
			total += len(batch)
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		if err := ix.flush(ctx, batch); err != nil {
			return total, err
		}
		total += len(batch)
	}

	slog.Info("indexing complete", "documents", total)
	return total, nil
}

func (ix *Indexer) flush(ctx context.Context, batch []vector.Document) error {
	texts := make([]string, len(batch))
	for i, doc := range batch {
		texts[i] = doc.Content
	}

	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed batch: %w", err)
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(batch))
	}
	for i := range batch {
		batch[i].Vector = vectors[i]
	}

	if err := ix.store.Upsert(ctx, batch); err != nil {
		return fmt.Errorf("failed to upsert batch: %w", err)
	}
	return nil
}
