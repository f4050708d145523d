package doctool

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragline/ragline/pkg/retriever"
)

type stubSearcher struct {
	results []retriever.Result
	err     error
}

func (s *stubSearcher) Search(ctx context.Context, query string) ([]retriever.Result, error) {
	return s.results, s.err
}

func callTool(t *testing.T, s *stubSearcher) string {
	t.Helper()
	out, err := New(s).Call(context.Background(), map[string]any{"query": "sample"})
	require.NoError(t, err)
	return out
}

func TestCallFormatsDocumentsWithMetadata(t *testing.T) {
	out := callTool(t, &stubSearcher{results: []retriever.Result{
		{
			Content:  "This is a sample document about Go.",
			Metadata: map[string]string{"source": "file1.pdf", "page": "1"},
		},
		{
			Content:  "A second chunk.",
			Metadata: map[string]string{"source": "file2.pdf"},
		},
	}})

	assert.Contains(t, out, "Document 1:")
	assert.Contains(t, out, "Document 2:")
	assert.Contains(t, out, "page: 1 | source: file1.pdf")
	assert.Contains(t, out, "source: file2.pdf")
	assert.Contains(t, out, "This is a sample document about Go.")

	// Rank order is preserved.
	assert.Less(t, strings.Index(out, "Document 1:"), strings.Index(out, "Document 2:"))
}

func TestCallOmitsMetadataLineWhenEmpty(t *testing.T) {
	out := callTool(t, &stubSearcher{results: []retriever.Result{
		{Content: "No metadata here."},
	}})

	assert.Contains(t, out, "Document 1:")
	assert.NotContains(t, out, "|")
	assert.Equal(t, "Document 1:\nNo metadata here.", out)
}

func TestCallNoResultsSentinel(t *testing.T) {
	out := callTool(t, &stubSearcher{})
	assert.Equal(t, "No relevant documents found for the given query.", out)
}

func TestCallErrorBecomesContent(t *testing.T) {
	s := &stubSearcher{err: errors.New("vector store unavailable")}
	out, err := New(s).Call(context.Background(), map[string]any{"query": "sample"})
	require.NoError(t, err)
	assert.Equal(t, "Error retrieving documents: vector store unavailable", out)
}

func TestCallMissingQuery(t *testing.T) {
	out, err := New(&stubSearcher{}).Call(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "Error retrieving documents: query is required", out)
}
