// Package doctool exposes document retrieval as a model-callable tool.
package doctool

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ragline/ragline/pkg/retriever"
	"github.com/ragline/ragline/pkg/tool"
)

const (
	// NoDocumentsMessage is returned verbatim when retrieval finds nothing.
	NoDocumentsMessage = "No relevant documents found for the given query."

	// ErrorPrefix starts the message the model sees when retrieval fails.
	ErrorPrefix = "Error retrieving documents: "
)

// Searcher is the retrieval dependency.
type Searcher interface {
	Search(ctx context.Context, query string) ([]retriever.Result, error)
}

// DocTool retrieves documents from the knowledge base for the model.
type DocTool struct {
	searcher Searcher
}

// New creates the retrieve_documents tool.
func New(searcher Searcher) *DocTool {
	return &DocTool{searcher: searcher}
}

// Definition returns the schema advertised to the model.
func (t *DocTool) Definition() tool.Definition {
	return tool.Definition{
		Name:        "retrieve_documents",
		Description: "Search the internal knowledge base for documents relevant to a query. Returns the matching document contents with their metadata.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query, reformulated to be standalone",
				},
			},
			"required": []string{"query"},
		},
	}
}

// Call runs retrieval and formats the results for the model. Retrieval
// failures are reported as content, not as a Go error, so the model can
// react to them.
func (t *DocTool) Call(ctx context.Context, args map[string]any) (string, error) {
	query := tool.StringArg(args, "query")
	if query == "" {
		return ErrorPrefix + "query is required", nil
	}

	results, err := t.searcher.Search(ctx, query)
	if err != nil {
		return ErrorPrefix + err.Error(), nil
	}
	if len(results) == 0 {
		return NoDocumentsMessage, nil
	}

	return Format(results), nil
}

// Format renders results as 1-indexed document blocks:
//
//	Document 1:
//	page: 1 | source: file1.pdf
//	<content>
//
// The metadata line is omitted when a result has no metadata. Keys are
// sorted so the output is deterministic.
func Format(results []retriever.Result) string {
	blocks := make([]string, 0, len(results))
	for i, res := range results {
		var b strings.Builder
		fmt.Fprintf(&b, "Document %d:\n", i+1)
		if line := metadataLine(res.Metadata); line != "" {
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString(strings.TrimSpace(res.Content))
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

func metadataLine(metadata map[string]string) string {
	if len(metadata) == 0 {
		return ""
	}
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s: %s", k, metadata[k]))
	}
	return strings.Join(pairs, " | ")
}

// Ensure DocTool implements CallableTool.
var _ tool.CallableTool = (*DocTool)(nil)
