// Package webtool exposes web search as a model-callable tool.
package webtool

import (
	"context"
	"fmt"
	"strings"

	"github.com/ragline/ragline/pkg/tool"
)

// NoResultsMessage is returned verbatim when the search yields nothing.
const NoResultsMessage = "No web results found for the given query."

// Searcher is the web search dependency. It never fails; outages yield an
// empty result set.
type Searcher interface {
	Search(ctx context.Context, query string) []string
}

// WebTool searches the web for the model.
type WebTool struct {
	searcher Searcher
}

// New creates the web_search tool.
func New(searcher Searcher) *WebTool {
	return &WebTool{searcher: searcher}
}

// Definition returns the schema advertised to the model.
func (t *WebTool) Definition() tool.Definition {
	return tool.Definition{
		Name:        "web_search",
		Description: "Search the web for current information. Use when the knowledge base has no relevant documents.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query",
				},
			},
			"required": []string{"query"},
		},
	}
}

// Call runs the search and formats the snippets as a numbered list.
func (t *WebTool) Call(ctx context.Context, args map[string]any) (string, error) {
	query := tool.StringArg(args, "query")
	if query == "" {
		return NoResultsMessage, nil
	}

	snippets := t.searcher.Search(ctx, query)
	if len(snippets) == 0 {
		return NoResultsMessage, nil
	}

	blocks := make([]string, 0, len(snippets))
	for i, snippet := range snippets {
		blocks = append(blocks, fmt.Sprintf("Result %d:\n%s", i+1, strings.TrimSpace(snippet)))
	}
	return strings.Join(blocks, "\n\n"), nil
}

// Ensure WebTool implements CallableTool.
var _ tool.CallableTool = (*WebTool)(nil)
