package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchReturnsContentSnippets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req tavilyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "advanced", req.SearchDepth)
		assert.Equal(t, "latest news", req.Query)

		fmt.Fprint(w, `{"results":[
			{"content":"snippet one","url":"https://a"},
			{"content":"snippet two","url":"https://b"}
		]}`)
	}))
	defer srv.Close()

	c, err := New(Config{APIKey: "tvly-test", BaseURL: srv.URL})
	require.NoError(t, err)

	out := c.Search(context.Background(), "latest news")
	assert.Equal(t, []string{"snippet one", "snippet two"}, out)
}

func TestSearchCapsAtMaxResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[{"content":"a"},{"content":"b"},{"content":"c"}]}`)
	}))
	defer srv.Close()

	c, err := New(Config{APIKey: "tvly-test", BaseURL: srv.URL, MaxResults: 2})
	require.NoError(t, err)

	out := c.Search(context.Background(), "q")
	assert.Equal(t, []string{"a", "b"}, out)
}

func TestSearchSwallowsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := New(Config{APIKey: "tvly-test", BaseURL: srv.URL})
	require.NoError(t, err)

	assert.Empty(t, c.Search(context.Background(), "q"))
}

func TestSearchSwallowsUnreachableHost(t *testing.T) {
	c, err := New(Config{APIKey: "tvly-test", BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	assert.Empty(t, c.Search(context.Background(), "q"))
}
