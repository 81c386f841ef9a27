package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-run/retrieval-orchestrator/core"
)

func TestQueryParsesArticles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"articles":[{"id":"a1","headline":"h","summary":"s","url":"u","relevance":0.6,"published_at":"2026-01-01"}]}`))
	}))
	defer server.Close()

	adapter := New(Config{Endpoint: server.URL})
	evidence, err := adapter.Query(context.Background(), "query", 5)

	require.NoError(t, err)
	require.Len(t, evidence, 1)
	assert.Equal(t, "a1", evidence[0].SourceID)
	assert.Equal(t, "h", evidence[0].Title)
	assert.Equal(t, 0.6, evidence[0].Score)
}

func TestQueryClassifiesRateLimitedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	adapter := New(Config{Endpoint: server.URL})
	_, err := adapter.Query(context.Background(), "query", 5)

	var laneErr *core.LaneError
	require.ErrorAs(t, err, &laneErr)
	assert.Equal(t, core.ErrorKindRateLimited, laneErr.Kind)
}
