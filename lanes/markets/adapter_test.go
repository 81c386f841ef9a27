package markets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-run/retrieval-orchestrator/core"
)

func TestQueryParsesQuotes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		w.Write([]byte(`{"quotes":[{"symbol":"ACME","description":"d","summary":"s","url":"u","confidence":0.9}]}`))
	}))
	defer server.Close()

	adapter := New(Config{Endpoint: server.URL, APIKey: "secret"})
	evidence, err := adapter.Query(context.Background(), "query", 5)

	require.NoError(t, err)
	require.Len(t, evidence, 1)
	assert.Equal(t, "ACME", evidence[0].SourceID)
	assert.Equal(t, 0.9, evidence[0].Score)
}

func TestQueryClassifiesAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	adapter := New(Config{Endpoint: server.URL})
	_, err := adapter.Query(context.Background(), "query", 5)

	var laneErr *core.LaneError
	require.ErrorAs(t, err, &laneErr)
	assert.Equal(t, core.ErrorKindAuth, laneErr.Kind)
}
