package keyword

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryRanksByTermFrequency(t *testing.T) {
	a := New()
	a.Index(Document{ID: "1", Title: "Go concurrency patterns", Snippet: "goroutines and channels"})
	a.Index(Document{ID: "2", Title: "Go goroutines goroutines goroutines", Snippet: "scheduling"})
	a.Index(Document{ID: "3", Title: "Cooking recipes", Snippet: "pasta and sauce"})

	results, err := a.Query(context.Background(), "goroutines", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "2", results[0].SourceID, "document with higher term frequency should rank first")
	assert.Equal(t, 1.0, results[0].Score, "top result is normalized to 1.0")
}

func TestQueryRespectsTopK(t *testing.T) {
	a := New()
	a.Index(Document{ID: "1", Title: "alpha"})
	a.Index(Document{ID: "2", Title: "alpha"})
	a.Index(Document{ID: "3", Title: "alpha"})

	results, err := a.Query(context.Background(), "alpha", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestQueryTieBreaksByDocumentIDAscending(t *testing.T) {
	a := New()
	a.Index(Document{ID: "b", Title: "shared term"})
	a.Index(Document{ID: "a", Title: "shared term"})

	results, err := a.Query(context.Background(), "shared term", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].SourceID)
	assert.Equal(t, "b", results[1].SourceID)
}

func TestQueryWithNoMatchesReturnsEmpty(t *testing.T) {
	a := New()
	a.Index(Document{ID: "1", Title: "unrelated content"})

	results, err := a.Query(context.Background(), "nonexistent", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestQueryReturnsErrorWhenContextAlreadyCanceled(t *testing.T) {
	a := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Query(ctx, "anything", 10)
	assert.Error(t, err)
}

func TestIndexReplaceKeepsLatestDocumentFieldsForStaleTerms(t *testing.T) {
	a := New()
	a.Index(Document{ID: "1", Title: "old title"})
	a.Index(Document{ID: "1", Title: "new wording entirely"})

	results, err := a.Query(context.Background(), "old", 10)
	require.NoError(t, err)
	require.Len(t, results, 1, "re-indexing appends to the term index rather than clearing prior postings")
	assert.Equal(t, "new wording entirely", results[0].Title, "the document record itself is fully replaced")
}
