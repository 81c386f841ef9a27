// Package vector implements the dense vector search lane adapter against
// a local vector store reachable over Redis: the store precomputes
// nearest-neighbor results per query fingerprint into a sorted set, and
// this adapter reads them back with ZREVRANGE.
package vector

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/lattice-run/retrieval-orchestrator/core"
	"github.com/lattice-run/retrieval-orchestrator/retrieval"
)

// Config points the adapter at the local vector service's Redis endpoint.
type Config struct {
	ServiceURL string
	KeyPrefix  string // default "vector:nn:"
}

// Adapter queries the local vector store.
type Adapter struct {
	client *redis.Client
	prefix string
}

// New parses ServiceURL as a Redis connection string and builds an
// Adapter. The connection is established lazily by go-redis on first use.
func New(cfg Config) (*Adapter, error) {
	opts, err := redis.ParseURL(cfg.ServiceURL)
	if err != nil {
		return nil, fmt.Errorf("vector: invalid service url: %w", err)
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "vector:nn:"
	}
	return &Adapter{client: redis.NewClient(opts), prefix: prefix}, nil
}

// Query implements lanes.Adapter. The vector store indexes results by
// SHA-fingerprinted query text into a sorted set whose score is cosine
// similarity; ZREVRANGEWITHSCORES returns nearest neighbors first.
func (a *Adapter) Query(ctx context.Context, text string, topK int) ([]retrieval.Evidence, error) {
	key := a.prefix + retrieval.Fingerprint(text, retrieval.LaneVector, topK)

	results, err := a.client.ZRevRangeWithScores(ctx, key, 0, int64(topK-1)).Result()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, core.NewLaneError(core.ErrorKindTransport, err)
	}

	fetchedAt := time.Now()
	evidence := make([]retrieval.Evidence, 0, len(results))
	for _, z := range results {
		member, ok := z.Member.(string)
		if !ok {
			return nil, core.NewLaneError(core.ErrorKindBadResponse, fmt.Errorf("vector store returned non-string member"))
		}
		evidence = append(evidence, retrieval.Evidence{
			Lane:      retrieval.LaneVector,
			SourceID:  member,
			Title:     member,
			Snippet:   "",
			Score:     z.Score,
			FetchedAt: fetchedAt,
		})
	}
	return evidence, nil
}

// Close releases the underlying Redis connection pool.
func (a *Adapter) Close() error { return a.client.Close() }
