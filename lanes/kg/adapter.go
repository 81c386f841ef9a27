// Package kg implements the knowledge-graph lane adapter against a local
// graph service reachable over Redis: related-entity edges for a subject
// are stored as Redis hashes, one field per related entity.
package kg

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/lattice-run/retrieval-orchestrator/core"
	"github.com/lattice-run/retrieval-orchestrator/retrieval"
)

// Config points the adapter at the local knowledge-graph service's Redis
// endpoint.
type Config struct {
	ServiceURL string
	KeyPrefix  string // default "kg:entity:"
}

// Adapter queries the local knowledge-graph store.
type Adapter struct {
	client *redis.Client
	prefix string
}

// New parses ServiceURL as a Redis connection string and builds an
// Adapter.
func New(cfg Config) (*Adapter, error) {
	opts, err := redis.ParseURL(cfg.ServiceURL)
	if err != nil {
		return nil, fmt.Errorf("kg: invalid service url: %w", err)
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "kg:entity:"
	}
	return &Adapter{client: redis.NewClient(opts), prefix: prefix}, nil
}

// Query implements lanes.Adapter. The hash field value is a relevance
// score; the adapter sorts descending and truncates to topK itself,
// since HGETALL returns no ordering guarantee.
func (a *Adapter) Query(ctx context.Context, text string, topK int) ([]retrieval.Evidence, error) {
	key := a.prefix + text

	fields, err := a.client.HGetAll(ctx, key).Result()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, core.NewLaneError(core.ErrorKindTransport, err)
	}

	type edge struct {
		entity string
		score  float64
	}
	edges := make([]edge, 0, len(fields))
	for entity, scoreStr := range fields {
		var score float64
		if _, err := fmt.Sscanf(scoreStr, "%f", &score); err != nil {
			continue
		}
		edges = append(edges, edge{entity: entity, score: score})
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].score > edges[j].score })
	if len(edges) > topK {
		edges = edges[:topK]
	}

	fetchedAt := time.Now()
	evidence := make([]retrieval.Evidence, 0, len(edges))
	for _, e := range edges {
		evidence = append(evidence, retrieval.Evidence{
			Lane:      retrieval.LaneKG,
			SourceID:  e.entity,
			Title:     e.entity,
			Score:     e.score,
			FetchedAt: fetchedAt,
		})
	}
	return evidence, nil
}

// Close releases the underlying Redis connection pool.
func (a *Adapter) Close() error { return a.client.Close() }
