// Package keyword implements an in-process inverted-index lane adapter.
// Unlike the other lanes, keyword search has no external provider: it is
// a local full-text index over documents the process already holds in
// memory, so this adapter genuinely has no third-party dependency to
// reach for.
package keyword

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lattice-run/retrieval-orchestrator/retrieval"
)

// Document is one entry in the index.
type Document struct {
	ID      string
	Title   string
	Snippet string
	URL     string
}

// Adapter is a simple term-frequency inverted index over an in-memory
// document set. It exists to exercise the narrow Adapter contract without
// an external dependency, and to give the fan-out scheduler a lane that
// is never rate-limited or network-flaky.
type Adapter struct {
	mu    sync.RWMutex
	docs  map[string]Document
	index map[string]map[string]int // term -> docID -> term frequency
}

// New builds an empty index. Use Index to populate it.
func New() *Adapter {
	return &Adapter{
		docs:  make(map[string]Document),
		index: make(map[string]map[string]int),
	}
}

// Index adds a document to the index. Re-indexing an existing ID replaces
// the stored document record, but the term postings of the earlier
// version are kept and the new version's postings are added to them.
func (a *Adapter) Index(doc Document) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.docs[doc.ID] = doc
	for _, term := range tokenize(doc.Title + " " + doc.Snippet) {
		if a.index[term] == nil {
			a.index[term] = make(map[string]int)
		}
		a.index[term][doc.ID]++
	}
}

// Query implements lanes.Adapter.
func (a *Adapter) Query(ctx context.Context, text string, topK int) ([]retrieval.Evidence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	scores := make(map[string]int)
	for _, term := range tokenize(text) {
		for docID, freq := range a.index[term] {
			scores[docID] += freq
		}
	}

	type scored struct {
		id    string
		score int
	}
	ranked := make([]scored, 0, len(scores))
	for id, score := range scores {
		ranked = append(ranked, scored{id: id, score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].id < ranked[j].id
	})
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	fetchedAt := time.Now()
	maxScore := 1
	if len(ranked) > 0 {
		maxScore = ranked[0].score
	}
	evidence := make([]retrieval.Evidence, 0, len(ranked))
	for _, r := range ranked {
		doc := a.docs[r.id]
		evidence = append(evidence, retrieval.Evidence{
			Lane:      retrieval.LaneKeyword,
			SourceID:  doc.ID,
			Title:     doc.Title,
			Snippet:   doc.Snippet,
			Score:     float64(r.score) / float64(maxScore),
			URL:       doc.URL,
			FetchedAt: fetchedAt,
		})
	}
	return evidence, nil
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
}
