// Package lanes provides reference adapters for each retrieval lane. An
// adapter's contract is deliberately narrow: given query text, a top-K
// cap, and a deadline, return evidence or a typed error. Adapters are the
// only components in this module that touch external systems; they must
// never panic and must observe their deadline at every I/O boundary.
package lanes

import (
	"context"
	"time"

	"github.com/lattice-run/retrieval-orchestrator/retrieval"
)

// Adapter is implemented once per lane.
type Adapter interface {
	// Query returns up to topK evidence items for text. ctx carries the
	// per-lane deadline computed by the budget planner; the adapter must
	// stop and return ctx.Err() once it expires rather than running past
	// it.
	Query(ctx context.Context, text string, topK int) ([]retrieval.Evidence, error)
}

// AdapterFunc adapts a plain function to the Adapter interface, mirroring
// the http.HandlerFunc pattern for small adapters that need no state.
type AdapterFunc func(ctx context.Context, text string, topK int) ([]retrieval.Evidence, error)

func (f AdapterFunc) Query(ctx context.Context, text string, topK int) ([]retrieval.Evidence, error) {
	return f(ctx, text, topK)
}

// deadlineRemaining reports the time left before ctx's deadline, and
// false when ctx has none. It is unexported, so the adapters in the lane
// subpackages cannot call it.
func deadlineRemaining(ctx context.Context) (time.Duration, bool) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0, false
	}
	return time.Until(deadline), true
}
