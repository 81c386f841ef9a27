package retrieval

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/lattice-run/retrieval-orchestrator/core"
	"github.com/lattice-run/retrieval-orchestrator/resilience"
)

// Adapter is the narrow contract a lane implementation must satisfy.
// Concrete adapters live in package lanes; this interface is declared
// here, not there, so lanes can depend on retrieval's types without a
// import cycle back.
type Adapter interface {
	Query(ctx context.Context, text string, topK int) ([]Evidence, error)
}

// Executor runs one lane adapter under its deadline, enforcing the
// cache-check -> breaker-check -> adapter-call -> breaker-update ->
// cache-put ordering. A cache hit is returned before the breaker is
// consulted, so a lane with an open breaker can still answer from cache.
type Executor struct {
	adapter Adapter
	breaker *resilience.Breaker
	cache   *Cache
	clock   core.Clock
	logger  core.Logger
}

// NewExecutor builds an Executor for one lane.
func NewExecutor(adapter Adapter, breaker *resilience.Breaker, cache *Cache, clock core.Clock, logger core.Logger) *Executor {
	if clock == nil {
		clock = core.SystemClock{}
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Executor{adapter: adapter, breaker: breaker, cache: cache, clock: clock, logger: logger}
}

// Run executes one lane for one query against the given deadline. internal
// marks a warmup canary: its success is not cached under a user
// fingerprint and its failure does not count against the breaker.
func (e *Executor) Run(ctx context.Context, lane LaneID, queryText string, cfg LaneConfig, deadline time.Time, internal bool) LaneResult {
	start := e.clock.Now()

	fingerprint := Fingerprint(queryText, lane, cfg.TopK)
	if !internal && e.cache != nil {
		if cached, hit := e.cache.Get(fingerprint); hit {
			cached.CacheHit = true
			cached.ElapsedMS = elapsedMS(start, e.clock.Now())
			return cached
		}
	}

	if !internal {
		if e.breaker.BeforeCall() == resilience.Reject {
			return LaneResult{Lane: lane, Status: StatusBreakerOpen, ElapsedMS: elapsedMS(start, e.clock.Now())}
		}
	}

	callCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	items, err := e.runAdapter(callCtx, queryText, cfg.TopK)
	elapsed := elapsedMS(start, e.clock.Now())

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			if !internal {
				e.breaker.OnFailure()
			}
			return LaneResult{Lane: lane, Status: StatusTimeout, ElapsedMS: elapsed}
		}

		kind := classifyError(err)
		if !internal {
			e.breaker.OnFailure()
		}
		e.logger.WarnWithContext(ctx, "lane adapter failed", map[string]interface{}{
			"lane":  string(lane),
			"kind":  string(kind),
			"error": err.Error(),
		})
		return LaneResult{Lane: lane, Status: StatusError, ElapsedMS: elapsed, ErrKind: kind}
	}

	if len(items) > cfg.TopK {
		sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })
		items = items[:cfg.TopK]
	}

	result := LaneResult{Lane: lane, Status: StatusSuccess, ElapsedMS: elapsed, Items: items}

	if !internal {
		e.breaker.OnSuccess()
		if e.cache != nil {
			e.cache.Put(fingerprint, result, cfg.CacheTTL)
		}
	}

	return result
}

// runAdapter invokes the adapter and converts any panic into a typed
// Internal error, since adapters must never be allowed to crash the
// lane's goroutine.
func (e *Executor) runAdapter(ctx context.Context, text string, topK int) (items []Evidence, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = core.NewLaneError(core.ErrorKindInternal, panicToError(p))
		}
	}()
	return e.adapter.Query(ctx, text, topK)
}

func panicToError(p interface{}) error {
	if err, ok := p.(error); ok {
		return err
	}
	return errors.New("lane adapter panicked")
}

func classifyError(err error) ErrorKind {
	var laneErr *core.LaneError
	if errors.As(err, &laneErr) {
		switch laneErr.Kind {
		case core.ErrorKindTransport:
			return ErrKindTransport
		case core.ErrorKindAuth:
			return ErrKindAuth
		case core.ErrorKindRateLimited:
			return ErrKindRateLimited
		case core.ErrorKindBadResponse:
			return ErrKindBadResponse
		default:
			return ErrKindInternal
		}
	}
	return ErrKindInternal
}

func elapsedMS(start, end time.Time) int64 {
	return end.Sub(start).Milliseconds()
}
