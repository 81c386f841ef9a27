package retrieval

import (
	"context"
	"sync"
	"time"

	"github.com/lattice-run/retrieval-orchestrator/core"
)

// warmupCanary is a small, fixed query used to prime a lane before it
// takes live traffic by populating connection pools. It runs as an
// internal query, so its result is never written to the cache.
const warmupCanary = "warmup canary probe"

// heavyLanes are the lanes expensive enough on first contact (cold
// connection pools, cold indices) to warrant a startup probe. Web, news,
// and markets are plain HTTP calls behind otelhttp's transport and don't
// need one.
var heavyLanes = []LaneID{LaneVector, LaneKG, LaneKeyword}

// WarmupResult is one lane's outcome from the startup warmup pass.
type WarmupResult struct {
	Lane    LaneID
	Ready   bool
	Reason  string
	Elapsed time.Duration
}

// Warmup runs one internal canary query per heavy, enabled lane through
// its executor, exactly the path a live request would take except that
// internal=true keeps the probe out of the cache and off the breaker's
// failure count. A lane that fails its warmup is not disabled — it is
// still offered to live traffic and will simply trip its own breaker on
// repeated live failures — warmup only gates how long startup waits
// before declaring the service ready.
type Warmup struct {
	executors map[LaneID]laneExecutor
	registry  *Registry
	clock     core.Clock
	logger    core.Logger
	timeout   time.Duration
}

// NewWarmup builds a Warmup manager. executors must contain an entry for
// every lane in heavyLanes that the registry has enabled; lanes missing
// an executor are skipped with Ready=false.
func NewWarmup(executors map[LaneID]laneExecutor, registry *Registry, clock core.Clock, logger core.Logger, timeout time.Duration) *Warmup {
	if clock == nil {
		clock = core.SystemClock{}
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Warmup{executors: executors, registry: registry, clock: clock, logger: logger, timeout: timeout}
}

// Run probes every enabled heavy lane concurrently and returns once all
// probes have reported or the warmup timeout elapses, whichever is
// first. It never returns an error: a lane that times out or errors is
// simply reported as not-ready, since warmup failures must not prevent
// the service from starting.
func (w *Warmup) Run(ctx context.Context) []WarmupResult {
	var mu sync.Mutex
	var wg sync.WaitGroup
	results := make([]WarmupResult, len(heavyLanes))

	deadline := w.clock.Now().Add(w.timeout)
	warmupCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	for i, lane := range heavyLanes {
		i, lane := i, lane
		cfg, enabled := w.registry.Config(lane)
		if !enabled || !cfg.Enabled {
			results[i] = WarmupResult{Lane: lane, Ready: false, Reason: "not_enabled"}
			continue
		}
		executor, ok := w.executors[lane]
		if !ok {
			results[i] = WarmupResult{Lane: lane, Ready: false, Reason: "no_executor"}
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			start := w.clock.Now()
			result := executor.Run(warmupCtx, lane, warmupCanary, cfg, deadline, true)
			elapsed := w.clock.Now().Sub(start)

			ready := result.Status == StatusSuccess
			reason := ""
			if !ready {
				reason = string(result.Status)
				if result.ErrKind != "" {
					reason = reason + ":" + string(result.ErrKind)
				}
			}

			mu.Lock()
			results[i] = WarmupResult{Lane: lane, Ready: ready, Reason: reason, Elapsed: elapsed}
			mu.Unlock()
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-warmupCtx.Done():
		w.logger.Warn("warmup deadline passed before all lanes reported", nil)
	}

	// Snapshot under lock and return a copy: a still-running probe from
	// the losing branch above may write its slot after we stop waiting
	// on it, so any slot not yet reported is filled here, under the same
	// lock the probe goroutines use, rather than read unsynchronized.
	mu.Lock()
	snapshot := make([]WarmupResult, len(heavyLanes))
	for i, lane := range heavyLanes {
		if results[i].Lane == "" {
			snapshot[i] = WarmupResult{Lane: lane, Ready: false, Reason: "timed_out"}
		} else {
			snapshot[i] = results[i]
		}
	}
	mu.Unlock()
	results = snapshot

	for _, r := range results {
		w.logger.Info("lane warmup complete", map[string]interface{}{
			"lane":       string(r.Lane),
			"ready":      r.Ready,
			"reason":     r.Reason,
			"elapsed_ms": r.Elapsed.Milliseconds(),
		})
	}

	return results
}
