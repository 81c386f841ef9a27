package retrieval

import (
	"context"
	"sync"
	"time"

	"github.com/lattice-run/retrieval-orchestrator/core"
)

// laneExecutor is the subset of Executor.Run the scheduler needs, kept
// narrow so tests can substitute a fake without building a full Executor.
type laneExecutor interface {
	Run(ctx context.Context, lane LaneID, queryText string, cfg LaneConfig, deadline time.Time, internal bool) LaneResult
}

// Scheduler launches all enabled lanes concurrently and collects results
// as they complete, honoring the global deadline. It waits for either all
// lanes to report or the global deadline to pass, whichever comes first —
// it never returns early on the first lane to succeed, because fusion
// needs independent evidence from every lane that can still contribute.
type Scheduler struct {
	logger core.Logger
}

// NewScheduler builds a Scheduler.
func NewScheduler(logger core.Logger) *Scheduler {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Scheduler{logger: logger}
}

// laneJob is one lane's work item, already resolved to an executor and
// config so the scheduler's hot loop stays generic over lane identity.
type laneJob struct {
	lane     LaneID
	executor laneExecutor
	cfg      LaneConfig
	deadline time.Time
}

// Run fans out jobs concurrently and returns one LaneResult per job,
// keyed by lane. Jobs skipped by the budget planner's auto-skip rule
// should not be included in jobs; the caller records them as Disabled
// directly.
func (s *Scheduler) Run(ctx context.Context, plan BudgetPlan, queryText string, jobs []laneJob) map[LaneID]LaneResult {
	results := make(map[LaneID]LaneResult, len(jobs))
	if len(jobs) == 0 {
		return results
	}

	var mu sync.Mutex
	var wg sync.WaitGroup

	fanoutCtx, cancel := context.WithDeadline(ctx, plan.GlobalDeadline)
	defer cancel()

	for _, job := range jobs {
		job := job
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					s.logger.Error("scheduler recovered lane goroutine panic", map[string]interface{}{
						"lane":  string(job.lane),
						"panic": p,
					})
					mu.Lock()
					results[job.lane] = LaneResult{Lane: job.lane, Status: StatusError, ErrKind: ErrKindInternal}
					mu.Unlock()
				}
			}()

			result := job.executor.Run(fanoutCtx, job.lane, queryText, job.cfg, job.deadline, false)

			mu.Lock()
			results[job.lane] = result
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
	case <-fanoutCtx.Done():
		// Global deadline passed (or parent ctx was canceled). Lanes still
		// running share fanoutCtx and will unwind on their own deadline
		// check, but may not have reported yet; the caller must not block
		// waiting for them, so any unreported slot is filled with a
		// Timeout now.
	}

	// Snapshot under lock and return a copy: goroutines from the losing
	// branch above may still be mid-write to results after we stop
	// waiting on them, so the map returned to the caller must be a
	// point-in-time copy, not the shared map itself.
	mu.Lock()
	snapshot := make(map[LaneID]LaneResult, len(jobs))
	for _, job := range jobs {
		if r, reported := results[job.lane]; reported {
			snapshot[job.lane] = r
		} else {
			snapshot[job.lane] = LaneResult{Lane: job.lane, Status: StatusTimeout}
		}
	}
	mu.Unlock()

	return snapshot
}
