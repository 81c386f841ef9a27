package retrieval

import (
	"context"
	"time"

	"github.com/lattice-run/retrieval-orchestrator/core"
	"github.com/lattice-run/retrieval-orchestrator/resilience"
	"github.com/lattice-run/retrieval-orchestrator/telemetry"
)

// lane is one fully wired retrieval strategy: its static config, its
// executor (adapter + breaker + cache), and the breaker itself so the
// orchestrator can read before/after state for the telemetry record.
type lane struct {
	cfg      LaneConfig
	executor laneExecutor
	breaker  *resilience.Breaker
}

// Orchestrator is the top-level entry point: Retrieve(query) -> FusedResponse.
// It wires the budget planner, registry, scheduler, fuser, and recorder
// built elsewhere in this package into the single request path described
// by the concurrency model.
type Orchestrator struct {
	registry  *Registry
	planner   *Planner
	scheduler *Scheduler
	recorder  *telemetry.Recorder
	weights   map[QueryClass]FusionWeights
	fusionCap int
	lanes     map[LaneID]lane
	clock     core.Clock
	logger    core.Logger
}

// newOrchestrator wires a complete Orchestrator. lanes must contain one
// entry for every LaneID the registry may enable; a lane present in the
// registry but absent from this map is treated as permanently disabled.
// Unexported because its lanes parameter is built only by Build, below —
// callers outside this package cannot construct the unexported lane type.
func newOrchestrator(
	registry *Registry,
	lanes map[LaneID]lane,
	recorder *telemetry.Recorder,
	weights map[QueryClass]FusionWeights,
	fusionCap int,
	clock core.Clock,
	logger core.Logger,
) *Orchestrator {
	if clock == nil {
		clock = core.SystemClock{}
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if fusionCap <= 0 {
		fusionCap = 20
	}
	return &Orchestrator{
		registry:  registry,
		planner:   NewPlanner(clock),
		scheduler: NewScheduler(logger),
		recorder:  recorder,
		weights:   weights,
		fusionCap: fusionCap,
		lanes:     lanes,
		clock:     clock,
		logger:    logger,
	}
}

// Build assembles an Orchestrator and its per-lane circuit breakers from
// a registry and a set of lane adapters. It is the entry point a binary
// wiring this module together uses: it owns constructing the executor
// and breaker for every lane the registry has enabled, so the caller
// never needs to see the unexported lane/executor plumbing.
//
// adapters need only contain entries for lanes the caller can actually
// reach (e.g. omit vector/kg when no local service is configured); a
// registry-enabled lane with no adapter is demoted to Disabled at
// request time with reason "not_wired".
func Build(
	registry *Registry,
	adapters map[LaneID]Adapter,
	cache *Cache,
	recorder *telemetry.Recorder,
	weights map[QueryClass]FusionWeights,
	fusionCap int,
	clock core.Clock,
	logger core.Logger,
) (*Orchestrator, map[LaneID]*resilience.Breaker) {
	if clock == nil {
		clock = core.SystemClock{}
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}

	breakers := make(map[LaneID]*resilience.Breaker, len(AllLanes))
	lanes := make(map[LaneID]lane, len(AllLanes))

	for _, laneID := range AllLanes {
		cfg, ok := registry.Config(laneID)
		if !ok {
			continue
		}

		breaker := resilience.New(resilience.Config{
			Name:                   string(laneID),
			MaxConsecutiveFailures: cfg.MaxFailures,
			Cooldown:               time.Duration(cfg.CooldownMS) * time.Millisecond,
			Logger:                 logger,
			Clock:                  clock,
		})
		breakers[laneID] = breaker

		adapter, hasAdapter := adapters[laneID]
		if !hasAdapter {
			continue
		}

		executor := NewExecutor(adapter, breaker, cache, clock, logger)
		lanes[laneID] = lane{cfg: cfg, executor: executor, breaker: breaker}
	}

	orchestrator := newOrchestrator(registry, lanes, recorder, weights, fusionCap, clock, logger)
	return orchestrator, breakers
}

// RunWarmup probes every enabled heavy lane this orchestrator has wired
// an executor for, exactly as Warmup.Run describes. It exists so a
// binary calling Build does not also need to reach into the unexported
// laneExecutor type to assemble a Warmup manager by hand.
func (o *Orchestrator) RunWarmup(ctx context.Context, timeout time.Duration) []WarmupResult {
	executors := make(map[LaneID]laneExecutor, len(o.lanes))
	for laneID, l := range o.lanes {
		executors[laneID] = l.executor
	}
	warmup := NewWarmup(executors, o.registry, o.clock, o.logger, timeout)
	return warmup.Run(ctx)
}

// Retrieve runs one query through budgeting, fan-out, fusion, and
// telemetry, and returns a FusedResponse. The only errors it returns are
// input-validation failures caught before fan-out starts and internal
// invariant violations (an inconsistent BudgetPlan) that indicate a bug
// rather than a lane failure; every lane-level failure — timeouts,
// breaker trips, transport errors — is absorbed into the response's
// per-lane summaries so a request with every lane failing still returns
// successfully with empty evidence.
func (o *Orchestrator) Retrieve(ctx context.Context, query Query) (FusedResponse, error) {
	if query.TraceID == "" {
		query.TraceID = "untraced"
	}

	if err := validateQuery(query); err != nil {
		return FusedResponse{}, err
	}

	start := o.clock.Now()

	enabled, rejected := o.registry.EnabledLanes(query.RequestedLanes)

	configs := make(map[LaneID]LaneConfig, len(enabled))
	for _, laneID := range enabled {
		if l, ok := o.lanes[laneID]; ok {
			configs[laneID] = l.cfg
		}
	}

	plan := o.planner.Plan(query.Class, configs)
	if err := validatePlan(plan, configs); err != nil {
		o.logger.ErrorWithContext(ctx, "internal invariant violated building budget plan", map[string]interface{}{
			"trace_id": query.TraceID,
			"error":    err.Error(),
		})
		return FusedResponse{}, err
	}

	results := make(map[LaneID]LaneResult, len(enabled))
	for _, laneID := range rejected {
		results[laneID] = LaneResult{Lane: laneID, Status: StatusDisabled, Reason: "not_enabled"}
	}

	jobs := make([]laneJob, 0, len(enabled))
	breakerBefore := make(map[LaneID]string, len(enabled))
	globalBudget := GlobalBudgetFor(query.Class)

	for _, laneID := range enabled {
		l, ok := o.lanes[laneID]
		if !ok {
			results[laneID] = LaneResult{Lane: laneID, Status: StatusDisabled, Reason: "not_wired"}
			continue
		}
		deadline, hasDeadline := plan.PerLane[laneID]
		if !hasDeadline {
			results[laneID] = LaneResult{Lane: laneID, Status: StatusDisabled, Reason: "not_enabled"}
			continue
		}
		if ShouldAutoSkip(o.clock.Now(), plan.GlobalDeadline, globalBudget) {
			results[laneID] = LaneResult{Lane: laneID, Status: StatusDisabled, Reason: "budget_exhausted"}
			continue
		}

		breakerBefore[laneID] = l.breaker.State().String()
		jobs = append(jobs, laneJob{lane: laneID, executor: l.executor, cfg: l.cfg, deadline: deadline})
	}

	scheduled := o.scheduler.Run(ctx, plan, query.Text, jobs)
	for laneID, result := range scheduled {
		results[laneID] = result
	}

	evidence, summaries := Fuse(results, o.weights[query.Class], o.fusionCap)

	totalElapsed := o.clock.Now().Sub(start)
	budgetExceeded := o.clock.Now().After(plan.GlobalDeadline)

	response := FusedResponse{
		TraceID:        query.TraceID,
		Evidence:       evidence,
		Lanes:          summaries,
		TotalElapsedMS: totalElapsed.Milliseconds(),
		BudgetExceeded: budgetExceeded,
	}

	if o.recorder != nil {
		laneRecords := make([]telemetry.LaneRecord, 0, len(results))
		for laneID, r := range results {
			after := ""
			if l, ok := o.lanes[laneID]; ok {
				after = l.breaker.State().String()
			}
			laneRecords = append(laneRecords, telemetry.LaneRecord{
				Lane:               string(laneID),
				Status:             string(r.Status),
				ElapsedMS:          r.ElapsedMS,
				ItemsReturned:      len(r.Items),
				CacheHit:           r.CacheHit,
				BreakerStateBefore: breakerBefore[laneID],
				BreakerStateAfter:  after,
			})
		}
		o.recorder.Record(ctx, telemetry.RequestRecord{
			TraceID:        query.TraceID,
			Class:          string(query.Class),
			TotalElapsedMS: response.TotalElapsedMS,
			BudgetExceeded: budgetExceeded,
			Lanes:          laneRecords,
		})
	}

	return response, nil
}

func validateQuery(q Query) error {
	if len(q.Text) == 0 {
		return core.ErrQueryEmpty
	}
	if len(q.Text) > MaxQueryTextBytes {
		return core.ErrQueryTooLarge
	}
	return nil
}

// validatePlan catches the one class of bug a BudgetPlan can have that
// must never reach fan-out: a lane deadline scheduled after the global
// deadline it was supposed to be capped by.
func validatePlan(plan BudgetPlan, configs map[LaneID]LaneConfig) error {
	for laneID, deadline := range plan.PerLane {
		if _, known := configs[laneID]; !known {
			return &core.FrameworkError{
				Op:      "validatePlan",
				Kind:    "internal",
				Message: "budget plan contains a lane deadline with no matching lane config",
				Err:     core.ErrInternalInvariant,
			}
		}
		if deadline.After(plan.GlobalDeadline.Add(time.Millisecond)) {
			return &core.FrameworkError{
				Op:      "validatePlan",
				Kind:    "internal",
				Message: "lane deadline exceeds the global deadline",
				Err:     core.ErrInternalInvariant,
			}
		}
	}
	return nil
}
