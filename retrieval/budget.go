package retrieval

import "time"

// budgetProfiles maps a query class to its global request budget. Outer
// request boundary per class; individual lane timeouts are always capped
// below this by LaneConfig.
var budgetProfiles = map[QueryClass]time.Duration{
	ClassSimple:     5000 * time.Millisecond,
	ClassTechnical:  7000 * time.Millisecond,
	ClassResearch:   10000 * time.Millisecond,
	ClassMultimedia: 10000 * time.Millisecond,
}

// defaultGlobalBudget is used when a query arrives with an unrecognized
// class, so budgeting never panics on unexpected input.
const defaultGlobalBudget = 3000 * time.Millisecond

// autoSkipFraction is the minimum fraction of the global budget that must
// remain, at the moment a lane would launch, for the lane to be launched
// at all.
const autoSkipFraction = 0.25

// Planner computes a BudgetPlan for a request. Planning is pure: it never
// fails.
type Planner struct {
	clock interface{ Now() time.Time }
}

// NewPlanner builds a Planner that reads the current instant from clock.
func NewPlanner(clock interface{ Now() time.Time }) *Planner {
	return &Planner{clock: clock}
}

// Plan computes the global deadline and each enabled lane's deadline.
func (p *Planner) Plan(class QueryClass, configs map[LaneID]LaneConfig) BudgetPlan {
	now := p.clock.Now()
	budget, ok := budgetProfiles[class]
	if !ok {
		budget = defaultGlobalBudget
	}
	globalDeadline := now.Add(budget)

	perLane := make(map[LaneID]time.Time, len(configs))
	for lane, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		remaining := globalDeadline.Sub(now)
		laneTimeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
		if laneTimeout > remaining {
			laneTimeout = remaining
		}
		perLane[lane] = now.Add(laneTimeout)
	}

	return BudgetPlan{GlobalDeadline: globalDeadline, PerLane: perLane}
}

// ShouldAutoSkip reports whether a lane that has not yet launched should
// be skipped because too little of the global budget remains. Evaluated
// at the moment the scheduler would otherwise launch the lane.
// totalGlobalBudget is the full duration allotted to the request by its
// query class, not the lane's own timeout.
func ShouldAutoSkip(now, globalDeadline time.Time, totalGlobalBudget time.Duration) bool {
	remaining := globalDeadline.Sub(now)
	if totalGlobalBudget <= 0 {
		return remaining <= 0
	}
	return float64(remaining) < autoSkipFraction*float64(totalGlobalBudget)
}

// GlobalBudgetFor returns the total request budget for a query class, the
// same table Plan uses to compute the global deadline.
func GlobalBudgetFor(class QueryClass) time.Duration {
	if b, ok := budgetProfiles[class]; ok {
		return b
	}
	return defaultGlobalBudget
}
