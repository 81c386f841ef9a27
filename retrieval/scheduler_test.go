package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-run/retrieval-orchestrator/core"
)

type fakeLaneExecutor struct {
	delay  time.Duration
	result LaneResult
	panic  interface{}
}

func (f *fakeLaneExecutor) Run(ctx context.Context, lane LaneID, queryText string, cfg LaneConfig, deadline time.Time, internal bool) LaneResult {
	if f.panic != nil {
		panic(f.panic)
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return LaneResult{Lane: lane, Status: StatusTimeout}
		}
	}
	out := f.result
	out.Lane = lane
	return out
}

func TestSchedulerRunReturnsOneResultPerJob(t *testing.T) {
	s := NewScheduler(&core.NoOpLogger{})
	plan := BudgetPlan{GlobalDeadline: time.Now().Add(time.Second)}

	jobs := []laneJob{
		{lane: LaneWeb, executor: &fakeLaneExecutor{result: LaneResult{Status: StatusSuccess}}, deadline: plan.GlobalDeadline},
		{lane: LaneNews, executor: &fakeLaneExecutor{result: LaneResult{Status: StatusSuccess}}, deadline: plan.GlobalDeadline},
	}

	results := s.Run(context.Background(), plan, "q", jobs)

	require.Len(t, results, 2)
	assert.Equal(t, StatusSuccess, results[LaneWeb].Status)
	assert.Equal(t, StatusSuccess, results[LaneNews].Status)
}

func TestSchedulerFillsTimeoutForLanesThatNeverReport(t *testing.T) {
	s := NewScheduler(&core.NoOpLogger{})
	deadline := time.Now().Add(10 * time.Millisecond)
	plan := BudgetPlan{GlobalDeadline: deadline}

	jobs := []laneJob{
		{lane: LaneWeb, executor: &fakeLaneExecutor{delay: 200 * time.Millisecond}, deadline: deadline},
		{lane: LaneNews, executor: &fakeLaneExecutor{result: LaneResult{Status: StatusSuccess}}, deadline: deadline},
	}

	results := s.Run(context.Background(), plan, "q", jobs)

	require.Len(t, results, 2)
	assert.Equal(t, StatusTimeout, results[LaneWeb].Status)
	assert.Equal(t, StatusSuccess, results[LaneNews].Status)
}

func TestSchedulerRecoversFromLaneGoroutinePanic(t *testing.T) {
	s := NewScheduler(&core.NoOpLogger{})
	plan := BudgetPlan{GlobalDeadline: time.Now().Add(time.Second)}

	jobs := []laneJob{
		{lane: LaneWeb, executor: &fakeLaneExecutor{panic: "boom"}, deadline: plan.GlobalDeadline},
	}

	results := s.Run(context.Background(), plan, "q", jobs)

	require.Len(t, results, 1)
	assert.Equal(t, StatusError, results[LaneWeb].Status)
	assert.Equal(t, ErrKindInternal, results[LaneWeb].ErrKind)
}

func TestSchedulerRunWithNoJobsReturnsEmptyMap(t *testing.T) {
	s := NewScheduler(&core.NoOpLogger{})
	plan := BudgetPlan{GlobalDeadline: time.Now().Add(time.Second)}

	results := s.Run(context.Background(), plan, "q", nil)
	assert.Empty(t, results)
}
