package retrieval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ now time.Time }

func (f fixedClock) Now() time.Time { return f.now }

func TestPlannerCapsLaneTimeoutToRemainingBudget(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p := NewPlanner(fixedClock{now: now})

	configs := map[LaneID]LaneConfig{
		LaneWeb: {Enabled: true, TimeoutMS: 10000}, // exceeds the simple-class budget
	}
	plan := p.Plan(ClassSimple, configs)

	assert.Equal(t, now.Add(budgetProfiles[ClassSimple]), plan.GlobalDeadline)
	assert.Equal(t, plan.GlobalDeadline, plan.PerLane[LaneWeb], "lane timeout longer than the budget is capped to it")
}

func TestPlannerSkipsDisabledLanes(t *testing.T) {
	now := time.Now()
	p := NewPlanner(fixedClock{now: now})

	configs := map[LaneID]LaneConfig{
		LaneWeb: {Enabled: false, TimeoutMS: 500},
	}
	plan := p.Plan(ClassSimple, configs)

	_, present := plan.PerLane[LaneWeb]
	assert.False(t, present)
}

func TestPlannerFallsBackToDefaultBudgetForUnknownClass(t *testing.T) {
	now := time.Now()
	p := NewPlanner(fixedClock{now: now})

	plan := p.Plan(QueryClass("nonexistent"), nil)
	assert.Equal(t, now.Add(defaultGlobalBudget), plan.GlobalDeadline)
}

func TestShouldAutoSkipWhenLessThanQuarterBudgetRemains(t *testing.T) {
	now := time.Now()
	totalBudget := 4 * time.Second

	stillOK := now.Add(2 * time.Second) // 50% remaining
	assert.False(t, ShouldAutoSkip(now, stillOK, totalBudget))

	tooLate := now.Add(500 * time.Millisecond) // 12.5% remaining
	assert.True(t, ShouldAutoSkip(now, tooLate, totalBudget))
}

func TestShouldAutoSkipWhenDeadlineAlreadyPassed(t *testing.T) {
	now := time.Now()
	assert.True(t, ShouldAutoSkip(now, now.Add(-time.Millisecond), time.Second))
}

func TestGlobalBudgetForKnownAndUnknownClass(t *testing.T) {
	require.Equal(t, budgetProfiles[ClassResearch], GlobalBudgetFor(ClassResearch))
	require.Equal(t, defaultGlobalBudget, GlobalBudgetFor(QueryClass("nope")))
}
