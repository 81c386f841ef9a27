package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-run/retrieval-orchestrator/core"
)

func registryWithVectorAndKGEnabled(t *testing.T) *Registry {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Credentials = Credentials{VectorServiceURL: true, KGServiceURL: true}
	reg, err := NewRegistry(cfg)
	require.NoError(t, err)
	return reg
}

func TestWarmupRunMarksNotEnabledLanes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Credentials = Credentials{KeylessFallbackEnabled: true}
	reg, err := NewRegistry(cfg)
	require.NoError(t, err)

	w := NewWarmup(map[LaneID]laneExecutor{}, reg, core.SystemClock{}, &core.NoOpLogger{}, time.Second)
	results := w.Run(context.Background())

	byLane := map[LaneID]WarmupResult{}
	for _, r := range results {
		byLane[r.Lane] = r
	}
	assert.Equal(t, "not_enabled", byLane[LaneVector].Reason)
	assert.Equal(t, "not_enabled", byLane[LaneKG].Reason)
}

func TestWarmupRunMarksMissingExecutorAsNoExecutor(t *testing.T) {
	reg := registryWithVectorAndKGEnabled(t)

	w := NewWarmup(map[LaneID]laneExecutor{}, reg, core.SystemClock{}, &core.NoOpLogger{}, time.Second)
	results := w.Run(context.Background())

	byLane := map[LaneID]WarmupResult{}
	for _, r := range results {
		byLane[r.Lane] = r
	}
	assert.Equal(t, "no_executor", byLane[LaneVector].Reason)
	assert.Equal(t, "no_executor", byLane[LaneKG].Reason)
	assert.False(t, byLane[LaneVector].Ready)
}

func TestWarmupRunProbesEnabledLaneAsInternalQuery(t *testing.T) {
	reg := registryWithVectorAndKGEnabled(t)
	executor := &fakeLaneExecutor{result: LaneResult{Status: StatusSuccess}}

	w := NewWarmup(map[LaneID]laneExecutor{
		LaneVector: executor,
		LaneKG:     &fakeLaneExecutor{result: LaneResult{Status: StatusError, ErrKind: ErrKindInternal}},
	}, reg, core.SystemClock{}, &core.NoOpLogger{}, time.Second)

	results := w.Run(context.Background())

	byLane := map[LaneID]WarmupResult{}
	for _, r := range results {
		byLane[r.Lane] = r
	}
	assert.True(t, byLane[LaneVector].Ready)
	assert.False(t, byLane[LaneKG].Ready)
	assert.Equal(t, "Error:Internal", byLane[LaneKG].Reason)
}

func TestWarmupRunTimesOutLanesThatNeverReport(t *testing.T) {
	reg := registryWithVectorAndKGEnabled(t)

	w := NewWarmup(map[LaneID]laneExecutor{
		LaneVector: &fakeLaneExecutor{delay: 200 * time.Millisecond},
		LaneKG:     &fakeLaneExecutor{result: LaneResult{Status: StatusSuccess}},
	}, reg, core.SystemClock{}, &core.NoOpLogger{}, 10*time.Millisecond)

	results := w.Run(context.Background())

	byLane := map[LaneID]WarmupResult{}
	for _, r := range results {
		byLane[r.Lane] = r
	}
	assert.False(t, byLane[LaneVector].Ready, "a lane slower than the warmup timeout must never report ready")
}
