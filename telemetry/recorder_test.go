package telemetry

import (
	"context"
	"testing"

	"github.com/lattice-run/retrieval-orchestrator/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderNotifiesSubscribers(t *testing.T) {
	rec := NewRecorder(NewMetricInstruments("test"), &core.NoOpLogger{})

	var got RequestRecord
	called := false
	rec.Subscribe(func(r RequestRecord) {
		called = true
		got = r
	})

	input := RequestRecord{
		TraceID:        "trace-1",
		Class:          "simple",
		TotalElapsedMS: 120,
		BudgetExceeded: false,
		Lanes: []LaneRecord{
			{Lane: "web", Status: "Success", ElapsedMS: 80, ItemsReturned: 3, CacheHit: false, BreakerStateBefore: "closed", BreakerStateAfter: "closed"},
		},
	}
	rec.Record(context.Background(), input)

	require.True(t, called)
	assert.Equal(t, "trace-1", got.TraceID)
	assert.Len(t, got.Lanes, 1)
}

func TestRecorderSurvivesPanickingSubscriber(t *testing.T) {
	rec := NewRecorder(NewMetricInstruments("test"), &core.NoOpLogger{})
	rec.Subscribe(func(r RequestRecord) { panic("boom") })

	assert.NotPanics(t, func() {
		rec.Record(context.Background(), RequestRecord{TraceID: "trace-2"})
	})
}

func TestSnapshotCollectorAggregatesLaneOutcomes(t *testing.T) {
	collector := NewSnapshotCollector()
	collector.Observe(RequestRecord{
		BudgetExceeded: true,
		Lanes: []LaneRecord{
			{Lane: "web", Status: "Success"},
			{Lane: "vector", Status: "Timeout"},
		},
	})
	collector.Observe(RequestRecord{
		Lanes: []LaneRecord{
			{Lane: "web", Status: "Success"},
		},
	})

	snap := collector.Snapshot()
	assert.Equal(t, int64(2), snap.RequestsTotal)
	assert.Equal(t, int64(1), snap.BudgetExceededTotal)
	assert.Equal(t, int64(2), snap.LaneOutcomes["Success"])
	assert.Equal(t, int64(1), snap.LaneOutcomes["Timeout"])
}
