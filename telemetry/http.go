package telemetry

import (
	"encoding/json"
	"net/http"
	"sync"
)

// Snapshot is a minimal point-in-time view of request volume, exposed at
// /metrics for operators who don't run an OTLP collector locally. The
// canonical metrics path is still the OTLP exporter configured in
// Provider; this is a convenience view on top of the same Recorder.
type Snapshot struct {
	RequestsTotal       int64            `json:"requests_total"`
	BudgetExceededTotal int64            `json:"budget_exceeded_total"`
	LaneOutcomes        map[string]int64 `json:"lane_outcomes"`
}

// SnapshotCollector accumulates counts from RequestRecords as they are
// emitted, independent of the OTLP pipeline. It exists purely to back the
// /metrics debug endpoint.
type SnapshotCollector struct {
	mu           sync.Mutex
	requests     int64
	budgetExceed int64
	laneOutcomes map[string]int64
}

// NewSnapshotCollector creates an empty collector.
func NewSnapshotCollector() *SnapshotCollector {
	return &SnapshotCollector{laneOutcomes: make(map[string]int64)}
}

// Observe records one completed request.
func (s *SnapshotCollector) Observe(rec RequestRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++
	if rec.BudgetExceeded {
		s.budgetExceed++
	}
	for _, lane := range rec.Lanes {
		s.laneOutcomes[lane.Status]++
	}
}

// Snapshot returns the current counts.
func (s *SnapshotCollector) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	outcomes := make(map[string]int64, len(s.laneOutcomes))
	for k, v := range s.laneOutcomes {
		outcomes[k] = v
	}
	return Snapshot{
		RequestsTotal:       s.requests,
		BudgetExceededTotal: s.budgetExceed,
		LaneOutcomes:        outcomes,
	}
}

// MetricsHandler serves the debug snapshot as JSON.
func MetricsHandler(collector *SnapshotCollector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(collector.Snapshot())
	}
}
