package telemetry

import (
	"context"

	"github.com/lattice-run/retrieval-orchestrator/core"
)

// LaneRecord is one lane's contribution to a RequestRecord.
type LaneRecord struct {
	Lane               string
	Status             string
	ElapsedMS          int64
	ItemsReturned      int
	CacheHit           bool
	BreakerStateBefore string
	BreakerStateAfter  string
}

// RequestRecord is the one structured record emitted per Retrieve call.
type RequestRecord struct {
	TraceID        string
	Class          string
	TotalElapsedMS int64
	BudgetExceeded bool
	Lanes          []LaneRecord
}

// Recorder is the one-way telemetry sink the orchestrator owns. It never
// feeds back into lane execution: the orchestrator calls Record once per
// request, after the response is assembled, and nothing downstream of the orchestrator is
// ever read back into it. This replaces the cyclic "a lane both emits and
// reads shared counters" pattern with a single emission point per request.
//
// Record must not block lane execution and must never propagate an error
// into the caller's request path — a broken exporter degrades telemetry,
// not retrieval.
type Recorder struct {
	metrics    *MetricInstruments
	logger     core.Logger
	onRecord   []func(RequestRecord)
}

// NewRecorder builds a Recorder backed by the given metric instruments.
// Additional sinks (e.g. a SnapshotCollector for the /metrics debug
// endpoint) can be attached with Subscribe.
func NewRecorder(metrics *MetricInstruments, logger core.Logger) *Recorder {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Recorder{metrics: metrics, logger: logger}
}

// Subscribe attaches an additional observer invoked synchronously on
// every Record call, after metrics and structured logging. Observers must
// not block or panic; Record recovers from observer panics so a bad
// observer cannot take down a request.
func (r *Recorder) Subscribe(fn func(RequestRecord)) {
	r.onRecord = append(r.onRecord, fn)
}

// Record emits the per-request structured log line, the histogram and
// counter updates described in the telemetry component design, and
// notifies any subscribers. It is synchronous but fast: all work is local
// aggregation, no network I/O. When an OTLP endpoint is configured,
// export happens on the SDK's own periodic reader, off this call path
// entirely; with no endpoint configured, instruments still accumulate
// in-process but nothing ever reads them.
func (r *Recorder) Record(ctx context.Context, rec RequestRecord) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("telemetry recorder panic recovered", map[string]interface{}{
				"trace_id": rec.TraceID,
				"panic":    p,
			})
		}
	}()

	fields := map[string]interface{}{
		"trace_id":         rec.TraceID,
		"class":            rec.Class,
		"total_elapsed_ms": rec.TotalElapsedMS,
		"budget_exceeded":  rec.BudgetExceeded,
	}
	for _, l := range rec.Lanes {
		fields["lane_"+l.Lane+"_status"] = l.Status
		fields["lane_"+l.Lane+"_elapsed_ms"] = l.ElapsedMS
		fields["lane_"+l.Lane+"_cache_hit"] = l.CacheHit
	}
	r.logger.InfoWithContext(ctx, "retrieval request completed", fields)

	if r.metrics != nil {
		_ = r.metrics.RecordRequestLatency(ctx, rec.BudgetExceeded, float64(rec.TotalElapsedMS))
		for _, l := range rec.Lanes {
			_ = r.metrics.RecordLaneLatency(ctx, l.Lane, l.Status, float64(l.ElapsedMS))
			_ = r.metrics.RecordLaneItemsReturned(ctx, l.Lane, int64(l.ItemsReturned))
			_ = r.metrics.RecordCacheOutcome(ctx, l.Lane, l.CacheHit)
			if l.BreakerStateBefore != l.BreakerStateAfter {
				_ = r.metrics.RecordBreakerTransition(ctx, l.Lane, l.BreakerStateBefore, l.BreakerStateAfter)
			}
		}
	}

	for _, fn := range r.onRecord {
		fn(rec)
	}
}
