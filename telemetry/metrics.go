package telemetry

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricInstruments holds cached metric instruments for efficient recording.
// Instruments are created lazily on first use and cached by name, since
// otel.Meter.Int64Counter and friends are not free to call per-event.
type MetricInstruments struct {
	meter      metric.Meter
	counters   map[string]metric.Int64Counter
	histograms map[string]metric.Float64Histogram
	gauges     map[string]gaugeCallback
	mu         sync.RWMutex
}

type gaugeCallback struct {
	registration metric.Registration
	gauge        metric.Float64ObservableGauge
}

// NewMetricInstruments creates a new metrics instrument cache bound to a
// named meter.
func NewMetricInstruments(meterName string) *MetricInstruments {
	return &MetricInstruments{
		meter:      otel.Meter(meterName),
		counters:   make(map[string]metric.Int64Counter),
		histograms: make(map[string]metric.Float64Histogram),
		gauges:     make(map[string]gaugeCallback),
	}
}

// RecordCounter increments a counter metric, creating it on first use.
func (m *MetricInstruments) RecordCounter(ctx context.Context, name string, value int64, opts ...metric.AddOption) error {
	m.mu.RLock()
	counter, exists := m.counters[name]
	m.mu.RUnlock()

	if !exists {
		m.mu.Lock()
		if counter, exists = m.counters[name]; !exists {
			var err error
			counter, err = m.meter.Int64Counter(name)
			if err != nil {
				m.mu.Unlock()
				return fmt.Errorf("failed to create counter %s: %w", name, err)
			}
			m.counters[name] = counter
		}
		m.mu.Unlock()
	}

	counter.Add(ctx, value, opts...)
	return nil
}

// RecordHistogram records a value distribution (latencies, scores).
func (m *MetricInstruments) RecordHistogram(ctx context.Context, name string, value float64, opts ...metric.RecordOption) error {
	m.mu.RLock()
	histogram, exists := m.histograms[name]
	m.mu.RUnlock()

	if !exists {
		m.mu.Lock()
		if histogram, exists = m.histograms[name]; !exists {
			var err error
			histogram, err = m.meter.Float64Histogram(name)
			if err != nil {
				m.mu.Unlock()
				return fmt.Errorf("failed to create histogram %s: %w", name, err)
			}
			m.histograms[name] = histogram
		}
		m.mu.Unlock()
	}

	histogram.Record(ctx, value, opts...)
	return nil
}

// RegisterGauge registers an observable gauge with a callback.
func (m *MetricInstruments) RegisterGauge(name string, callback metric.Callback, opts ...metric.Float64ObservableGaugeOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.gauges[name]; exists {
		return fmt.Errorf("gauge %s already registered", name)
	}

	gauge, err := m.meter.Float64ObservableGauge(name, opts...)
	if err != nil {
		return fmt.Errorf("failed to create gauge %s: %w", name, err)
	}

	registration, err := m.meter.RegisterCallback(callback, gauge)
	if err != nil {
		return fmt.Errorf("failed to register callback for gauge %s: %w", name, err)
	}

	m.gauges[name] = gaugeCallback{registration: registration, gauge: gauge}
	return nil
}

// Shutdown unregisters all gauge callbacks.
func (m *MetricInstruments) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for name, gauge := range m.gauges {
		if err := gauge.registration.Unregister(); err != nil {
			errs = append(errs, fmt.Errorf("failed to unregister gauge %s: %w", name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}
	return nil
}

// RecordLaneLatency records one lane's elapsed time, labeled by lane and
// terminal status (the lane status string the Recorder passes in:
// Success, Timeout, Error, BreakerOpen, or Disabled).
func (m *MetricInstruments) RecordLaneLatency(ctx context.Context, lane, status string, milliseconds float64) error {
	return m.RecordHistogram(ctx, MetricLaneLatencyMS, milliseconds,
		metric.WithAttributes(
			attribute.String("lane", lane),
			attribute.String("status", status),
		))
}

// RecordRequestLatency records the end-to-end elapsed time of one
// Retrieve call, labeled by whether the global budget was exceeded.
func (m *MetricInstruments) RecordRequestLatency(ctx context.Context, budgetExceeded bool, milliseconds float64) error {
	return m.RecordHistogram(ctx, MetricRequestLatencyMS, milliseconds,
		metric.WithAttributes(attribute.Bool("budget_exceeded", budgetExceeded)))
}

// RecordCacheOutcome increments the cache hit or miss counter for a lane.
func (m *MetricInstruments) RecordCacheOutcome(ctx context.Context, lane string, hit bool) error {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	return m.RecordCounter(ctx, MetricCacheOutcome, 1,
		metric.WithAttributes(
			attribute.String("lane", lane),
			attribute.String("outcome", outcome),
		))
}

// RecordBreakerTransition increments the breaker state transition counter.
func (m *MetricInstruments) RecordBreakerTransition(ctx context.Context, lane, from, to string) error {
	return m.RecordCounter(ctx, MetricBreakerTransitions, 1,
		metric.WithAttributes(
			attribute.String("lane", lane),
			attribute.String("from", from),
			attribute.String("to", to),
		))
}

// RecordLaneItemsReturned records how many evidence items a lane contributed.
func (m *MetricInstruments) RecordLaneItemsReturned(ctx context.Context, lane string, count int64) error {
	return m.RecordCounter(ctx, MetricLaneItemsReturned, count,
		metric.WithAttributes(attribute.String("lane", lane)))
}

// Metric name constants for the retrieval orchestrator.
const (
	// MetricLaneLatencyMS is a histogram of per-lane elapsed time, labeled
	// by lane and terminal status.
	MetricLaneLatencyMS = "retrieval.lane.latency_ms"

	// MetricRequestLatencyMS is a histogram of end-to-end Retrieve latency,
	// labeled by whether the global budget was exceeded.
	MetricRequestLatencyMS = "retrieval.request.latency_ms"

	// MetricCacheOutcome counts cache hits/misses per lane.
	MetricCacheOutcome = "retrieval.cache.outcome"

	// MetricBreakerTransitions counts circuit breaker state transitions
	// per lane.
	MetricBreakerTransitions = "retrieval.breaker.transitions"

	// MetricLaneItemsReturned counts evidence items returned per lane.
	MetricLaneItemsReturned = "retrieval.lane.items_returned"
)
