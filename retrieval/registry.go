package retrieval

import (
	"github.com/lattice-run/retrieval-orchestrator/core"
	"github.com/lattice-run/retrieval-orchestrator/resilience"
	"github.com/lattice-run/retrieval-orchestrator/telemetry"
)

// Registry holds the immutable set of lane configs loaded at startup. It
// is read-only after boot; the only mutable state associated with a lane
// (circuit breaker, cache) lives in their own dedicated types, not here.
type Registry struct {
	configs map[LaneID]LaneConfig
	logger  core.Logger
}

// NewRegistry runs the key gate against cfg.Credentials, folds the result
// into each lane's Enabled flag, and returns the resulting Registry.
func NewRegistry(cfg *Config) (*Registry, error) {
	gateResults, err := RunKeyGate(cfg.Credentials, cfg.Logger)
	if err != nil {
		return nil, err
	}

	configs := make(map[LaneID]LaneConfig, len(cfg.Lanes))
	for lane, laneCfg := range cfg.Lanes {
		if gate, ok := gateResults[lane]; ok {
			laneCfg.Enabled = laneCfg.Enabled && gate.Enabled
		} else {
			laneCfg.Enabled = false
		}
		configs[lane] = laneCfg
	}

	return &Registry{configs: configs, logger: cfg.Logger}, nil
}

// Config returns the immutable configuration for one lane.
func (r *Registry) Config(lane LaneID) (LaneConfig, bool) {
	cfg, ok := r.configs[lane]
	return cfg, ok
}

// EnabledLanes intersects the requested set (if any) with lanes this
// registry has enabled. Requested-but-disabled lanes are returned
// separately so the caller can record them as Disabled{reason:"not_enabled"}.
func (r *Registry) EnabledLanes(requested map[LaneID]struct{}) (enabled []LaneID, rejected []LaneID) {
	for lane, cfg := range r.configs {
		if requested != nil {
			if _, wanted := requested[lane]; !wanted {
				continue
			}
		}
		if cfg.Enabled {
			enabled = append(enabled, lane)
		} else {
			rejected = append(rejected, lane)
		}
	}
	return enabled, rejected
}

// LaneHealth reports each lane's boot-time admission and current breaker
// state in the shape telemetry.LaneHealthSource returns; it takes the
// breakers as an argument, so a caller wraps it to satisfy that interface.
func (r *Registry) LaneHealth(breakers map[LaneID]*resilience.Breaker) map[string]telemetry.LaneHealth {
	health := make(map[string]telemetry.LaneHealth, len(r.configs))
	for lane, cfg := range r.configs {
		state := "n/a"
		if b, ok := breakers[lane]; ok {
			state = b.State().String()
		}
		health[string(lane)] = telemetry.LaneHealth{Enabled: cfg.Enabled, BreakerState: state}
	}
	return health
}
