package telemetry

import (
	"encoding/json"
	"net/http"
)

// LaneHealth reports a single lane's boot-time admission and current
// breaker state.
type LaneHealth struct {
	Enabled      bool   `json:"enabled"`
	BreakerState string `json:"breaker_state"`
}

// LaneHealthSource supplies per-lane health to HealthHandler so the HTTP
// handler here never needs to import package retrieval. The demo binary
// implements it with a small wrapper around the retrieval registry and
// its breakers.
type LaneHealthSource interface {
	LaneHealth() map[string]LaneHealth
}

// Health is the /health response body.
type Health struct {
	Ready bool                  `json:"ready"`
	Lanes map[string]LaneHealth `json:"lanes"`
}

// HealthHandler reports readiness and, per lane, whether it mounted at
// boot and its current circuit breaker state. The process is ready as
// long as at least one lane is enabled.
func HealthHandler(source LaneHealthSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lanes := source.LaneHealth()

		ready := false
		for _, l := range lanes {
			if l.Enabled {
				ready = true
				break
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		_ = json.NewEncoder(w).Encode(Health{Ready: ready, Lanes: lanes})
	}
}
