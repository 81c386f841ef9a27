package retrieval

import (
	"fmt"

	"github.com/lattice-run/retrieval-orchestrator/core"
)

// Credentials holds the presence (not the values) of every credential and
// service URL the key gate inspects. Adapters read the actual values
// themselves; the gate only needs to know what's present.
type Credentials struct {
	WebPrimarySearchKey   bool
	WebSecondarySearchKey bool
	NewsProviderAKey      bool
	NewsProviderBKey      bool
	MarketsPrimaryKey     bool
	VectorServiceURL      bool
	KGServiceURL          bool

	KeylessFallbackEnabled bool
}

// GateResult is the key gate's decision for one lane.
type GateResult struct {
	Enabled bool
	Reason  string // set when Enabled is false
}

// RunKeyGate applies the declarative credential matrix once, at startup,
// to decide which lanes mount. It fails fast only when every lane in a
// credentialed class (web, news) is missing its credentials and keyless
// fallback is disabled; otherwise it degrades gracefully, marking
// individual lanes disabled.
func RunKeyGate(creds Credentials, logger core.Logger) (map[LaneID]GateResult, error) {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	results := make(map[LaneID]GateResult, len(AllLanes))

	webHasKey := creds.WebPrimarySearchKey || creds.WebSecondarySearchKey
	if webHasKey {
		results[LaneWeb] = GateResult{Enabled: true}
	} else if creds.KeylessFallbackEnabled {
		results[LaneWeb] = GateResult{Enabled: true, Reason: "keyless_fallback"}
	} else {
		results[LaneWeb] = GateResult{Enabled: false, Reason: "no_credentials"}
	}

	newsHasKey := creds.NewsProviderAKey || creds.NewsProviderBKey
	if newsHasKey {
		results[LaneNews] = GateResult{Enabled: true}
	} else if creds.KeylessFallbackEnabled {
		results[LaneNews] = GateResult{Enabled: true, Reason: "keyless_fallback"}
	} else {
		results[LaneNews] = GateResult{Enabled: false, Reason: "no_credentials"}
	}

	if creds.MarketsPrimaryKey {
		results[LaneMarkets] = GateResult{Enabled: true}
	} else {
		results[LaneMarkets] = GateResult{Enabled: false, Reason: "no_credentials"}
	}

	if creds.VectorServiceURL {
		results[LaneVector] = GateResult{Enabled: true}
	} else {
		results[LaneVector] = GateResult{Enabled: false, Reason: "no_service_url"}
	}

	if creds.KGServiceURL {
		results[LaneKG] = GateResult{Enabled: true}
	} else {
		results[LaneKG] = GateResult{Enabled: false, Reason: "no_service_url"}
	}

	// keyword is a local in-process index: always available.
	results[LaneKeyword] = GateResult{Enabled: true}

	if !webHasKey && !newsHasKey && !creds.KeylessFallbackEnabled {
		logger.Error("key gate: both web and news lanes lack credentials and keyless fallback is disabled", map[string]interface{}{
			"web_enabled":  results[LaneWeb].Enabled,
			"news_enabled": results[LaneNews].Enabled,
		})
		return results, &core.FrameworkError{
			Op:      "RunKeyGate",
			Kind:    "config",
			Message: "web and news lanes have no credentials and KEYLESS_FALLBACKS_ENABLED is false",
			Err:     core.ErrNoProviderCredentials,
		}
	}

	for lane, res := range results {
		logger.Info("key gate decision", map[string]interface{}{
			"lane":    string(lane),
			"enabled": res.Enabled,
			"reason":  res.Reason,
		})
	}

	return results, nil
}

func (g GateResult) String() string {
	if g.Enabled {
		return "enabled"
	}
	return fmt.Sprintf("disabled(%s)", g.Reason)
}
