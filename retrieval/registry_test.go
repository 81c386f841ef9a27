package retrieval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-run/retrieval-orchestrator/core"
	"github.com/lattice-run/retrieval-orchestrator/resilience"
)

func TestNewRegistryFoldsKeyGateIntoLaneEnabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Credentials = Credentials{WebPrimarySearchKey: true}

	reg, err := NewRegistry(cfg)
	require.NoError(t, err)

	webCfg, ok := reg.Config(LaneWeb)
	require.True(t, ok)
	assert.True(t, webCfg.Enabled)

	marketsCfg, ok := reg.Config(LaneMarkets)
	require.True(t, ok)
	assert.False(t, marketsCfg.Enabled, "markets has no credentials and should be disabled")
}

func TestNewRegistryPropagatesKeyGateFailure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Credentials = Credentials{}

	_, err := NewRegistry(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNoProviderCredentials)
}

func TestEnabledLanesIntersectsRequestedSet(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Credentials = Credentials{WebPrimarySearchKey: true}
	reg, err := NewRegistry(cfg)
	require.NoError(t, err)

	requested := map[LaneID]struct{}{LaneWeb: {}, LaneMarkets: {}}
	enabled, rejected := reg.EnabledLanes(requested)

	assert.Contains(t, enabled, LaneWeb)
	assert.Contains(t, rejected, LaneMarkets)
	assert.NotContains(t, enabled, LaneKeyword, "unrequested lanes should not appear even though enabled")
}

func TestEnabledLanesWithNilRequestReturnsAllEnabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Credentials = Credentials{WebPrimarySearchKey: true}
	reg, err := NewRegistry(cfg)
	require.NoError(t, err)

	enabled, _ := reg.EnabledLanes(nil)
	assert.Contains(t, enabled, LaneWeb)
	assert.Contains(t, enabled, LaneKeyword)
	assert.NotContains(t, enabled, LaneMarkets)
}

func TestLaneHealthReportsBreakerState(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Credentials = Credentials{WebPrimarySearchKey: true}
	reg, err := NewRegistry(cfg)
	require.NoError(t, err)

	breaker := resilience.New(resilience.Config{
		Name: "web", MaxConsecutiveFailures: 1, Cooldown: time.Second,
		Logger: &core.NoOpLogger{}, Clock: core.SystemClock{},
	})
	breaker.OnFailure()

	health := reg.LaneHealth(map[LaneID]*resilience.Breaker{LaneWeb: breaker})
	assert.Equal(t, "open", health[string(LaneWeb)].BreakerState)
	assert.True(t, health[string(LaneWeb)].Enabled)

	noBreaker := reg.LaneHealth(nil)
	assert.Equal(t, "n/a", noBreaker[string(LaneWeb)].BreakerState)
}
