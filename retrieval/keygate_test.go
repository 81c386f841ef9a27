package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-run/retrieval-orchestrator/core"
)

func TestKeyGateEnablesLanesWithCredentials(t *testing.T) {
	creds := Credentials{
		WebPrimarySearchKey: true,
		NewsProviderAKey:    true,
		MarketsPrimaryKey:   true,
		VectorServiceURL:    true,
		KGServiceURL:        true,
	}

	results, err := RunKeyGate(creds, &core.NoOpLogger{})
	require.NoError(t, err)

	for _, lane := range AllLanes {
		assert.True(t, results[lane].Enabled, "lane %s should be enabled", lane)
	}
}

func TestKeyGateKeywordAlwaysEnabled(t *testing.T) {
	results, err := RunKeyGate(Credentials{}, &core.NoOpLogger{})
	require.Error(t, err, "no credentials and no keyless fallback should fail fast")
	assert.True(t, results[LaneKeyword].Enabled)
}

func TestKeyGateFailsFastWithoutAnyCredentialsOrFallback(t *testing.T) {
	_, err := RunKeyGate(Credentials{}, &core.NoOpLogger{})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNoProviderCredentials)
}

func TestKeyGateKeylessFallbackAvoidsFailure(t *testing.T) {
	results, err := RunKeyGate(Credentials{KeylessFallbackEnabled: true}, &core.NoOpLogger{})
	require.NoError(t, err)
	assert.True(t, results[LaneWeb].Enabled)
	assert.Equal(t, "keyless_fallback", results[LaneWeb].Reason)
	assert.True(t, results[LaneNews].Enabled)
}

func TestKeyGateDisablesUncredentialedOptionalLanes(t *testing.T) {
	results, err := RunKeyGate(Credentials{WebPrimarySearchKey: true}, &core.NoOpLogger{})
	require.NoError(t, err)

	assert.False(t, results[LaneMarkets].Enabled)
	assert.Equal(t, "no_credentials", results[LaneMarkets].Reason)
	assert.False(t, results[LaneVector].Enabled)
	assert.False(t, results[LaneKG].Enabled)
}

func TestGateResultString(t *testing.T) {
	assert.Equal(t, "enabled", GateResult{Enabled: true}.String())
	assert.Equal(t, "disabled(no_credentials)", GateResult{Enabled: false, Reason: "no_credentials"}.String())
}
