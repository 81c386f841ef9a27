package retrieval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuseDiscardsNonSuccessLanesButKeepsTheirSummary(t *testing.T) {
	results := map[LaneID]LaneResult{
		LaneWeb:     {Lane: LaneWeb, Status: StatusSuccess, Items: []Evidence{{SourceID: "a", Score: 1.0}}},
		LaneNews:    {Lane: LaneNews, Status: StatusTimeout},
		LaneMarkets: {Lane: LaneMarkets, Status: StatusBreakerOpen},
	}

	evidence, summaries := Fuse(results, nil, 20)

	require.Len(t, evidence, 1)
	assert.Equal(t, "a", evidence[0].SourceID)
	assert.Len(t, summaries, 3, "every lane gets a summary regardless of status")
	assert.Equal(t, StatusTimeout, summaries[LaneNews].Status)
}

func TestFuseDedupesBySourceIDAcrossLanesAndRecordsContributors(t *testing.T) {
	fetchedAt := time.Now()
	results := map[LaneID]LaneResult{
		LaneWeb: {
			Lane: LaneWeb, Status: StatusSuccess,
			Items: []Evidence{{SourceID: "shared", Score: 0.5, FetchedAt: fetchedAt}},
		},
		LaneNews: {
			Lane: LaneNews, Status: StatusSuccess,
			Items: []Evidence{{SourceID: "shared", Score: 1.0, FetchedAt: fetchedAt}},
		},
	}

	evidence, _ := Fuse(results, FusionWeights{LaneWeb: 1, LaneNews: 1}, 20)

	require.Len(t, evidence, 1)
	assert.Equal(t, "shared", evidence[0].SourceID)
	assert.Equal(t, 1.0, evidence[0].Score, "higher lane-local score wins the representative evidence")
}

func TestFuseAppliesPerLaneWeights(t *testing.T) {
	results := map[LaneID]LaneResult{
		LaneVector: {Lane: LaneVector, Status: StatusSuccess, Items: []Evidence{{SourceID: "v1", Score: 1.0}}},
		LaneWeb:    {Lane: LaneWeb, Status: StatusSuccess, Items: []Evidence{{SourceID: "w1", Score: 1.0}}},
	}
	weights := FusionWeights{LaneVector: 2.0, LaneWeb: 1.0}

	evidence, _ := Fuse(results, weights, 20)

	require.Len(t, evidence, 2)
	assert.Equal(t, "v1", evidence[0].SourceID, "higher-weighted lane should rank first given equal normalized scores")
}

func TestFuseIsDeterministicAcrossRepeatedRuns(t *testing.T) {
	results := map[LaneID]LaneResult{
		LaneWeb: {
			Lane: LaneWeb, Status: StatusSuccess,
			Items: []Evidence{
				{SourceID: "a", Score: 0.9},
				{SourceID: "b", Score: 0.9},
				{SourceID: "c", Score: 0.1},
			},
		},
	}

	first, _ := Fuse(results, nil, 20)
	for i := 0; i < 20; i++ {
		again, _ := Fuse(results, nil, 20)
		assert.Equal(t, first, again)
	}
}

func TestFuseTruncatesToCap(t *testing.T) {
	items := make([]Evidence, 0, 5)
	for i := 0; i < 5; i++ {
		items = append(items, Evidence{SourceID: string(rune('a' + i)), Score: float64(i)})
	}
	results := map[LaneID]LaneResult{
		LaneWeb: {Lane: LaneWeb, Status: StatusSuccess, Items: items},
	}

	evidence, _ := Fuse(results, nil, 2)
	assert.Len(t, evidence, 2)
}

func TestFuseHandlesNoSuccessfulLanes(t *testing.T) {
	results := map[LaneID]LaneResult{
		LaneWeb: {Lane: LaneWeb, Status: StatusError},
	}
	evidence, summaries := Fuse(results, nil, 20)
	assert.Empty(t, evidence)
	assert.Len(t, summaries, 1)
}
