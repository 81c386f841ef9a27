package retrieval

import "sort"

// FusionWeights gives each lane's contribution weight for one query
// class. Lanes absent from the map contribute with weight 0.
type FusionWeights map[LaneID]float64

// DefaultFusionWeights returns the per-class weighting fixed by the
// result-fuser design: technical queries favor vector/kg; news queries
// favor web/news. Classes not listed here fall back to equal weighting
// of 1.0 for every lane.
func DefaultFusionWeights() map[QueryClass]FusionWeights {
	return map[QueryClass]FusionWeights{
		ClassTechnical: {
			LaneVector: 1.5, LaneKG: 1.5, LaneWeb: 1.0, LaneNews: 0.5, LaneMarkets: 0.5, LaneKeyword: 1.0,
		},
		ClassResearch: {
			LaneVector: 1.3, LaneKG: 1.3, LaneWeb: 1.0, LaneNews: 0.8, LaneMarkets: 0.5, LaneKeyword: 1.0,
		},
		ClassSimple: {
			LaneWeb: 1.2, LaneKeyword: 1.0, LaneNews: 0.8, LaneMarkets: 0.8, LaneVector: 0.8, LaneKG: 0.8,
		},
		ClassMultimedia: {
			LaneWeb: 1.2, LaneNews: 1.0, LaneKeyword: 0.8, LaneVector: 0.8, LaneKG: 0.8, LaneMarkets: 0.5,
		},
	}
}

func weightFor(weights FusionWeights, lane LaneID) float64 {
	if weights == nil {
		return 1.0
	}
	if w, ok := weights[lane]; ok {
		return w
	}
	return 0
}

type fusionCandidate struct {
	evidence     Evidence
	fusedScore   float64
	contributors int
}

// Fuse merges per-lane results into a single ranked evidence list plus a
// per-lane summary. Fusion is deterministic given the same results and
// weights: ties are broken first by number of contributing lanes, then
// by earliest FetchedAt, then by SourceID so the order never depends on
// map iteration.
func Fuse(results map[LaneID]LaneResult, weights FusionWeights, cap int) ([]Evidence, map[LaneID]LaneSummary) {
	summaries := make(map[LaneID]LaneSummary, len(results))
	maxScorePerLane := make(map[LaneID]float64)

	for lane, res := range results {
		summaries[lane] = LaneSummary{
			Status:        res.Status,
			ElapsedMS:     res.ElapsedMS,
			ItemsReturned: len(res.Items),
			CacheHit:      res.CacheHit,
		}
		for _, ev := range res.Items {
			if ev.Score > maxScorePerLane[lane] {
				maxScorePerLane[lane] = ev.Score
			}
		}
	}

	// source_id -> best candidate seen so far, plus the set of
	// contributing lanes for tie-breaking and the fused score.
	bySource := make(map[string]*fusionCandidate)
	contributingLanes := make(map[string]map[LaneID]struct{})

	for lane, res := range results {
		if res.Status != StatusSuccess {
			continue
		}
		maxScore := maxScorePerLane[lane]
		for _, ev := range res.Items {
			normalized := 0.0
			if maxScore > 0 {
				normalized = ev.Score / maxScore
			}
			weighted := normalized * weightFor(weights, lane)

			if contributingLanes[ev.SourceID] == nil {
				contributingLanes[ev.SourceID] = make(map[LaneID]struct{})
			}
			contributingLanes[ev.SourceID][lane] = struct{}{}

			existing, found := bySource[ev.SourceID]
			if !found {
				bySource[ev.SourceID] = &fusionCandidate{evidence: ev, fusedScore: weighted}
				continue
			}
			existing.fusedScore += weighted
			if ev.Score > existing.evidence.Score {
				existing.evidence = ev
			}
		}
	}

	candidates := make([]*fusionCandidate, 0, len(bySource))
	for sourceID, c := range bySource {
		c.contributors = len(contributingLanes[sourceID])
		candidates = append(candidates, c)
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.fusedScore != b.fusedScore {
			return a.fusedScore > b.fusedScore
		}
		if a.contributors != b.contributors {
			return a.contributors > b.contributors
		}
		if !a.evidence.FetchedAt.Equal(b.evidence.FetchedAt) {
			return a.evidence.FetchedAt.Before(b.evidence.FetchedAt)
		}
		return a.evidence.SourceID < b.evidence.SourceID
	})

	if cap > 0 && len(candidates) > cap {
		candidates = candidates[:cap]
	}

	evidence := make([]Evidence, 0, len(candidates))
	for _, c := range candidates {
		evidence = append(evidence, c.evidence)
	}

	return evidence, summaries
}
