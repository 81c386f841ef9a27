// Package retrieval implements the always-on retrieval orchestrator: given
// a query, it fans out across retrieval lanes under a strict latency
// budget, isolates lane failures behind per-lane circuit breakers, fuses
// surviving results, and hands the caller one complete FusedResponse.
//
// No component outside Executor and the lanes package talks to the
// outside world; Registry, Budget, Fuser, and Cache are pure in-process
// logic operating on the types in this file.
package retrieval

import (
	"time"

	"github.com/google/uuid"
)

// LaneID identifies one retrieval strategy. Adding a lane means extending
// this enum and wiring it into the registry; no other component hard-codes
// lane identities.
type LaneID string

const (
	LaneWeb     LaneID = "web"
	LaneNews    LaneID = "news"
	LaneMarkets LaneID = "markets"
	LaneVector  LaneID = "vector"
	LaneKG      LaneID = "kg"
	LaneKeyword LaneID = "keyword"
)

// AllLanes is the fixed set of lane identities the registry knows about.
var AllLanes = []LaneID{LaneWeb, LaneNews, LaneMarkets, LaneVector, LaneKG, LaneKeyword}

// QueryClass selects a budget profile and fusion weighting.
type QueryClass string

const (
	ClassSimple     QueryClass = "simple"
	ClassTechnical  QueryClass = "technical"
	ClassResearch   QueryClass = "research"
	ClassMultimedia QueryClass = "multimedia"
)

// MaxQueryTextBytes bounds Query.Text per the input-validation contract.
const MaxQueryTextBytes = 8 * 1024

// Query is the orchestrator's single input.
type Query struct {
	Text           string
	Class          QueryClass
	TraceID        string
	RequestedLanes map[LaneID]struct{} // nil means "all enabled lanes"

	// internal is not read by Retrieve. Warmup canaries bypass the cache
	// and the breaker by passing internal=true to Executor.Run directly.
	internal bool
}

// NewQuery builds a Query with a freshly generated trace ID.
func NewQuery(text string, class QueryClass) Query {
	return Query{Text: text, Class: class, TraceID: uuid.NewString()}
}

// LaneConfig is immutable after boot and freely shared across requests.
type LaneConfig struct {
	Enabled         bool
	TimeoutMS       int
	TopK            int
	MaxFailures     int
	CooldownMS      int
	KeylessFallback bool
	CacheTTL        time.Duration
}

// BudgetPlan is request-scoped: the global deadline and each lane's
// derived per-lane deadline.
type BudgetPlan struct {
	GlobalDeadline time.Time
	PerLane        map[LaneID]time.Time
}

// LaneStatus tags the variant a LaneResult carries.
type LaneStatus string

const (
	StatusSuccess     LaneStatus = "Success"
	StatusTimeout     LaneStatus = "Timeout"
	StatusBreakerOpen LaneStatus = "BreakerOpen"
	StatusDisabled    LaneStatus = "Disabled"
	StatusError       LaneStatus = "Error"
)

// ErrorKind classifies why a lane's adapter call failed.
type ErrorKind string

const (
	ErrKindTransport   ErrorKind = "Transport"
	ErrKindAuth        ErrorKind = "Auth"
	ErrKindRateLimited ErrorKind = "RateLimited"
	ErrKindBadResponse ErrorKind = "BadResponse"
	ErrKindInternal    ErrorKind = "Internal"
)

// LaneResult is a tagged variant of one lane's outcome for one request.
// Only Status == StatusSuccess carries Items.
type LaneResult struct {
	Lane      LaneID
	Status    LaneStatus
	ElapsedMS int64
	Items     []Evidence // Success only
	Reason    string     // Disabled only, e.g. "budget_exhausted", "not_enabled"
	ErrKind   ErrorKind  // Error only
	CacheHit  bool       // Success only
}

// Evidence is one retrieved item passed on to fusion and, beyond this
// module's scope, to a synthesizer.
type Evidence struct {
	Lane      LaneID
	SourceID  string
	Title     string
	Snippet   string
	Score     float64
	URL       string
	FetchedAt time.Time
}

// LaneSummary is FusedResponse's per-lane status line.
type LaneSummary struct {
	Status        LaneStatus
	ElapsedMS     int64
	ItemsReturned int
	CacheHit      bool
}

// FusedResponse is the orchestrator's single output.
type FusedResponse struct {
	TraceID        string
	Evidence       []Evidence
	Lanes          map[LaneID]LaneSummary
	TotalElapsedMS int64
	BudgetExceeded bool
}
