// Package criteria implements the behavioral criteria a dashboard card is
// audited against. Each evaluator is a pure function over a card's snapshot
// history (plus, for two of them, page-global cache/network state) and
// returns a verdict, never an error: "cannot determine" is the first-class
// Skip outcome, not a failure.
package criteria

// Status is the verdict of one criterion for one card.
type Status string

const (
	Pass Status = "pass"
	Fail Status = "fail"
	Warn Status = "warn"
	// Skip means the sampling window produced no evidence either way.
	// Finite windows legitimately miss phases (e.g. auto-refresh timers
	// longer than the window), so absence of signal never fails a card.
	Skip Status = "skip"
)

// ID identifies a criterion.
type ID string

const (
	CleanLoading       ID = "clean_loading"       // no demo leakage while loading
	SpinnerWhileLoad   ID = "spinner_while_load"  // spinner visible during loading
	StreamingUsage     ID = "streaming_usage"     // SSE observed for the batch
	SkeletonTransition ID = "skeleton_transition" // skeleton resolves into content
	IncrementalRefresh ID = "incremental_refresh" // spinner over existing content
	PersistentCache    ID = "persistent_cache"    // cache stores populated
	WarmImmediacy      ID = "warm_immediacy"      // content immediate on return
	WarmStability      ID = "warm_stability"      // no regression on return
)

// All lists the criteria in report order: cold-phase first, warm-phase last.
var All = []ID{
	CleanLoading,
	SpinnerWhileLoad,
	StreamingUsage,
	SkeletonTransition,
	IncrementalRefresh,
	PersistentCache,
	WarmImmediacy,
	WarmStability,
}

var names = map[ID]string{
	CleanLoading:       "Clean loading (no demo leakage)",
	SpinnerWhileLoad:   "Spinner during loading",
	StreamingUsage:     "Streaming usage",
	SkeletonTransition: "Skeleton to content transition",
	IncrementalRefresh: "Incremental refresh indicator",
	PersistentCache:    "Persistent cache population",
	WarmImmediacy:      "Warm-return immediacy",
	WarmStability:      "Warm-return stability",
}

// Name returns the human-readable criterion name used in reports.
func (id ID) Name() string {
	if n, ok := names[id]; ok {
		return n
	}
	return string(id)
}

// Result is the immutable verdict of one evaluator.
type Result struct {
	Criterion ID     `json:"criterion"`
	Status    Status `json:"status"`
	Details   string `json:"details"`
}

// DeriveOverallStatus reduces a card's criteria map to one status with
// worst-status-wins precedence: any Fail dominates, then any Warn, then
// all-Skip, then Pass. A confirmed defect always outranks partial evidence;
// a card that produced no evidence at all stays Skip rather than
// masquerading as a pass.
func DeriveOverallStatus(results map[ID]Result) Status {
	if len(results) == 0 {
		return Skip
	}
	anyWarn := false
	allSkip := true
	for _, r := range results {
		switch r.Status {
		case Fail:
			return Fail
		case Warn:
			anyWarn = true
			allSkip = false
		case Pass:
			allSkip = false
		}
	}
	if anyWarn {
		return Warn
	}
	if allSkip {
		return Skip
	}
	return Pass
}
