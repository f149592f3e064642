package criteria

import (
	"fmt"
	"time"

	"github.com/rishi-jat/cardwatch/compliance/cardstate"
)

// EvaluateWarmImmediacy checks that on warm return the card shows content
// with no skeleton within a grace window of graceSamples samples. Index 0
// (the immediate sample) and any later in-window index both pass, with the
// observed delay reported; the window boundary is exclusive, so the first
// out-of-window index downgrades to Warn. A card that never settles during
// the warm phase fails: the cache did not serve it.
func EvaluateWarmImmediacy(h cardstate.History, graceSamples int, pollInterval time.Duration) Result {
	if len(h) == 0 {
		return Result{WarmImmediacy, Skip, "no warm-return snapshots captured"}
	}

	settledAt := -1
	for i, s := range h {
		if s.HasContent() && !s.HasSkeleton {
			settledAt = i
			break
		}
	}

	switch {
	case settledAt < 0:
		return Result{WarmImmediacy, Fail,
			"content never appeared without a skeleton during warm return"}
	case settledAt == 0:
		return Result{WarmImmediacy, Pass, "content present on arrival (0ms)"}
	case settledAt < graceSamples:
		delay := time.Duration(settledAt) * pollInterval
		return Result{WarmImmediacy, Pass, fmt.Sprintf(
			"content appeared within the grace window (%dms)", delay.Milliseconds())}
	default:
		delay := time.Duration(settledAt) * pollInterval
		return Result{WarmImmediacy, Warn, fmt.Sprintf(
			"content appeared only after the grace window (%dms)", delay.Milliseconds())}
	}
}

// EvaluateWarmStability checks that the warm-return history never regresses:
// a demo badge at any point fails outright, steady content passes, and a
// content/skeleton flicker without demo markers is a Warn.
func EvaluateWarmStability(h cardstate.History) Result {
	if len(h) == 0 {
		return Result{WarmStability, Skip, "no warm-return snapshots captured"}
	}

	allContent := true
	someContent := false
	someSkeleton := false
	for _, s := range h {
		if s.HasDemoBadge {
			return Result{WarmStability, Fail,
				"demo badge appeared during warm return"}
		}
		if s.HasContent() {
			someContent = true
		} else {
			allContent = false
		}
		if s.HasSkeleton {
			someSkeleton = true
		}
	}

	switch {
	case allContent:
		return Result{WarmStability, Pass, fmt.Sprintf(
			"content present in all %d warm snapshots", len(h))}
	case someContent && !someSkeleton:
		return Result{WarmStability, Pass,
			"content present and no skeleton regression observed"}
	case someContent && someSkeleton:
		return Result{WarmStability, Warn,
			"content and skeleton fluctuated during warm return"}
	default:
		return Result{WarmStability, Warn,
			"no content observed during warm return"}
	}
}
