package criteria

import (
	"fmt"

	"github.com/rishi-jat/cardwatch/compliance/cardstate"
)

// EvaluateCleanLoading checks that no demo-data markers (demo badge, yellow
// border) leak into the card while it is loading. Only snapshots where the
// card was effectively loading carry signal; with zero loading snapshots the
// verdict is Skip.
func EvaluateCleanLoading(h cardstate.History) Result {
	loading, violations := 0, 0
	for _, s := range h {
		if !s.Loading() {
			continue
		}
		loading++
		if s.HasDemoBadge || s.HasYellowBorder {
			violations++
		}
	}

	switch {
	case loading == 0:
		return Result{CleanLoading, Skip, "no loading snapshots captured"}
	case violations > 0:
		pct := 100 * violations / loading
		return Result{CleanLoading, Fail, fmt.Sprintf(
			"%d/%d loading snapshots showed a demo indicator (%d%%)",
			violations, loading, pct)}
	default:
		return Result{CleanLoading, Pass, fmt.Sprintf(
			"%d loading snapshots, none showed demo markers", loading)}
	}
}

// EvaluateSpinner checks that at least one loading snapshot showed an
// actively spinning refresh icon.
func EvaluateSpinner(h cardstate.History) Result {
	loading, spinning := 0, 0
	for _, s := range h {
		if !s.Loading() {
			continue
		}
		loading++
		if s.HasSpinningIcon {
			spinning++
		}
	}

	switch {
	case loading == 0:
		return Result{SpinnerWhileLoad, Skip, "no loading snapshots captured"}
	case spinning > 0:
		return Result{SpinnerWhileLoad, Pass, fmt.Sprintf(
			"spinner visible in %d/%d loading snapshots", spinning, loading)}
	default:
		return Result{SpinnerWhileLoad, Fail, fmt.Sprintf(
			"no spinner in any of %d loading snapshots", loading)}
	}
}

// EvaluateStreaming checks the batch-scoped SSE request log. Zero stream
// requests is informational (the card may be REST-only), never a defect,
// so the result is Pass or Warn and never Skip or Fail.
func EvaluateStreaming(streamRequests int) Result {
	if streamRequests > 0 {
		return Result{StreamingUsage, Pass, fmt.Sprintf(
			"%d SSE stream request(s) observed during batch", streamRequests)}
	}
	return Result{StreamingUsage, Warn,
		"no SSE stream requests observed; card may rely on REST polling only"}
}

// EvaluateSkeletonTransition checks that a card that showed a loading phase
// eventually resolved into content, and that a card that skipped straight to
// content did render it.
func EvaluateSkeletonTransition(h cardstate.History) Result {
	firstLoading := -1
	contentAt := -1
	for i, s := range h {
		if firstLoading < 0 && s.Loading() {
			firstLoading = i
		}
		if contentAt < 0 && s.Settled() {
			contentAt = i
		}
	}

	switch {
	case firstLoading < 0 && contentAt < 0:
		return Result{SkeletonTransition, Skip, "neither loading nor content observed"}
	case contentAt >= 0 && firstLoading < 0:
		return Result{SkeletonTransition, Pass, fmt.Sprintf(
			"content present without an observed loading phase (sample %d)", contentAt)}
	case contentAt > firstLoading:
		return Result{SkeletonTransition, Pass, fmt.Sprintf(
			"loading phase resolved into content at sample %d", contentAt)}
	case contentAt >= 0:
		return Result{SkeletonTransition, Pass, fmt.Sprintf(
			"content already present when the loading phase began (sample %d)", contentAt)}
	default:
		return Result{SkeletonTransition, Fail,
			"loading phase observed but content never appeared"}
	}
}

// EvaluateIncrementalRefresh checks whether, after content first appeared, a
// later snapshot showed the spinner over still-present content. Auto-refresh
// timers typically exceed the sampling window, so the common outcome is
// Skip.
func EvaluateIncrementalRefresh(h cardstate.History) Result {
	contentAt := -1
	for i, s := range h {
		if s.HasContent() {
			contentAt = i
			break
		}
	}
	if contentAt < 0 {
		return Result{IncrementalRefresh, Skip, "no content phase observed"}
	}

	for _, s := range h[contentAt+1:] {
		if s.HasContent() && s.HasSpinningIcon {
			return Result{IncrementalRefresh, Pass,
				"refresh spinner observed over existing content"}
		}
	}
	return Result{IncrementalRefresh, Skip,
		"no refresh observed after content; auto-refresh interval likely exceeds the sampling window"}
}

// EvaluatePersistentCache checks the combined entry count across the
// dashboard's persisted stores (cache-pattern localStorage keys plus rows in
// all IndexedDB object stores). Evaluated once per batch and shared by every
// card in it; the verdict is strictly Pass or Fail.
func EvaluatePersistentCache(totalEntries int) Result {
	if totalEntries > 0 {
		return Result{PersistentCache, Pass, fmt.Sprintf(
			"%d persisted cache entries found", totalEntries)}
	}
	return Result{PersistentCache, Fail, "no persisted cache entries found"}
}
