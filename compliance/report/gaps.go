package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rishi-jat/cardwatch/compliance/criteria"
)

// Priority ranks a gap-analysis entry.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Gap is one entry of the self-generated gap analysis, derived purely from
// the final report's aggregate statistics.
type Gap struct {
	Area                 string   `json:"area"`
	Observation          string   `json:"observation"`
	SuggestedImprovement string   `json:"suggestedImprovement"`
	Priority             Priority `json:"priority"`
}

const (
	coverageGapThreshold     = 0.5
	coverageGapHighThreshold = 0.8
	demoFailureTolerance     = 3
	sseAdoptionThreshold     = 0.3
)

// analyzeGaps applies the rule set over the aggregated statistics. Rules
// fire independently, at most once each per run.
func analyzeGaps(r *Report, tallies map[criteria.ID]*statusTally) []Gap {
	var gaps []Gap

	// Coverage gaps: criteria that skipped on most cards measured nothing.
	for _, id := range criteria.All {
		t, ok := tallies[id]
		if !ok || t.skipRate() <= coverageGapThreshold {
			continue
		}
		prio := PriorityMedium
		if t.skipRate() > coverageGapHighThreshold {
			prio = PriorityHigh
		}
		suggestion := "extend the sampling window or inject longer mock latency so the phase becomes observable"
		if id == criteria.IncrementalRefresh {
			suggestion = "trigger a manual refresh per card instead of waiting for auto-refresh timers that exceed the window"
		}
		gaps = append(gaps, Gap{
			Area: fmt.Sprintf("Coverage: %s", id.Name()),
			Observation: fmt.Sprintf("%.0f%% of cards produced no evidence for this criterion",
				t.skipRate()*100),
			SuggestedImprovement: suggestion,
			Priority:             prio,
		})
	}

	// Demo badge contamination across many cards points at a shared cause.
	if t := tallies[criteria.CleanLoading]; t != nil && t.fail > demoFailureTolerance {
		gaps = append(gaps, Gap{
			Area: "Demo badge contamination",
			Observation: fmt.Sprintf("%d cards showed demo indicators while loading: %s",
				t.fail, strings.Join(failingCardTypes(r, criteria.CleanLoading), ", ")),
			SuggestedImprovement: "suppress demo-mode markers until the first real fetch resolves",
			Priority:             PriorityHigh,
		})
	}

	// Any warm-return immediacy failure means the persistent cache missed.
	if t := tallies[criteria.WarmImmediacy]; t != nil && t.fail > 0 {
		gaps = append(gaps, Gap{
			Area: "Cache miss on warm return",
			Observation: fmt.Sprintf("%d cards re-entered a skeleton state on warm return", t.fail),
			SuggestedImprovement: "serve cached data synchronously on mount before revalidating",
			Priority:             PriorityHigh,
		})
	}

	// Low SSE adoption is observational, not a defect.
	if rate, ok := r.Summary.PassRates[criteria.StreamingUsage]; ok && rate < sseAdoptionThreshold {
		gaps = append(gaps, Gap{
			Area: "SSE adoption",
			Observation: fmt.Sprintf("only %.0f%% of cards used a streaming endpoint", rate*100),
			SuggestedImprovement: "consider migrating high-churn cards from REST polling to SSE",
			Priority:             PriorityLow,
		})
	}

	// Standing placeholder: criteria the harness does not measure yet.
	gaps = append(gaps, Gap{
		Area:                 "Future criteria candidates",
		Observation:          "error-state rendering, retry affordances and offline behavior are not audited",
		SuggestedImprovement: "add criteria for error boundaries and offline cache fallback",
		Priority:             PriorityLow,
	})

	return gaps
}

// failingCardTypes returns the distinct card types that failed the given
// criterion, sorted for stable report output.
func failingCardTypes(r *Report, id criteria.ID) []string {
	seen := make(map[string]struct{})
	for _, b := range r.Batches {
		for _, c := range b.Cards {
			if res, ok := c.Criteria[id]; ok && res.Status == criteria.Fail {
				seen[c.CardType] = struct{}{}
			}
		}
	}
	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
