package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rishi-jat/cardwatch/compliance/criteria"
)

func card(id, cardType string, results ...criteria.Result) *CardResult {
	c := NewCardResult(cardType, id)
	for _, r := range results {
		c.Attach(r)
	}
	return c
}

func res(id criteria.ID, s criteria.Status) criteria.Result {
	return criteria.Result{Criterion: id, Status: s, Details: "test"}
}

func TestCardResultAttachRecomputes(t *testing.T) {
	c := NewCardResult("pods", "pods-0")
	if c.Overall != criteria.Skip {
		t.Fatalf("fresh card overall = %q, want skip", c.Overall)
	}

	c.Attach(res(criteria.CleanLoading, criteria.Pass))
	if c.Overall != criteria.Pass {
		t.Fatalf("after pass overall = %q, want pass", c.Overall)
	}

	// Warm-phase regression flips a clean cold pass to fail.
	c.Attach(res(criteria.WarmStability, criteria.Fail))
	if c.Overall != criteria.Fail {
		t.Fatalf("after warm fail overall = %q, want fail", c.Overall)
	}
}

func TestAggregatePassRateExcludesSkips(t *testing.T) {
	batch := &BatchResult{BatchIndex: 0, Cards: []*CardResult{
		card("a-0", "pods", res(criteria.SkeletonTransition, criteria.Pass)),
		card("a-1", "pods", res(criteria.SkeletonTransition, criteria.Fail)),
		card("a-2", "pods", res(criteria.SkeletonTransition, criteria.Skip)),
		card("a-3", "pods", res(criteria.SkeletonTransition, criteria.Skip)),
	}}

	r := Aggregate("run-1", []*BatchResult{batch})
	if got := r.Summary.PassRates[criteria.SkeletonTransition]; got != 0.5 {
		t.Errorf("pass rate = %v, want 0.5 (skips excluded)", got)
	}

	// Adding more skips must not move the rate.
	batch.Cards = append(batch.Cards,
		card("a-4", "pods", res(criteria.SkeletonTransition, criteria.Skip)))
	r = Aggregate("run-1", []*BatchResult{batch})
	if got := r.Summary.PassRates[criteria.SkeletonTransition]; got != 0.5 {
		t.Errorf("pass rate after extra skip = %v, want 0.5", got)
	}
}

func TestAggregateVacuousPassRate(t *testing.T) {
	batch := &BatchResult{Cards: []*CardResult{
		card("a-0", "pods", res(criteria.IncrementalRefresh, criteria.Skip)),
	}}
	r := Aggregate("run-1", []*BatchResult{batch})
	if got := r.Summary.PassRates[criteria.IncrementalRefresh]; got != 1 {
		t.Errorf("all-skip criterion rate = %v, want 1 (vacuously satisfied)", got)
	}
	// Criteria with zero results are also vacuous.
	if got := r.Summary.PassRates[criteria.WarmImmediacy]; got != 1 {
		t.Errorf("unevaluated criterion rate = %v, want 1", got)
	}
}

func TestAggregateSummaryCounts(t *testing.T) {
	batch := &BatchResult{Cards: []*CardResult{
		card("a-0", "pods", res(criteria.CleanLoading, criteria.Pass)),
		card("a-1", "pods", res(criteria.CleanLoading, criteria.Fail)),
		card("a-2", "pods", res(criteria.CleanLoading, criteria.Warn)),
		card("a-3", "pods", res(criteria.CleanLoading, criteria.Skip)),
	}}
	r := Aggregate("run-1", []*BatchResult{batch})
	s := r.Summary
	if s.TotalCards != 4 || s.Passed != 1 || s.Failed != 1 || s.Warned != 1 || s.Skipped != 1 {
		t.Errorf("summary = %+v", s)
	}
}

func TestGapCoverageRule(t *testing.T) {
	// 3 of 4 cards skip spinner evaluation: 75% skip rate, medium priority.
	batch := &BatchResult{Cards: []*CardResult{
		card("a-0", "pods", res(criteria.SpinnerWhileLoad, criteria.Pass)),
		card("a-1", "pods", res(criteria.SpinnerWhileLoad, criteria.Skip)),
		card("a-2", "pods", res(criteria.SpinnerWhileLoad, criteria.Skip)),
		card("a-3", "pods", res(criteria.SpinnerWhileLoad, criteria.Skip)),
	}}
	r := Aggregate("run-1", []*BatchResult{batch})

	g := findGap(t, r, "Coverage: "+criteria.SpinnerWhileLoad.Name())
	if g.Priority != PriorityMedium {
		t.Errorf("75%% skip rate priority = %q, want medium", g.Priority)
	}

	// 5 of 5 skip: high priority.
	batch.Cards[0] = card("a-0", "pods", res(criteria.SpinnerWhileLoad, criteria.Skip))
	r = Aggregate("run-1", []*BatchResult{batch})
	g = findGap(t, r, "Coverage: "+criteria.SpinnerWhileLoad.Name())
	if g.Priority != PriorityHigh {
		t.Errorf("100%% skip rate priority = %q, want high", g.Priority)
	}
}

func TestGapCoverageRefreshSuggestionDiffers(t *testing.T) {
	batch := &BatchResult{Cards: []*CardResult{
		card("a-0", "pods", res(criteria.IncrementalRefresh, criteria.Skip)),
		card("a-1", "pods",
			res(criteria.IncrementalRefresh, criteria.Skip),
			res(criteria.SpinnerWhileLoad, criteria.Skip)),
	}}
	r := Aggregate("run-1", []*BatchResult{batch})

	refresh := findGap(t, r, "Coverage: "+criteria.IncrementalRefresh.Name())
	if !strings.Contains(refresh.SuggestedImprovement, "manual refresh") {
		t.Errorf("refresh coverage gap should suggest a manual refresh: %q",
			refresh.SuggestedImprovement)
	}
	spinner := findGap(t, r, "Coverage: "+criteria.SpinnerWhileLoad.Name())
	if strings.Contains(spinner.SuggestedImprovement, "manual refresh") {
		t.Errorf("non-refresh coverage gap should suggest timing changes: %q",
			spinner.SuggestedImprovement)
	}
}

func TestGapDemoContamination(t *testing.T) {
	cards := []*CardResult{
		card("a-0", "pods", res(criteria.CleanLoading, criteria.Fail)),
		card("a-1", "deployments", res(criteria.CleanLoading, criteria.Fail)),
		card("a-2", "github-ci", res(criteria.CleanLoading, criteria.Fail)),
	}
	r := Aggregate("run-1", []*BatchResult{{Cards: cards}})
	if g := lookupGap(r, "Demo badge contamination"); g != nil {
		t.Fatal("3 failures should stay within tolerance")
	}

	cards = append(cards, card("a-3", "pods", res(criteria.CleanLoading, criteria.Fail)))
	r = Aggregate("run-1", []*BatchResult{{Cards: cards}})
	g := findGap(t, r, "Demo badge contamination")
	if g.Priority != PriorityHigh {
		t.Errorf("priority = %q, want high", g.Priority)
	}
	// Distinct failing card types, sorted.
	if !strings.Contains(g.Observation, "deployments, github-ci, pods") {
		t.Errorf("observation should name distinct failing types: %q", g.Observation)
	}
}

func TestGapWarmCacheMiss(t *testing.T) {
	r := Aggregate("run-1", []*BatchResult{{Cards: []*CardResult{
		card("a-0", "pods", res(criteria.WarmImmediacy, criteria.Fail)),
	}}})
	g := findGap(t, r, "Cache miss on warm return")
	if g.Priority != PriorityHigh {
		t.Errorf("priority = %q, want high", g.Priority)
	}
}

func TestGapStandingEntryAlwaysPresent(t *testing.T) {
	r := Aggregate("run-1", nil)
	findGap(t, r, "Future criteria candidates")
}

func TestGateCheck(t *testing.T) {
	ok := Aggregate("run-1", []*BatchResult{{Cards: []*CardResult{
		card("a-0", "pods",
			res(criteria.StreamingUsage, criteria.Pass),
			res(criteria.SkeletonTransition, criteria.Pass),
			res(criteria.PersistentCache, criteria.Pass)),
	}}})
	if err := DefaultGate().Check(ok); err != nil {
		t.Fatalf("clean report breached gate: %v", err)
	}

	bad := Aggregate("run-1", []*BatchResult{{Cards: []*CardResult{
		card("a-0", "pods", res(criteria.SkeletonTransition, criteria.Fail)),
	}}})
	err := DefaultGate().Check(bad)
	if !errors.Is(err, ErrGateFailed) {
		t.Fatalf("expected ErrGateFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), criteria.SkeletonTransition.Name()) {
		t.Errorf("gate error should name the criterion: %v", err)
	}
}

func TestGateFailTolerance(t *testing.T) {
	var cards []*CardResult
	for i := 0; i < 20; i++ {
		cards = append(cards, card(fmt.Sprintf("a-%d", i), "pods",
			res(criteria.CleanLoading, criteria.Fail)))
	}
	r := Aggregate("run-1", []*BatchResult{{Cards: cards}})
	g := Gate{MaxFailedCards: 20}
	if err := g.Check(r); !errors.Is(err, ErrGateFailed) {
		t.Fatalf("20 fails with tolerance 20 should breach (exclusive), got %v", err)
	}
}

func TestJSONWriterRoundtrip(t *testing.T) {
	r := Aggregate("run-json", []*BatchResult{{Cards: []*CardResult{
		card("a-0", "pods", res(criteria.CleanLoading, criteria.Pass)),
	}}})

	var buf bytes.Buffer
	n, err := NewJSONWriter(&buf).Write(r)
	if err != nil {
		t.Fatal(err)
	}
	if n != buf.Len() {
		t.Errorf("reported %d bytes, wrote %d", n, buf.Len())
	}

	var decoded Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("report JSON does not round-trip: %v", err)
	}
	if decoded.RunID != "run-json" || decoded.TotalCards != 1 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestMarkdownWriterSections(t *testing.T) {
	r := Aggregate("run-md", []*BatchResult{{Cards: []*CardResult{
		card("a-0", "pods", res(criteria.CleanLoading, criteria.Pass)),
		card("a-1", "pods", res(criteria.SkeletonTransition, criteria.Fail)),
	}}})

	var buf bytes.Buffer
	if _, err := NewMarkdownWriter(&buf).Write(r); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		"# Card Loading Compliance Report",
		"## Criterion Pass Rates",
		"## Failing Cards",
		"## Totals",
		"## Gap Analysis",
		"run-md",
		criteria.SkeletonTransition.Name(),
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestConsoleWriterSummary(t *testing.T) {
	r := Aggregate("run-console", []*BatchResult{{Cards: []*CardResult{
		card("a-0", "pods", res(criteria.CleanLoading, criteria.Pass)),
		card("a-1", "pods", res(criteria.CleanLoading, criteria.Fail)),
	}}})

	var buf bytes.Buffer
	if _, err := NewConsoleWriter(&buf).Write(r); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		"run run-console",
		"2 cards",
		"1 failed",
		criteria.CleanLoading.Name(),
		"failing cards (1):",
		"a-1 (pods)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("console summary missing %q in:\n%s", want, out)
		}
	}
}

func TestWriteFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "test-results")
	r := Aggregate("run-files", nil)

	if err := WriteFiles(dir, r); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{JSONFileName, MarkdownFileName} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing artifact %s: %v", name, err)
		}
	}
}

func findGap(t *testing.T, r *Report, area string) Gap {
	t.Helper()
	if g := lookupGap(r, area); g != nil {
		return *g
	}
	t.Fatalf("no gap with area %q; got %+v", area, r.Gaps)
	return Gap{}
}

func lookupGap(r *Report, area string) *Gap {
	for i := range r.Gaps {
		if r.Gaps[i].Area == area {
			return &r.Gaps[i]
		}
	}
	return nil
}
