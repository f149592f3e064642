// Package report reduces a compliance run's per-batch results into a single
// report: per-criterion pass rates, per-card overall statuses, a rule-based
// gap analysis, and JSON/Markdown renderings.
package report

import (
	"time"

	"github.com/rishi-jat/cardwatch/compliance/criteria"
)

// CardResult accumulates the criterion verdicts for one card across phases.
// It is the one mutable aggregate in the model: created during the cold
// phase, found again by card ID when the warm phase attaches its criteria,
// with Overall recomputed on every attach.
type CardResult struct {
	CardType string                          `json:"cardType"`
	CardID   string                          `json:"cardId"`
	Criteria map[criteria.ID]criteria.Result `json:"criteria"`
	Overall  criteria.Status                 `json:"overallStatus"`
}

// NewCardResult creates an empty result for a card.
func NewCardResult(cardType, cardID string) *CardResult {
	return &CardResult{
		CardType: cardType,
		CardID:   cardID,
		Criteria: make(map[criteria.ID]criteria.Result),
		Overall:  criteria.Skip,
	}
}

// Attach records a criterion verdict and recomputes the overall status.
func (c *CardResult) Attach(r criteria.Result) {
	c.Criteria[r.Criterion] = r
	c.Overall = criteria.DeriveOverallStatus(c.Criteria)
}

// FailedCriteria returns the IDs of all failing criteria in report order.
func (c *CardResult) FailedCriteria() []criteria.ID {
	var out []criteria.ID
	for _, id := range criteria.All {
		if r, ok := c.Criteria[id]; ok && r.Status == criteria.Fail {
			out = append(out, id)
		}
	}
	return out
}

// BatchResult holds the card results of one batch.
type BatchResult struct {
	BatchIndex int           `json:"batchIndex"`
	Cards      []*CardResult `json:"cards"`
}

// Find returns the result for cardID, or nil if the batch has none.
func (b *BatchResult) Find(cardID string) *CardResult {
	for _, c := range b.Cards {
		if c.CardID == cardID {
			return c
		}
	}
	return nil
}

// Summary counts cards by overall status and carries per-criterion pass
// rates. Pass rates exclude Skip results from numerator and denominator;
// a criterion with only skips is vacuously satisfied (rate 1), a deliberate
// policy so that absent evidence never drags a CI gate down.
type Summary struct {
	TotalCards int                     `json:"totalCards"`
	Passed     int                     `json:"passed"`
	Failed     int                     `json:"failed"`
	Warned     int                     `json:"warned"`
	Skipped    int                     `json:"skipped"`
	PassRates  map[criteria.ID]float64 `json:"criterionPassRates"`
}

// Report is the top-level aggregate of a full compliance run. Created once
// at the end of the run and never mutated afterward.
type Report struct {
	RunID       string         `json:"runId"`
	GeneratedAt time.Time      `json:"generatedAt"`
	TotalCards  int            `json:"totalCards"`
	Batches     []*BatchResult `json:"batches"`
	Summary     Summary        `json:"summary"`
	Gaps        []Gap          `json:"gapAnalysis"`
}

// statusTally is the per-criterion raw material for pass rates and gaps.
type statusTally struct {
	pass, fail, warn, skip int
}

func (t statusTally) total() int { return t.pass + t.fail + t.warn + t.skip }

// passRate excludes skips from both sides of the division; an all-skip
// criterion is vacuously satisfied.
func (t statusTally) passRate() float64 {
	denom := t.pass + t.fail + t.warn
	if denom == 0 {
		return 1
	}
	return float64(t.pass) / float64(denom)
}

func (t statusTally) skipRate() float64 {
	if t.total() == 0 {
		return 0
	}
	return float64(t.skip) / float64(t.total())
}

// Aggregate reduces batch results into a final report, including summary
// statistics and the gap analysis.
func Aggregate(runID string, batches []*BatchResult) *Report {
	tallies := make(map[criteria.ID]*statusTally, len(criteria.All))
	for _, id := range criteria.All {
		tallies[id] = &statusTally{}
	}

	summary := Summary{PassRates: make(map[criteria.ID]float64, len(criteria.All))}
	for _, b := range batches {
		for _, card := range b.Cards {
			summary.TotalCards++
			switch card.Overall {
			case criteria.Pass:
				summary.Passed++
			case criteria.Fail:
				summary.Failed++
			case criteria.Warn:
				summary.Warned++
			case criteria.Skip:
				summary.Skipped++
			}
			for id, r := range card.Criteria {
				t, ok := tallies[id]
				if !ok {
					t = &statusTally{}
					tallies[id] = t
				}
				switch r.Status {
				case criteria.Pass:
					t.pass++
				case criteria.Fail:
					t.fail++
				case criteria.Warn:
					t.warn++
				case criteria.Skip:
					t.skip++
				}
			}
		}
	}

	for id, t := range tallies {
		summary.PassRates[id] = t.passRate()
	}

	rep := &Report{
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
		TotalCards:  summary.TotalCards,
		Batches:     batches,
		Summary:     summary,
	}
	rep.Gaps = analyzeGaps(rep, tallies)
	return rep
}

// FailingCards returns every card whose overall status is Fail, in batch
// then card order.
func (r *Report) FailingCards() []*CardResult {
	var out []*CardResult
	for _, b := range r.Batches {
		for _, c := range b.Cards {
			if c.Overall == criteria.Fail {
				out = append(out, c)
			}
		}
	}
	return out
}
