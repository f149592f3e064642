package report

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rishi-jat/cardwatch/compliance/criteria"
)

// ErrGateFailed signals that a completed run breached the CI thresholds.
// Callers receive it only after the report artifacts were written, so the
// evidence survives the failure.
var ErrGateFailed = errors.New("report: compliance gate failed")

// Gate is the pass/fail threshold set for CI.
type Gate struct {
	// MinPassRates maps a criterion to the minimum acceptable pass rate.
	MinPassRates map[criteria.ID]float64
	// MaxFailedCards is the exclusive tolerance for cards with overall
	// status fail.
	MaxFailedCards int
}

// DefaultGate gates on streaming usage, skeleton transition and persistent
// caching, plus an overall failure tolerance.
func DefaultGate() Gate {
	return Gate{
		MinPassRates: map[criteria.ID]float64{
			criteria.StreamingUsage:     0.95,
			criteria.SkeletonTransition: 0.95,
			criteria.PersistentCache:    0.95,
		},
		MaxFailedCards: 20,
	}
}

// Check validates the report against the gate. On breach it returns an
// error wrapping ErrGateFailed that names every violated threshold.
func (g Gate) Check(r *Report) error {
	var violations []string

	for _, id := range criteria.All {
		min, ok := g.MinPassRates[id]
		if !ok {
			continue
		}
		rate, ok := r.Summary.PassRates[id]
		if !ok {
			continue
		}
		if rate < min {
			violations = append(violations, fmt.Sprintf(
				"%s pass rate %.1f%% below required %.1f%%",
				id.Name(), rate*100, min*100))
		}
	}

	if r.Summary.Failed >= g.MaxFailedCards {
		violations = append(violations, fmt.Sprintf(
			"%d cards failed, tolerance is %d", r.Summary.Failed, g.MaxFailedCards))
	}

	if len(violations) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrGateFailed, strings.Join(violations, "; "))
}
