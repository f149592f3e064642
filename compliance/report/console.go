package report

import (
	"bytes"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rishi-jat/cardwatch/compliance/criteria"
)

// ConsoleWriter renders a compact plain-text summary for terminal output.
// It carries the same numbers as the Markdown report, without the prose.
type ConsoleWriter struct {
	output io.Writer
}

// NewConsoleWriter creates a ConsoleWriter.
func NewConsoleWriter(output io.Writer) *ConsoleWriter {
	return &ConsoleWriter{output: output}
}

// Write renders the summary.
func (w *ConsoleWriter) Write(r *Report) (int, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "run %s: %d cards — %d passed, %d failed, %d warned, %d skipped\n",
		r.RunID, r.Summary.TotalCards,
		r.Summary.Passed, r.Summary.Failed, r.Summary.Warned, r.Summary.Skipped)

	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	for _, id := range criteria.All {
		rate, ok := r.Summary.PassRates[id]
		if !ok {
			continue
		}
		fmt.Fprintf(tw, "  %s\t%.0f%%\n", id.Name(), rate*100)
	}
	tw.Flush()

	if failing := r.FailingCards(); len(failing) > 0 {
		fmt.Fprintf(&buf, "failing cards (%d):\n", len(failing))
		for _, c := range failing {
			fmt.Fprintf(&buf, "  %s (%s): %v\n", c.CardID, c.CardType, c.FailedCriteria())
		}
	}

	n, err := w.output.Write(buf.Bytes())
	if err != nil {
		return n, fmt.Errorf("report: write console summary: %w", err)
	}
	return n, nil
}
