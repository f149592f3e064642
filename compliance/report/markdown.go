package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/rishi-jat/cardwatch/compliance/criteria"
)

// MarkdownWriter renders the human-readable summary operators read in CI:
// a per-criterion pass-rate table, a failures table, totals, and the gap
// analysis.
type MarkdownWriter struct {
	output io.Writer
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: output}
}

// Write renders the full summary document.
func (w *MarkdownWriter) Write(r *Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Card Loading Compliance Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run", "`" + r.RunID + "`"},
			{"Generated", r.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
			{"Cards evaluated", strconv.Itoa(r.TotalCards)},
			{"Batches", strconv.Itoa(len(r.Batches))},
		},
	})
	md.PlainText("")

	w.writePassRates(md, r)
	w.writeFailures(md, r)
	w.writeTotals(md, r)
	w.writeGaps(md, r)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writePassRates(md *markdown.Markdown, r *Report) {
	md.H2("Criterion Pass Rates")
	md.PlainText("")
	md.PlainText("Rates exclude skipped cards; a criterion skipped everywhere counts as fully passing.")
	md.PlainText("")

	rows := make([][]string, 0, len(criteria.All))
	for _, id := range criteria.All {
		rate, ok := r.Summary.PassRates[id]
		if !ok {
			continue
		}
		rows = append(rows, []string{
			id.Name(),
			fmt.Sprintf("%.1f%%", rate*100),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Criterion", "Pass Rate"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, r *Report) {
	failing := r.FailingCards()
	if len(failing) == 0 {
		return
	}

	md.H2("Failing Cards")
	md.PlainText("")

	rows := make([][]string, 0, len(failing))
	for _, c := range failing {
		for _, id := range c.FailedCriteria() {
			rows = append(rows, []string{
				"`" + c.CardID + "`",
				c.CardType,
				id.Name(),
				c.Criteria[id].Details,
			})
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Card", "Type", "Failed Criterion", "Details"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeTotals(md *markdown.Markdown, r *Report) {
	md.H2("Totals")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Overall Status", "Cards"},
		Rows: [][]string{
			{"✅ Pass", strconv.Itoa(r.Summary.Passed)},
			{"❌ Fail", strconv.Itoa(r.Summary.Failed)},
			{"⚠️ Warn", strconv.Itoa(r.Summary.Warned)},
			{"⏭️ Skip", strconv.Itoa(r.Summary.Skipped)},
			{"**Total**", "**" + strconv.Itoa(r.Summary.TotalCards) + "**"},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeGaps(md *markdown.Markdown, r *Report) {
	if len(r.Gaps) == 0 {
		return
	}

	md.H2("Gap Analysis")
	md.PlainText("")

	rows := make([][]string, 0, len(r.Gaps))
	for _, g := range r.Gaps {
		rows = append(rows, []string{
			g.Area,
			string(g.Priority),
			g.Observation,
			g.SuggestedImprovement,
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Area", "Priority", "Observation", "Suggested Improvement"},
		Rows:   rows,
	})
	md.PlainText("")
}
