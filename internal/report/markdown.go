package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/imapcheck/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter collects checks and writes a summary document on Flush.
type MarkdownWriter struct {
	baseWriter

	checks []*model.Check
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WriteCheck remembers the check for the summary.
func (w *MarkdownWriter) WriteCheck(check *model.Check) error {
	w.checks = append(w.checks, check)
	return nil
}

// Flush writes the document.
func (w *MarkdownWriter) Flush(summary *model.Summary) error {
	if summary == nil {
		summary = model.NewSummary("", time.Time{})
		for _, c := range w.checks {
			summary.Add(c)
		}
	}

	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeCategories(md, summary)
	w.writeResults(md)
	w.writeFooter(md)

	return md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *model.Summary) {
	md.H1("IMAP Credential Check")
	md.PlainText("")

	rows := [][]string{}
	if summary.RunID != "" {
		rows = append(rows, []string{"Run", "`" + summary.RunID + "`"})
	}
	if !summary.StartedAt.IsZero() {
		rows = append(rows, []string{"Started", summary.StartedAt.Format("2006-01-02 15:04:05 MST")})
	}
	rows = append(rows,
		[]string{"Accounts", strconv.Itoa(summary.Total)},
		[]string{"✅ Passed", strconv.Itoa(summary.Passed)},
		[]string{"❌ Failed", strconv.Itoa(summary.Failed)},
		[]string{"⏭️ Skipped", strconv.Itoa(summary.Skipped)},
	)

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	switch {
	case summary.Total == 0:
		md.Note("No accounts were checked.")
	case summary.AllPassed():
		md.Tip("Every credential was accepted.")
	case summary.Passed == 0:
		md.Cautionf("No credential was accepted: %d failed, %d skipped.", summary.Failed, summary.Skipped)
	default:
		md.Warningf("%d of %d accounts did not pass.", summary.Failed+summary.Skipped, summary.Total)
	}
	md.PlainText("")
}

// writeCategories writes the outcome distribution.
func (w *MarkdownWriter) writeCategories(md *markdown.Markdown, summary *model.Summary) {
	categories := summary.Categories()
	if len(categories) == 0 {
		return
	}

	md.H2("Outcomes")
	md.PlainText("")

	rows := make([][]string, 0, len(categories))
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Outcome Distribution"),
		piechart.WithShowData(true),
	)
	for _, name := range categories {
		count := summary.ByCategory[name]
		rows = append(rows, []string{name, strconv.Itoa(count)})
		chart.LabelAndIntValue(name, uint64(count)) //nolint:gosec // counts are non-negative
	}

	md.Table(markdown.TableSet{
		Header: []string{"Category", "Count"},
		Rows:   rows,
	})
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeResults(md *markdown.Markdown) {
	md.H2("Results")
	md.PlainText("")

	if len(w.checks) == 0 {
		md.PlainText("No results.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(w.checks))
	for i, c := range w.checks {
		status := "✅ OK"
		if c.Failed() {
			status = "❌ FAIL"
		}
		duration := "-"
		if d := c.Result.Duration; d > 0 {
			duration = d.Round(time.Millisecond).String()
		}
		rows[i] = []string{
			status,
			"`" + c.Label() + "`",
			c.Category(),
			truncateString(c.Detail(), 80),
			duration,
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Status", "Account", "Category", "Detail", "Duration"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [imapcheck](https://github.com/nao1215/imapcheck)*")
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
