package report

import (
	"fmt"
	"io"

	"github.com/nao1215/imapcheck/internal/model"
)

// SimpleWriter prints one line per account:
//
//	[✅ OK] alice@imap.example.com:993 (implicit-tls): Authenticated and IMAP responded normally
//	Skipping bob@imap.example.com: invalid port 'imaps'
type SimpleWriter struct {
	baseWriter

	// summary prints a closing count line on Flush.
	summary bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithSummary prints "N checked: X ok, Y failed, Z skipped" after the run.
func WithSummary(summary bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.summary = summary
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WriteCheck prints the result line or the skip notice.
func (w *SimpleWriter) WriteCheck(check *model.Check) error {
	line := check.SkipReason
	if !check.Skipped {
		line = check.Result.String()
	}
	_, err := fmt.Fprintln(w.output, line)
	return err
}

// Flush prints the summary line when enabled.
func (w *SimpleWriter) Flush(summary *model.Summary) error {
	if !w.summary || summary == nil {
		return nil
	}
	_, err := fmt.Fprintf(w.output, "%d checked: %d ok, %d failed, %d skipped\n",
		summary.Total, summary.Passed, summary.Failed, summary.Skipped)
	return err
}
