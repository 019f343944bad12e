package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/nao1215/imapcheck/internal/model"
)

// ErrUnknownFormat is returned by NewWriter for an unsupported format.
var ErrUnknownFormat = errors.New("unknown report format")

// Format names accepted by NewWriter.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Writer outputs check results.
type Writer interface {
	// WriteCheck is called once per finished check, in completion order.
	WriteCheck(check *model.Check) error

	// Flush is called once after the last check.
	Flush(summary *model.Summary) error
}

// NewWriter returns the writer for a format name.
func NewWriter(format string, output io.Writer) (Writer, error) {
	switch format {
	case FormatText, "":
		return NewSimpleWriter(output), nil
	case FormatJSON:
		return NewJSONWriter(output), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// MultiWriter writes to multiple Writers, for example text lines on stdout
// and a Markdown summary in a file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteCheck writes the check to every writer and stops on the first error.
func (m *MultiWriter) WriteCheck(check *model.Check) error {
	for _, w := range m.writers {
		if err := w.WriteCheck(check); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes every writer and stops on the first error.
func (m *MultiWriter) Flush(summary *model.Summary) error {
	for _, w := range m.writers {
		if err := w.Flush(summary); err != nil {
			return err
		}
	}
	return nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
