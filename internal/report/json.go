package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/imapcheck/internal/model"
)

// JSONWriter outputs one JSON object per check (JSON lines).
type JSONWriter struct {
	baseWriter
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer) *JSONWriter {
	return &JSONWriter{
		baseWriter: newBaseWriter(output),
	}
}

// jsonCheck is the JSON shape of a check.
type jsonCheck struct {
	Label      string     `json:"label"`
	OK         bool       `json:"ok"`
	Category   string     `json:"category"`
	Detail     string     `json:"detail"`
	Skipped    bool       `json:"skipped"`
	DurationMS int64      `json:"duration_ms"`
	CheckedAt  *time.Time `json:"checked_at,omitempty"`
}

func newJSONCheck(check *model.Check) jsonCheck {
	jc := jsonCheck{
		Label:      check.Label(),
		OK:         !check.Failed(),
		Category:   check.Category(),
		Detail:     check.Detail(),
		Skipped:    check.Skipped,
		DurationMS: check.Result.Duration.Milliseconds(),
	}
	if at := check.Result.CheckedAt; !at.IsZero() {
		jc.CheckedAt = &at
	}
	return jc
}

// WriteCheck writes the check as one JSON line.
func (w *JSONWriter) WriteCheck(check *model.Check) error {
	data, err := json.Marshal(newJSONCheck(check))
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.output.Write(data)
	return err
}

// Flush does nothing: every check has already been written.
func (w *JSONWriter) Flush(*model.Summary) error {
	return nil
}
