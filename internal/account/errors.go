package account

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingColumns is matched by *MissingColumnsError.
var ErrMissingColumns = errors.New("CSV is missing required columns")

// ErrEmptyCSV is returned when the CSV has no header row.
var ErrEmptyCSV = errors.New("CSV is empty: a header row is required")

// MissingColumnsError names the required columns absent from the header.
type MissingColumnsError struct {
	// Columns is sorted.
	Columns []string
}

// Error implements error.
func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingColumns.Error(), strings.Join(e.Columns, ", "))
}

// Is reports whether target is ErrMissingColumns.
func (e *MissingColumnsError) Is(target error) bool {
	return target == ErrMissingColumns
}

// InvalidPortError reports a port cell that is not an integer. The row is
// skipped rather than probed.
type InvalidPortError struct {
	// Label is the display label of the row.
	Label string

	// Port is the raw cell.
	Port string
}

// Error implements error. The text is the notice printed for the row.
func (e *InvalidPortError) Error() string {
	return fmt.Sprintf("Skipping %s: invalid port '%s'", e.Label, e.Port)
}
