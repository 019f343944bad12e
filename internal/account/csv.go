package account

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/nao1215/imapcheck/internal/model"
)

// Column names of the batch CSV.
const (
	ColumnServer   = "server"
	ColumnUsername = "username"
	ColumnPort     = "port"
	ColumnSecurity = "security"
	ColumnLabel    = "label"
)

// requiredColumns must be present in the header.
var requiredColumns = []string{ColumnServer, ColumnUsername}

const utf8BOM = "\ufeff"

// LoadCSV reads the accounts of a batch file.
func LoadCSV(path string) ([]model.Account, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV: %w", err)
	}
	defer f.Close()

	return ReadCSV(f)
}

// ReadCSV parses a batch CSV. The header is validated before any row is
// read: missing required columns yield a *MissingColumnsError.
func ReadCSV(r io.Reader) ([]model.Account, error) {
	reader := csv.NewReader(skipBOM(r))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	// A stray quote in one cell is read literally.
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyCSV
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns := indexColumns(header)
	if missing := missingColumns(columns); len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	var accounts []model.Account
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		if isBlank(record) {
			continue
		}

		line, _ := reader.FieldPos(0)
		accounts = append(accounts, model.Account{
			Line:     line,
			Server:   cell(record, columns, ColumnServer),
			Username: cell(record, columns, ColumnUsername),
			Port:     cell(record, columns, ColumnPort),
			Security: cell(record, columns, ColumnSecurity),
			Label:    cell(record, columns, ColumnLabel),
		})
	}
	return accounts, nil
}

// indexColumns maps normalized header names to their position. The first
// occurrence of a duplicated name wins.
func indexColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		if _, ok := columns[name]; !ok {
			columns[name] = i
		}
	}
	return columns
}

func missingColumns(columns map[string]int) []string {
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	slices.Sort(missing)
	return missing
}

// cell returns the trimmed value of a column, or "" when the column is absent
// or the row is short.
func cell(record []string, columns map[string]int, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// skipBOM drops a leading UTF-8 byte order mark.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && string(head) == utf8BOM {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
