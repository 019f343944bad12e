package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/imapcheck/internal/model"
)

// FileName is the name of the database file inside the history directory.
const FileName = "imapcheck.db"

// storedTimeFormat is fixed-width so that timestamps sort lexically.
const storedTimeFormat = "2006-01-02T15:04:05.000000000Z"

// ErrNotFound is returned when the database does not exist and may not be
// created.
var ErrNotFound = errors.New("history database not found")

// DB stores check results.
type DB struct {
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures DB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dir.
func Open(dir string, opts Options) (*DB, error) {
	dbPath := filepath.Join(dir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	mode := "rw"
	if opts.CreateIfNotExists {
		mode = "rwc"
	}

	db, err := sql.Open("sqlite", dbPath+"?mode="+mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &DB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (h *DB) Close() error {
	return h.db.Close()
}

// Path returns the database file path.
func (h *DB) Path() string {
	return h.dbPath
}

func (h *DB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS checks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		checked_at TEXT NOT NULL,
		label TEXT NOT NULL,
		server TEXT NOT NULL,
		username TEXT NOT NULL,
		port INTEGER NOT NULL DEFAULT 0,
		security TEXT NOT NULL DEFAULT '',
		ok INTEGER NOT NULL,
		skipped INTEGER NOT NULL DEFAULT 0,
		category TEXT NOT NULL,
		detail TEXT NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_checks_run ON checks(run_id);
	CREATE INDEX IF NOT EXISTS idx_checks_checked_at ON checks(checked_at);
	CREATE INDEX IF NOT EXISTS idx_checks_label ON checks(label);
	`

	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// Record is one stored check.
type Record struct {
	ID        int64         `json:"id"`
	RunID     string        `json:"run_id"`
	CheckedAt time.Time     `json:"checked_at"`
	Label     string        `json:"label"`
	Server    string        `json:"server"`
	Username  string        `json:"username"`
	Port      int           `json:"port,omitempty"`
	Security  string        `json:"security,omitempty"`
	OK        bool          `json:"ok"`
	Skipped   bool          `json:"skipped,omitempty"`
	Category  string        `json:"category"`
	Detail    string        `json:"detail"`
	Duration  time.Duration `json:"duration_ns"`
}

// NewRecord builds a record from a finished check. Resolved request values
// are preferred over the raw account values.
func NewRecord(runID string, check *model.Check) *Record {
	rec := &Record{
		RunID:     runID,
		CheckedAt: check.Result.CheckedAt,
		Label:     check.Label(),
		Server:    check.Account.Server,
		Username:  check.Account.Username,
		Security:  check.Account.Security,
		OK:        !check.Failed(),
		Skipped:   check.Skipped,
		Category:  check.Category(),
		Detail:    check.Detail(),
		Duration:  check.Result.Duration,
	}
	if req := check.Request; req.Server != "" {
		rec.Server = req.Server
		rec.Username = req.Username
		rec.Port = req.Port
		rec.Security = req.Security.String()
	}
	if rec.CheckedAt.IsZero() {
		rec.CheckedAt = time.Now()
	}
	return rec
}

// RecordCheck stores a finished check.
func (h *DB) RecordCheck(ctx context.Context, runID string, check *model.Check) error {
	_, err := h.Insert(ctx, NewRecord(runID, check))
	return err
}

// Insert stores a record and returns its id.
func (h *DB) Insert(ctx context.Context, rec *Record) (int64, error) {
	query := `
	INSERT INTO checks (run_id, checked_at, label, server, username, port, security, ok, skipped, category, detail, duration_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := h.db.ExecContext(ctx, query,
		rec.RunID,
		rec.CheckedAt.UTC().Format(storedTimeFormat),
		rec.Label,
		rec.Server,
		rec.Username,
		rec.Port,
		rec.Security,
		rec.OK,
		rec.Skipped,
		rec.Category,
		rec.Detail,
		rec.Duration.Milliseconds(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert check: %w", err)
	}
	return result.LastInsertId()
}

// ListOptions filters List.
type ListOptions struct {
	// Limit is the maximum number of records. Zero or less means no limit.
	Limit int

	// Account keeps records whose label contains this substring,
	// case-insensitively.
	Account string

	// FailedOnly keeps failed and skipped checks.
	FailedOnly bool

	// RunID keeps the records of one run.
	RunID string
}

// List returns stored checks, newest first.
func (h *DB) List(ctx context.Context, opts ListOptions) ([]Record, error) {
	query := `
	SELECT id, run_id, checked_at, label, server, username, port, security, ok, skipped, category, detail, duration_ms
	FROM checks
	WHERE 1=1
	`
	args := make([]any, 0)

	if opts.Account != "" {
		query += " AND LOWER(label) LIKE ? ESCAPE '\\'"
		args = append(args, "%"+escapeLike(strings.ToLower(opts.Account))+"%")
	}
	if opts.FailedOnly {
		query += " AND ok = 0"
	}
	if opts.RunID != "" {
		query += " AND run_id = ?"
		args = append(args, opts.RunID)
	}

	query += " ORDER BY checked_at DESC, id DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query checks: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var checkedAt string
		var durationMS int64
		if err := rows.Scan(
			&rec.ID,
			&rec.RunID,
			&checkedAt,
			&rec.Label,
			&rec.Server,
			&rec.Username,
			&rec.Port,
			&rec.Security,
			&rec.OK,
			&rec.Skipped,
			&rec.Category,
			&rec.Detail,
			&durationMS,
		); err != nil {
			return nil, fmt.Errorf("failed to scan check: %w", err)
		}
		rec.CheckedAt = parseTimestamp(checkedAt)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read checks: %w", err)
	}
	return records, nil
}

// escapeLike escapes LIKE wildcards so that the filter is a plain substring.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	storedTimeFormat,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
