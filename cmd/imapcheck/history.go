package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/imapcheck/internal/config"
	"github.com/nao1215/imapcheck/internal/history"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded check results",
		Long: `History lists the results recorded by runs started with --history,
newest first. Passwords are never recorded.

Examples:
  # Show the last 20 results
  imapcheck history

  # Show failures for one account
  imapcheck history --failed --account alice@example.com

  # Export the last 100 results as JSON
  imapcheck history -l 100 --json`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "l", config.DefaultHistoryLimit,
		"Maximum number of results to show (0 = all)")
	cmd.Flags().StringP("account", "a", "",
		"Only show results whose label contains this text")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON")
	cmd.Flags().Bool("failed", false,
		"Only show failed and skipped checks")
	cmd.Flags().String("run", "",
		"Only show results of one run")
	cmd.Flags().String("history-dir", config.XDGDataDir(),
		"Directory of the history database")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()

	limit, err := flags.GetInt("limit")
	if err != nil {
		return err
	}
	if limit < 0 {
		return fmt.Errorf("invalid limit %d: must not be negative", limit)
	}
	accountFilter, err := flags.GetString("account")
	if err != nil {
		return err
	}
	asJSON, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	failedOnly, err := flags.GetBool("failed")
	if err != nil {
		return err
	}
	runID, err := flags.GetString("run")
	if err != nil {
		return err
	}
	dir, err := flags.GetString("history-dir")
	if err != nil {
		return err
	}
	if !flags.Changed("history-dir") {
		dir = historyDirFromConfig(dir)
	}

	out := cmd.OutOrStdout()

	db, err := history.Open(dir, history.Options{CreateIfNotExists: false, EnableWAL: true})
	if errors.Is(err, history.ErrNotFound) {
		fmt.Fprintf(out, "No history found in %s (run a check with --history first)\n",
			filepath.Join(dir, history.FileName))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	records, err := db.List(cmd.Context(), history.ListOptions{
		Limit:      limit,
		Account:    accountFilter,
		FailedOnly: failedOnly,
		RunID:      runID,
	})
	if err != nil {
		return err
	}

	if asJSON {
		return printHistoryJSON(out, records)
	}
	printHistory(out, records)
	return nil
}

// printHistoryJSON writes the records as an indented JSON array.
func printHistoryJSON(w io.Writer, records []history.Record) error {
	if records == nil {
		records = []history.Record{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(records)
}

// printHistory writes the records as a table with relative times.
func printHistory(w io.Writer, records []history.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No results found")
		return
	}

	fmt.Fprintf(w, "Check history (%d results):\n\n", len(records))
	fmt.Fprintf(w, "  %-6s  %-16s  %-6s  %-20s  %s\n", "ID", "When", "Status", "Category", "Account")
	for _, rec := range records {
		fmt.Fprintf(w, "  %-6d  %-16s  %-6s  %-20s  %s\n",
			rec.ID,
			humanize.Time(rec.CheckedAt),
			historyStatus(rec),
			rec.Category,
			rec.Label,
		)
		if rec.Detail != "" {
			fmt.Fprintf(w, "  %-6s  %s\n", "", rec.Detail)
		}
	}
}

// historyDirFromConfig returns the historyDir of the configuration file,
// or def when no file sets it.
func historyDirFromConfig(def string) string {
	path := config.FindConfigFile("")
	if path == "" {
		return def
	}
	file, err := config.LoadConfigFile(path)
	if err != nil || file.HistoryDir == "" {
		return def
	}
	return file.HistoryDir
}

// historyStatus returns the short status of a record.
func historyStatus(rec history.Record) string {
	switch {
	case rec.Skipped:
		return "SKIP"
	case rec.OK:
		return "OK"
	default:
		return "FAIL"
	}
}
