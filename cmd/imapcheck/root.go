package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/nao1215/imapcheck/internal/config"
	"github.com/spf13/cobra"
)

// ErrChecksFailed is returned when at least one account did not
// authenticate. It maps to exit status 2.
var ErrChecksFailed = errors.New("one or more checks failed")

// Exit statuses.
const (
	exitOK     = 0
	exitFatal  = 1
	exitFailed = 2
)

// NewRootCmd creates the root command. Run without a subcommand it checks
// the accounts given by --server or --csv.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "imapcheck",
		Short: "Verify IMAP passwords without storing them",
		Long: `imapcheck verifies IMAP credentials. For every account it connects with the
chosen transport security, logs in, selects a mailbox read-only and logs out,
then prints one line with the outcome.

Passwords are prompted without echo and are never written to disk or logs.

Examples:
  # Check one account over implicit TLS (port 993)
  imapcheck --server imap.example.com --username alice@example.com

  # Check one account with STARTTLS on port 143
  imapcheck --server imap.example.com --username alice@example.com --security starttls

  # Check every account of a CSV file (server,username[,port,security,label])
  imapcheck --csv accounts.csv

  # Check 4 accounts at a time through a SOCKS5 proxy and keep a history
  imapcheck --csv accounts.csv -n 4 --proxy socks5://127.0.0.1:1080 --history

Exit status is 0 when every account authenticated, 2 when at least one did
not, and 1 on fatal errors.`,
		Version:       getVersion(),
		Args:          cobra.NoArgs,
		RunE:          runCheckCmd,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Account selection
	cmd.Flags().String("csv", "",
		"Path to CSV with accounts (server,username[,port,security,label])")
	cmd.Flags().String("server", "",
		"IMAP server hostname (e.g., imap.example.com)")
	cmd.Flags().String("username", "",
		"Username (email address), required with --server")
	cmd.Flags().Int("port", 0,
		"IMAP port (default: 993 for ssl, 143 otherwise)")
	cmd.Flags().String("security", config.DefaultSecurity,
		"Transport security: ssl, starttls or plain")
	cmd.Flags().String("password", "",
		"Password (discouraged: visible in the process list; prompted when empty)")
	cmd.MarkFlagsMutuallyExclusive("csv", "server")

	// Probe behavior
	cmd.Flags().Int("timeout", int(config.DefaultTimeout.Seconds()),
		"Timeout in seconds for each network operation")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of accounts checked at the same time")
	cmd.Flags().Float64("rate", 0,
		"Maximum connection attempts per second (0 = unlimited)")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy URL (socks5://[user:pass@]host:port)")
	cmd.Flags().String("mailbox", config.DefaultMailbox,
		"Mailbox selected read-only after login")
	cmd.Flags().String("auth", config.DefaultAuth,
		"Authentication command: login or plain (AUTHENTICATE PLAIN)")
	cmd.Flags().String("ca-file", "",
		"PEM file with extra trusted CA certificates")

	// Output
	cmd.Flags().StringP("format", "f", config.DefaultFormat,
		"Output format: text, json or markdown")
	cmd.Flags().StringP("output", "o", "",
		"Write the formatted results to a file (text lines still go to stdout)")
	cmd.Flags().Bool("history", false,
		"Record results in the history database")
	cmd.Flags().String("history-dir", config.XDGDataDir(),
		"Directory of the history database")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .imapcheck in current or home directory)")

	// Add subcommands
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command and exits with the matching status.
func Execute() {
	err := NewRootCmd().Execute()
	if err != nil && !errors.Is(err, ErrChecksFailed) {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(exitCode(err))
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, ErrChecksFailed):
		return exitFailed
	default:
		return exitFatal
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}
