package config

import (
	"path/filepath"
	"slices"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "imapcheck"

	// DefaultSecurity is the security token used when none is given.
	DefaultSecurity = "ssl"

	// DefaultTimeout bounds each blocking network operation of a probe.
	DefaultTimeout = 15 * time.Second

	// DefaultConcurrency keeps probes sequential.
	DefaultConcurrency = 1

	// DefaultMailbox is selected read-only after a successful login.
	DefaultMailbox = "INBOX"

	// DefaultAuth is the authentication command.
	DefaultAuth = AuthLogin

	// DefaultFormat is the result output format.
	DefaultFormat = FormatText

	// DefaultHistoryLimit is the number of records listed by the history
	// command.
	DefaultHistoryLimit = 20
)

// Output formats.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Authentication commands.
const (
	AuthLogin = "login"
	AuthPlain = "plain"
)

// Formats lists the accepted output formats.
var Formats = []string{FormatText, FormatJSON, FormatMarkdown}

// Config holds all options of a check run. It is populated from flags and
// the defaults file and passed down explicitly.
type Config struct {
	// CSVPath is the batch file. Mutually exclusive with Server.
	CSVPath string

	// Server is the IMAP host of a single-account check.
	Server string

	// Username is required with Server.
	Username string

	// Port of a single-account check. Zero means the default for Security.
	Port int

	// Security is the raw security token of a single-account check. It is
	// validated by the probe so that a bad value yields a failing result.
	Security string

	// Password is the --password value. Empty means prompt. It is never read
	// from the defaults file.
	Password string

	// Timeout bounds every blocking network operation separately.
	Timeout time.Duration

	// Concurrency is the maximum number of probes in flight.
	Concurrency int

	// RateLimit is the maximum number of connection attempts per second.
	// Zero disables the limit.
	RateLimit float64

	// Proxy is a socks5:// URL. Empty means direct connections.
	Proxy string

	// Mailbox is selected read-only after login.
	Mailbox string

	// Auth is "login" or "plain" (AUTHENTICATE PLAIN).
	Auth string

	// CAFile adds PEM trust anchors to the system roots.
	CAFile string

	// Format is the output format: text, json or markdown.
	Format string

	// OutputFile receives the formatted output. Text lines are still
	// streamed to stdout when it is set.
	OutputFile string

	// History records results in the history database.
	History bool

	// HistoryDir is the directory of the history database.
	HistoryDir string

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the --config value.
	ConfigFilePath string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Security:    DefaultSecurity,
		Timeout:     DefaultTimeout,
		Concurrency: DefaultConcurrency,
		Mailbox:     DefaultMailbox,
		Auth:        DefaultAuth,
		Format:      DefaultFormat,
		HistoryDir:  XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for imapcheck.
// On Linux: ~/.local/share/imapcheck
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for imapcheck.
// On Linux: ~/.config/imapcheck
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// BatchMode reports whether accounts come from a CSV file.
func (c *Config) BatchMode() bool {
	return c.CSVPath != ""
}

// Validate checks if the configuration is valid. It returns the first
// problem found.
func (c *Config) Validate() error {
	if c.CSVPath == "" && c.Server == "" {
		return ErrNoAccounts
	}
	if c.CSVPath != "" && c.Server != "" {
		return ErrConflictingSources
	}
	if c.Server != "" && c.Username == "" {
		return ErrMissingUsername
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.RateLimit < 0 {
		return ErrInvalidRateLimit
	}
	if c.Mailbox == "" {
		return ErrEmptyMailbox
	}
	if c.Auth != AuthLogin && c.Auth != AuthPlain {
		return ErrInvalidAuth
	}
	if !slices.Contains(Formats, c.Format) {
		return ErrInvalidFormat
	}
	return nil
}
