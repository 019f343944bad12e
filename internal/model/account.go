package model

import "fmt"

// Account is one set of connection parameters to check, as read from the
// command line or from a batch row. Values are trimmed but otherwise raw:
// security and port are resolved later so that a bad row yields a failing
// result instead of aborting the run.
type Account struct {
	// Line is the 1-based line of the batch row, or 0 for the single account
	// given on the command line.
	Line int `json:"line,omitempty"`

	// Label is the display label. Empty means "<username>@<server>".
	Label string `json:"label,omitempty"`

	// Server is the IMAP host.
	Server string `json:"server"`

	// Username is the login name.
	Username string `json:"username"`

	// Security is the raw security token (ssl, starttls, plain, ...).
	Security string `json:"security,omitempty"`

	// Port is the raw port cell. Empty means the default for the security
	// mode.
	Port string `json:"port,omitempty"`
}

// DisplayLabel returns Label, or "<username>@<server>" when it is empty.
// It is used for password prompts and skip notices.
func (a Account) DisplayLabel() string {
	if a.Label != "" {
		return a.Label
	}
	return fmt.Sprintf("%s@%s", a.Username, a.Server)
}
