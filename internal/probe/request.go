package probe

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/net/idna"
	"golang.org/x/text/unicode/norm"
)

// Request describes one credential check. Build it with NewRequest; a Request
// is not modified by the probe.
type Request struct {
	// Server is the IMAP host name or IP address, in ASCII form.
	Server string

	// Port is the TCP port. NewRequest fills in the default for the
	// security mode when the caller passes 0.
	Port int

	// Username is the login name, normalized to Unicode NFC.
	Username string

	// Password is sent to the server once and never rendered by String,
	// GoString or LogValue.
	Password string

	// Security selects how the transport is protected.
	Security Security

	// Timeout bounds every blocking operation of the probe individually.
	Timeout time.Duration
}

// NewRequest validates and normalizes the inputs of a credential check.
// Validation happens before any network I/O; failures are *ConfigError.
//
// The security token is parsed with ParseSecurity, the port defaults from the
// normalized security mode, Unicode host names are converted to ASCII and the
// username is normalized to NFC.
func NewRequest(server string, port int, username, password, security string, timeout time.Duration) (Request, error) {
	sec, err := ParseSecurity(security)
	if err != nil {
		return Request{}, err
	}

	req := Request{
		Server:   asciiHost(strings.TrimSpace(server)),
		Port:     ResolvePort(sec, port),
		Username: norm.NFC.String(strings.TrimSpace(username)),
		Password: password,
		Security: sec,
		Timeout:  timeout,
	}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Validate checks the request fields. It returns a *ConfigError describing
// the first problem found.
func (r Request) Validate() error {
	switch {
	case !r.Security.Valid():
		return &ConfigError{Field: "security", Message: fmt.Sprintf("invalid security %q: %s", r.Security.String(), securityUsage)}
	case r.Server == "":
		return &ConfigError{Field: "server", Message: "server must not be empty"}
	case r.Username == "":
		return &ConfigError{Field: "username", Message: "username must not be empty"}
	case r.Port <= 0 || r.Port > 65535:
		return &ConfigError{Field: "port", Message: fmt.Sprintf("invalid port %d: must be between 1 and 65535", r.Port)}
	case r.Timeout <= 0:
		return &ConfigError{Field: "timeout", Message: "timeout must be positive"}
	}
	return nil
}

// Label returns the display identifier "username@server:port (security)".
func (r Request) Label() string {
	return FormatLabel(r.Username, r.Server, r.Port, r.Security.String())
}

// Address returns the "host:port" dial address.
func (r Request) Address() string {
	return joinHostPort(r.Server, r.Port)
}

// String renders the request without its password.
func (r Request) String() string {
	return r.Label()
}

// GoString renders the request for %#v without its password.
func (r Request) GoString() string {
	return fmt.Sprintf("probe.Request{Server:%q, Port:%d, Username:%q, Security:%s, Timeout:%s}",
		r.Server, r.Port, r.Username, r.Security, r.Timeout)
}

// LogValue implements slog.LogValuer. The password is never included.
func (r Request) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("server", r.Server),
		slog.Int("port", r.Port),
		slog.String("username", r.Username),
		slog.String("security", r.Security.String()),
		slog.Duration("timeout", r.Timeout),
	)
}

// FormatLabel builds the "username@server:port (security)" label. The port
// is omitted when it is not known, which happens when the security token was
// rejected before a default port could be derived from it.
func FormatLabel(username, server string, port int, security string) string {
	if port <= 0 {
		return fmt.Sprintf("%s@%s (%s)", username, server, security)
	}
	return fmt.Sprintf("%s@%s:%d (%s)", username, server, port, security)
}

// asciiHost converts an internationalized host name to its ASCII form.
// Hosts that cannot be converted are returned unchanged and fail later at
// resolution time.
func asciiHost(host string) string {
	if host == "" {
		return host
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return host
	}
	return ascii
}
