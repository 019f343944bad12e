package probe

import (
	"fmt"
	"strings"
)

// Security selects how the transport is protected before authentication.
// The zero value is not a valid mode.
type Security int

const (
	// SecurityImplicitTLS performs the TLS handshake as part of connection
	// establishment (IMAPS, port 993).
	SecurityImplicitTLS Security = iota + 1

	// SecurityStartTLS connects in cleartext and upgrades with the STARTTLS
	// command before authenticating (port 143).
	SecurityStartTLS

	// SecurityPlain never encrypts the connection (port 143).
	SecurityPlain
)

// Conventional IMAP ports.
const (
	// PortIMAPS is the implicit TLS port.
	PortIMAPS = 993

	// PortIMAP is the cleartext port, also used for STARTTLS.
	PortIMAP = 143
)

// securityUsage is appended to every invalid-security message.
const securityUsage = "must be one of: ssl/implicit-tls, starttls, plain"

// String returns the canonical name of the security mode.
func (s Security) String() string {
	switch s {
	case SecurityImplicitTLS:
		return "implicit-tls"
	case SecurityStartTLS:
		return "starttls"
	case SecurityPlain:
		return "plain"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the defined modes.
func (s Security) Valid() bool {
	return s >= SecurityImplicitTLS && s <= SecurityPlain
}

// DefaultPort returns the conventional port for the security mode:
// 993 for implicit TLS and 143 for everything else.
func (s Security) DefaultPort() int {
	if s == SecurityImplicitTLS {
		return PortIMAPS
	}
	return PortIMAP
}

// ParseSecurity normalizes a security token. Matching is case-insensitive and
// ignores surrounding whitespace. An empty token selects implicit TLS.
// Unknown tokens are rejected with a *ConfigError.
func ParseSecurity(token string) (Security, error) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "", "ssl", "tls", "implicit-tls", "imaps":
		return SecurityImplicitTLS, nil
	case "starttls":
		return SecurityStartTLS, nil
	case "plain", "none":
		return SecurityPlain, nil
	default:
		return 0, &ConfigError{
			Field:   "security",
			Message: fmt.Sprintf("invalid security %q: %s", token, securityUsage),
		}
	}
}

// ResolvePort returns port when it is non-zero, otherwise the default port of
// the security mode. An invalid mode never produces a default.
func ResolvePort(s Security, port int) int {
	if port != 0 {
		return port
	}
	if !s.Valid() {
		return 0
	}
	return s.DefaultPort()
}
