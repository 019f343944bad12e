package probe

import (
	"errors"
	"fmt"
	"time"
)

// Errors reported by the session driver. They are wrapped in *ProtocolError
// before they reach the classifier.
var (
	// ErrStartTLSUnsupported is returned when STARTTLS was requested but the
	// server does not advertise the capability.
	ErrStartTLSUnsupported = errors.New("server does not support STARTTLS")

	// ErrLoginDisabled is returned when the server advertises LOGINDISABLED
	// on the current connection, typically a cleartext one.
	ErrLoginDisabled = errors.New("server disabled LOGIN on this connection (LOGINDISABLED)")

	// ErrAuthPlainUnsupported is returned when AUTHENTICATE PLAIN was requested
	// but the server does not advertise AUTH=PLAIN.
	ErrAuthPlainUnsupported = errors.New("server does not support AUTHENTICATE PLAIN")

	// ErrPreauthenticated is returned when the server greets with PREAUTH, so
	// the supplied credentials are never checked.
	ErrPreauthenticated = errors.New("server pre-authenticated the connection; credentials were not verified")
)

// ConfigError reports a problem with the caller's input. It is raised before
// any network I/O takes place.
type ConfigError struct {
	// Field names the offending request field (e.g. "security").
	Field string

	// Message is the human-readable validation message.
	Message string
}

// Error implements error.
func (e *ConfigError) Error() string {
	return e.Message
}

// ProtocolError reports that the server rejected the exchange at the IMAP
// level: a tagged NO/BAD, an unsupported STARTTLS, a malformed greeting.
type ProtocolError struct {
	// Command is the IMAP command that failed, if known.
	Command string

	// Status is the tagged status type (NO, BAD) when the server answered the
	// authentication command with something other than OK. It is empty for
	// other protocol faults.
	Status string

	// Info is the human-readable text of the tagged status response.
	Info string

	// Err is the underlying error, if any.
	Err error
}

// Error implements error.
func (e *ProtocolError) Error() string {
	if e.Status != "" {
		if e.Info != "" {
			return fmt.Sprintf("%s returned %s: %s", e.Command, e.Status, e.Info)
		}
		return fmt.Sprintf("%s returned %s", e.Command, e.Status)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "protocol error"
}

// Unwrap returns the underlying error.
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// LoginRejected reports whether the error is an authentication command
// answered with a non-OK status.
func (e *ProtocolError) LoginRejected() bool {
	return e.Status != ""
}

// TLSError reports a failed TLS handshake or certificate verification.
type TLSError struct {
	Err error
}

// Error implements error.
func (e *TLSError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *TLSError) Unwrap() error {
	return e.Err
}

// TimeoutError reports that a single operation did not finish within the
// request timeout. It satisfies net.Error.
type TimeoutError struct {
	// Op is the operation that timed out (e.g. "greeting", "login").
	Op string

	// Limit is the bound that was exceeded.
	Limit time.Duration
}

// Error implements error.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out after %s", e.Op, e.Limit)
}

// Timeout implements net.Error.
func (e *TimeoutError) Timeout() bool { return true }

// Temporary implements net.Error.
func (e *TimeoutError) Temporary() bool { return true }

// PanicError carries a value recovered from a panic inside a probe.
type PanicError struct {
	Value any
}

// Error implements error.
func (e *PanicError) Error() string {
	return fmt.Sprint(e.Value)
}

// Kind names the fault in UnexpectedError details.
func (e *PanicError) Kind() string {
	return "panic"
}
