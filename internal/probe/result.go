package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"syscall"
	"time"
)

// SuccessDetail is the detail of every successful Result.
const SuccessDetail = "Authenticated and IMAP responded normally"

// Category is the outcome class of a probe. Failure categories are listed in
// classification priority order: the first one matching a fault wins.
type Category int

const (
	// CategorySuccess means authentication succeeded.
	CategorySuccess Category = iota

	// CategoryConfiguration means the request was invalid; no network I/O
	// took place.
	CategoryConfiguration

	// CategoryProtocol means the server rejected the IMAP exchange, including
	// a rejected login.
	CategoryProtocol

	// CategoryTLS means the TLS handshake or certificate verification failed.
	CategoryTLS

	// CategoryDNS means the server host name could not be resolved.
	CategoryDNS

	// CategoryNetwork means the connection was refused, reset, closed or
	// timed out.
	CategoryNetwork

	// CategoryUnexpected is the catch-all for faults matching nothing above.
	CategoryUnexpected
)

// String returns the category name used in reports and history.
func (c Category) String() string {
	switch c {
	case CategorySuccess:
		return "Success"
	case CategoryConfiguration:
		return "ConfigurationError"
	case CategoryProtocol:
		return "ProtocolError"
	case CategoryTLS:
		return "TlsError"
	case CategoryDNS:
		return "DnsError"
	case CategoryNetwork:
		return "NetworkError"
	case CategoryUnexpected:
		return "UnexpectedError"
	default:
		return "Unknown"
	}
}

// ParseCategory is the inverse of Category.String.
func ParseCategory(s string) (Category, bool) {
	for c := CategorySuccess; c <= CategoryUnexpected; c++ {
		if c.String() == s {
			return c, true
		}
	}
	return 0, false
}

// Result is the outcome of one probe.
type Result struct {
	// Label is "username@server:port (security)".
	Label string `json:"label"`

	// OK is true only for CategorySuccess.
	OK bool `json:"ok"`

	// Category classifies the outcome.
	Category Category `json:"-"`

	// Detail explains the outcome: the category prefix and the underlying
	// message, or SuccessDetail.
	Detail string `json:"detail"`

	// Duration is the wall time spent on the probe.
	Duration time.Duration `json:"-"`

	// CheckedAt is when the probe finished.
	CheckedAt time.Time `json:"checked_at"`
}

// String renders the result as "[✅ OK] label: detail" or
// "[❌ FAIL] label: detail".
func (r Result) String() string {
	status := "❌ FAIL"
	if r.OK {
		status = "✅ OK"
	}
	return fmt.Sprintf("[%s] %s: %s", status, r.Label, r.Detail)
}

// Success returns the successful result for label.
func Success(label string) Result {
	return Result{
		Label:     label,
		OK:        true,
		Category:  CategorySuccess,
		Detail:    SuccessDetail,
		CheckedAt: time.Now(),
	}
}

// Unexpected returns an UnexpectedError result for a fault raised outside the
// session driver, such as a failing password source. kind names the fault.
func Unexpected(label, kind string, err error) Result {
	return Result{
		Label:     label,
		Category:  CategoryUnexpected,
		Detail:    fmt.Sprintf("Unexpected error: %s: %v", kind, err),
		CheckedAt: time.Now(),
	}
}

// Classify turns the fault returned by a probe into a Result. A nil error is
// a success. Every non-nil error maps to exactly one failure category.
func Classify(label string, err error) Result {
	if err == nil {
		return Success(label)
	}

	category := categorize(err)
	return Result{
		Label:     label,
		Category:  category,
		Detail:    detail(category, err),
		CheckedAt: time.Now(),
	}
}

// categorize walks the taxonomy in priority order.
func categorize(err error) Category {
	var (
		configErr   *ConfigError
		protocolErr *ProtocolError
	)

	switch {
	case errors.As(err, &configErr):
		return CategoryConfiguration
	case errors.As(err, &protocolErr):
		return CategoryProtocol
	case isTLSFault(err):
		return CategoryTLS
	case isDNSFault(err):
		return CategoryDNS
	case isNetworkFault(err):
		return CategoryNetwork
	default:
		return CategoryUnexpected
	}
}

// detail formats the message for a failure category.
func detail(category Category, err error) string {
	switch category {
	case CategoryConfiguration:
		var configErr *ConfigError
		if errors.As(err, &configErr) {
			return configErr.Message
		}
		return err.Error()
	case CategoryProtocol:
		var protocolErr *ProtocolError
		if errors.As(err, &protocolErr) && protocolErr.LoginRejected() {
			return "Login failed: server returned " + protocolErr.Status
		}
		return "IMAP error: " + err.Error()
	case CategoryTLS:
		return "TLS/SSL error: " + err.Error()
	case CategoryDNS:
		return "DNS/host error: " + err.Error()
	case CategoryNetwork:
		return "Network error: " + err.Error()
	default:
		return fmt.Sprintf("Unexpected error: %s: %v", faultKind(err), err)
	}
}

// faultKind names an unclassified fault: its Kind() when it has one, the Go
// type of the innermost wrapped error otherwise.
func faultKind(err error) string {
	var kinded interface{ Kind() string }
	if errors.As(err, &kinded) {
		return kinded.Kind()
	}
	for {
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	return fmt.Sprintf("%T", err)
}

// isTLSFault reports handshake, alert and certificate failures.
func isTLSFault(err error) bool {
	var (
		tlsErr      *TLSError
		recordErr   tls.RecordHeaderError
		alertErr    tls.AlertError
		verifyErr   *tls.CertificateVerificationError
		unknownAuth x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		invalidErr  x509.CertificateInvalidError
	)

	switch {
	case errors.As(err, &tlsErr),
		errors.As(err, &recordErr),
		errors.As(err, &alertErr),
		errors.As(err, &verifyErr),
		errors.As(err, &unknownAuth),
		errors.As(err, &hostErr),
		errors.As(err, &invalidErr):
		return true
	}

	// crypto/tls reports most local handshake failures as plain errors.
	return strings.HasPrefix(err.Error(), "tls: ")
}

// isDNSFault reports resolution failures. Resolver timeouts are network
// faults.
func isDNSFault(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr) && !dnsErr.IsTimeout
}

// isNetworkFault reports connection-level failures: refused, reset, closed,
// timed out or cancelled.
func isNetworkFault(err error) bool {
	if isTimeout(err) {
		return true
	}

	var opErr *net.OpError
	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, syscall.ENETUNREACH),
		errors.As(err, &opErr):
		return true
	}
	return false
}

// isTimeout reports deadline and timeout errors from any layer.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
