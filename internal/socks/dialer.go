package socks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// SOCKS5 protocol constants used by CheckConnection.
const (
	socks5Version        = 0x05
	socks5AuthNone       = 0x00
	socks5AuthPassword   = 0x02
	socks5AuthNoAccept   = 0xFF
	defaultSOCKS5Port    = "1080"
	defaultCheckDeadline = 5 * time.Second
)

// Dialer dials TCP connections through a SOCKS5 proxy. It is safe for
// concurrent use; every DialContext opens its own proxy connection.
type Dialer struct {
	// address is the proxy "host:port".
	address string

	// redacted is the proxy URL with any password masked, for display.
	redacted string

	// withAuth is true when the URL carries credentials.
	withAuth bool

	// forward dials the proxy itself.
	forward *net.Dialer

	// dialer is the SOCKS5 dialer built by x/net/proxy.
	dialer proxy.ContextDialer
}

// NewDialer builds a Dialer from a "socks5://[user:pass@]host[:port]" URL.
// The port defaults to 1080. connectTimeout bounds the TCP connection to the
// proxy; zero means no bound beyond the caller's context.
//
// NewDialer does not contact the proxy. Call CheckConnection to verify it.
func NewDialer(rawURL string, connectTimeout time.Duration) (*Dialer, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidProxyURL, redactRaw(rawURL))
	}
	if u.Scheme != "socks5" && u.Scheme != "socks5h" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidProxyURL, u.Redacted())
	}
	port := u.Port()
	if port == "" {
		port = defaultSOCKS5Port
	}
	if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidProxyURL, u.Redacted())
	}

	forward := &net.Dialer{Timeout: connectTimeout}
	d, err := proxy.FromURL(u, forward)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %T does not support contexts", d)
	}

	return &Dialer{
		address:  net.JoinHostPort(u.Hostname(), port),
		redacted: u.Redacted(),
		withAuth: u.User != nil,
		forward:  forward,
		dialer:   cd,
	}, nil
}

// DialContext connects to address through the proxy.
func (d *Dialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return d.dialer.DialContext(ctx, network, address)
}

// Address returns the proxy "host:port".
func (d *Dialer) Address() string {
	return d.address
}

// String returns the proxy URL with its password masked.
func (d *Dialer) String() string {
	return d.redacted
}

// CheckConnection verifies that the proxy speaks SOCKS5 by negotiating an
// authentication method. It offers username/password authentication only when
// the URL carries credentials, and never sends them.
func (d *Dialer) CheckConnection(ctx context.Context) ProxyStatus {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultCheckDeadline)
		defer cancel()
	}

	conn, err := d.forward.DialContext(ctx, "tcp", d.address)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return ProxyStatusCannotConnect
		}
	}

	greeting := []byte{socks5Version, 0x01, socks5AuthNone}
	if d.withAuth {
		greeting = []byte{socks5Version, 0x02, socks5AuthNone, socks5AuthPassword}
	}
	if _, err := conn.Write(greeting); err != nil {
		return ProxyStatusCannotConnect
	}

	resp := make([]byte, 2)
	if _, err := io.ReadFull(conn, resp); err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusWrongType
	}

	if resp[0] != socks5Version {
		return ProxyStatusWrongType
	}
	switch resp[1] {
	case socks5AuthNone:
		return ProxyStatusOK
	case socks5AuthPassword:
		if d.withAuth {
			return ProxyStatusOK
		}
		return ProxyStatusWrongType
	case socks5AuthNoAccept:
		return ProxyStatusRejected
	default:
		return ProxyStatusWrongType
	}
}

// redactRaw hides everything but the scheme of a URL that failed to parse, as
// it may hold a password.
func redactRaw(rawURL string) string {
	if scheme, _, ok := strings.Cut(rawURL, "://"); ok {
		return scheme + "://..."
	}
	return "..."
}
