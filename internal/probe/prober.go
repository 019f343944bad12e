package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/rs/xid"
)

// DefaultMailbox is the mailbox selected after a successful login.
const DefaultMailbox = "INBOX"

// DefaultTimeout is the per-operation timeout used by callers that have no
// configured value.
const DefaultTimeout = 15 * time.Second

// AuthMechanism selects how credentials are presented to the server.
type AuthMechanism int

const (
	// AuthLogin uses the IMAP LOGIN command.
	AuthLogin AuthMechanism = iota

	// AuthPlain uses AUTHENTICATE PLAIN (SASL).
	AuthPlain
)

// String returns the mechanism name accepted by ParseAuthMechanism.
func (m AuthMechanism) String() string {
	switch m {
	case AuthLogin:
		return "login"
	case AuthPlain:
		return "plain"
	default:
		return "unknown"
	}
}

// ParseAuthMechanism parses "login" or "plain", case-insensitively.
func ParseAuthMechanism(s string) (AuthMechanism, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "login":
		return AuthLogin, nil
	case "plain":
		return AuthPlain, nil
	default:
		return 0, &ConfigError{Field: "auth", Message: "invalid auth mechanism \"" + s + "\": must be one of: login, plain"}
	}
}

func (m AuthMechanism) command() string {
	if m == AuthPlain {
		return "authenticate"
	}
	return "login"
}

// Prober checks credentials against IMAP servers. A Prober is immutable after
// New and safe for concurrent use; each Probe opens its own connection.
type Prober struct {
	dialer    Dialer
	tlsConfig *tls.Config
	mailbox   string
	mechanism AuthMechanism
	logger    *slog.Logger
}

// Option configures a Prober.
type Option func(*Prober)

// WithDialer routes connections through d, for example a SOCKS5 proxy.
func WithDialer(d Dialer) Option {
	return func(p *Prober) {
		if d != nil {
			p.dialer = d
		}
	}
}

// WithTLSConfig sets the base TLS configuration. ServerName is filled in per
// request when empty.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(p *Prober) {
		if cfg != nil {
			p.tlsConfig = cfg.Clone()
		}
	}
}

// WithRootCAs replaces the trust anchors used to verify server certificates.
func WithRootCAs(pool *x509.CertPool) Option {
	return func(p *Prober) {
		p.tlsConfig.RootCAs = pool
	}
}

// WithMailbox sets the mailbox selected read-only after login.
func WithMailbox(name string) Option {
	return func(p *Prober) {
		if name != "" {
			p.mailbox = name
		}
	}
}

// WithAuthMechanism selects LOGIN or AUTHENTICATE PLAIN.
func WithAuthMechanism(m AuthMechanism) Option {
	return func(p *Prober) {
		p.mechanism = m
	}
}

// WithLogger sets the logger for state transitions. Passwords are never
// passed to it.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Prober) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a Prober. Without options it dials directly, trusts the system
// roots, logs in with LOGIN and selects INBOX.
func New(opts ...Option) *Prober {
	p := &Prober{
		dialer:    &net.Dialer{},
		tlsConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		mailbox:   DefaultMailbox,
		mechanism: AuthLogin,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe runs one credential check and classifies its outcome. It always
// returns exactly one Result: invalid requests fail with a configuration
// error before any I/O and panics are reported as unexpected errors.
func (p *Prober) Probe(ctx context.Context, req Request) (result Result) {
	start := time.Now()
	label := req.Label()

	defer func() {
		if r := recover(); r != nil {
			result = Classify(label, &PanicError{Value: r})
		}
		result.Duration = time.Since(start)
	}()

	if err := req.Validate(); err != nil {
		return Classify(label, err)
	}

	logger := p.logger.With(
		slog.String("probe", xid.New().String()),
		slog.String("server", req.Server),
		slog.Int("port", req.Port),
		slog.String("security", req.Security.String()),
		slog.String("username", req.Username),
	)

	s := &session{
		req:       req,
		dialer:    p.dialer,
		tlsConfig: p.tlsConfigFor(req),
		mailbox:   p.mailbox,
		mechanism: p.mechanism,
		logger:    logger,
		errorLog:  slog.NewLogLogger(logger.Handler(), slog.LevelDebug),
	}

	err := s.run(ctx)
	result = Classify(label, err)
	if result.OK {
		logger.Debug("credentials accepted")
	} else {
		logger.Debug("probe failed", slog.String("category", result.Category.String()), slog.Any("error", err))
	}
	return result
}

// tlsConfigFor returns a per-request copy of the TLS configuration.
func (p *Prober) tlsConfigFor(req Request) *tls.Config {
	cfg := p.tlsConfig.Clone()
	if cfg.ServerName == "" {
		cfg.ServerName = req.Server
	}
	if cfg.MinVersion == 0 {
		cfg.MinVersion = tls.VersionTLS12
	}
	return cfg
}
