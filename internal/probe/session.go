package probe

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/commands"
	"github.com/emersion/go-imap/responses"
	"github.com/emersion/go-sasl"
)

// ErrGreetingBye is returned when the server answers the connection with an
// untagged BYE instead of a greeting.
var ErrGreetingBye = errors.New("server closed the connection in its greeting (BYE)")

// errConnectionClosed is reported when the server drops the connection in the
// middle of a command.
var errConnectionClosed = fmt.Errorf("connection closed by server: %w", io.ErrUnexpectedEOF)

// State is a step of the session state machine.
type State int

const (
	// StateConnecting covers the dial, the implicit TLS handshake and the
	// greeting.
	StateConnecting State = iota

	// StateTLSUpgrading covers STARTTLS.
	StateTLSUpgrading

	// StateAuthenticating covers LOGIN or AUTHENTICATE.
	StateAuthenticating

	// StateVerifying covers the read-only SELECT.
	StateVerifying

	// StateClosing covers LOGOUT.
	StateClosing

	// StateDone is terminal. The transport has been released.
	StateDone
)

// String returns the state name used in debug logs.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateTLSUpgrading:
		return "tls-upgrading"
	case StateAuthenticating:
		return "authenticating"
	case StateVerifying:
		return "verifying"
	case StateClosing:
		return "closing"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// session drives one probe over one connection. It is not reused.
type session struct {
	req       Request
	dialer    Dialer
	tlsConfig *tls.Config
	mailbox   string
	mechanism AuthMechanism
	logger    *slog.Logger
	errorLog  imap.Logger

	// mu guards conn, which the watchdog closes from another goroutine.
	mu   sync.Mutex
	conn net.Conn

	client *client.Client
	state  State
}

// run walks the state machine and returns the fault that ended it, or nil
// when the credentials were accepted.
func (s *session) run(ctx context.Context) error {
	defer s.release()

	s.transition(StateConnecting)
	if err := s.guard(ctx, "connect", s.connect); err != nil {
		return err
	}
	if err := s.guard(ctx, "greeting", s.greet); err != nil {
		return err
	}

	if s.req.Security == SecurityStartTLS {
		s.transition(StateTLSUpgrading)
		if err := s.guard(ctx, "starttls", s.startTLS); err != nil {
			return err
		}
	}

	s.transition(StateAuthenticating)
	if err := s.guard(ctx, s.mechanism.command(), s.authenticate); err != nil {
		return err
	}

	s.transition(StateVerifying)
	if err := s.guard(ctx, "select", s.verify); err != nil {
		s.logger.Debug("read-only select failed", slog.String("mailbox", s.mailbox), slog.Any("error", err))
	}

	s.transition(StateClosing)
	if err := s.guard(ctx, "logout", s.logout); err != nil {
		s.logger.Debug("logout failed", slog.Any("error", err))
	}
	return nil
}

// guard runs one blocking operation under its own timeout. A watchdog closes
// the connection when the timeout expires or ctx is cancelled, which unblocks
// any read or write in progress.
func (s *session) guard(ctx context.Context, op string, fn func(context.Context) error) error {
	opCtx, cancel := context.WithTimeout(ctx, s.req.Timeout)
	defer cancel()

	stop := context.AfterFunc(opCtx, s.abort)
	err := fn(opCtx)
	if !stop() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", op, ctxErr)
		}
		return &TimeoutError{Op: op, Limit: s.req.Timeout}
	}
	return err
}

func (s *session) connect(ctx context.Context) error {
	conn, err := s.dialer.DialContext(ctx, "tcp", s.req.Address())
	if err != nil {
		return err
	}
	s.setConn(conn)

	if s.req.Security != SecurityImplicitTLS {
		return nil
	}

	tlsConn := tls.Client(conn, s.tlsConfig)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return handshakeErr(err)
	}
	s.setConn(tlsConn)
	return nil
}

func (s *session) greet(ctx context.Context) error {
	conn := s.currentConn()
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return err
		}
	}

	c, err := client.New(conn)
	if err != nil {
		if isTransportFault(err) {
			return err
		}
		return &ProtocolError{Command: "greeting", Err: err}
	}
	c.ErrorLog = s.errorLog
	c.Timeout = s.req.Timeout
	s.client = c

	if c.State() == imap.LogoutState {
		return &ProtocolError{Command: "greeting", Err: ErrGreetingBye}
	}
	return nil
}

func (s *session) startTLS(_ context.Context) error {
	ok, err := s.client.SupportStartTLS()
	if err != nil {
		return s.imapErr("CAPABILITY", err)
	}
	if !ok {
		return &ProtocolError{Command: "STARTTLS", Err: ErrStartTLSUnsupported}
	}

	if err := s.client.StartTLS(s.tlsConfig); err != nil {
		if isTLSFault(err) {
			return &TLSError{Err: err}
		}
		return s.imapErr("STARTTLS", err)
	}
	return nil
}

func (s *session) authenticate(_ context.Context) error {
	if s.client.State() == imap.AuthenticatedState {
		return &ProtocolError{Command: "greeting", Err: ErrPreauthenticated}
	}

	switch s.mechanism {
	case AuthPlain:
		return s.authenticatePlain()
	default:
		return s.login()
	}
}

// login sends LOGIN through Execute so the tagged status type is available.
func (s *session) login() error {
	disabled, err := s.client.Support("LOGINDISABLED")
	if err != nil {
		return s.imapErr("CAPABILITY", err)
	}
	if disabled {
		return &ProtocolError{Command: "LOGIN", Err: ErrLoginDisabled}
	}

	status, err := s.client.Execute(&commands.Login{
		Username: s.req.Username,
		Password: s.req.Password,
	}, nil)
	if err != nil {
		return s.imapErr("LOGIN", err)
	}
	return s.authenticated("LOGIN", status)
}

// authenticatePlain runs AUTHENTICATE PLAIN, with SASL-IR when offered.
func (s *session) authenticatePlain() error {
	ok, err := s.client.SupportAuth(sasl.Plain)
	if err != nil {
		return s.imapErr("CAPABILITY", err)
	}
	if !ok {
		return &ProtocolError{Command: "AUTHENTICATE", Err: ErrAuthPlainUnsupported}
	}

	mech := sasl.NewPlainClient("", s.req.Username, s.req.Password)
	name, ir, err := mech.Start()
	if err != nil {
		return err
	}

	irOK, err := s.client.Support("SASL-IR")
	if err != nil {
		return s.imapErr("CAPABILITY", err)
	}

	cmd := &commands.Authenticate{Mechanism: name}
	handler := &responses.Authenticate{
		Mechanism:       mech,
		InitialResponse: ir,
		RepliesCh:       make(chan []byte, 10),
	}
	if irOK {
		cmd.InitialResponse = ir
		handler.InitialResponse = nil
	}

	status, err := s.client.Execute(cmd, handler)
	if err != nil {
		return s.imapErr("AUTHENTICATE", err)
	}
	return s.authenticated("AUTHENTICATE", status)
}

func (s *session) authenticated(command string, status *imap.StatusResp) error {
	if status.Type != imap.StatusRespOk {
		return &ProtocolError{Command: command, Status: string(status.Type), Info: status.Info}
	}
	s.client.SetState(imap.AuthenticatedState, nil)
	return nil
}

func (s *session) verify(_ context.Context) error {
	if _, err := s.client.Select(s.mailbox, true); err != nil {
		return s.imapErr("SELECT", err)
	}
	return nil
}

func (s *session) logout(_ context.Context) error {
	err := s.client.Logout()
	if errors.Is(err, client.ErrAlreadyLoggedOut) {
		return nil
	}
	return err
}

// imapErr sorts a client error into transport or protocol faults.
func (s *session) imapErr(command string, err error) error {
	if isTransportFault(err) {
		return err
	}
	select {
	case <-s.client.LoggedOut():
		return errConnectionClosed
	default:
	}
	return &ProtocolError{Command: command, Err: err}
}

func (s *session) transition(next State) {
	s.logger.Debug("probe state", slog.String("from", s.state.String()), slog.String("to", next.String()))
	s.state = next
}

// setConn records the active connection so abort and release can close it.
func (s *session) setConn(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = conn
}

func (s *session) currentConn() net.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// abort closes the transport so blocked I/O returns.
func (s *session) abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		_ = s.conn.Close()
	}
}

// release closes the transport on every exit path.
func (s *session) release() {
	s.mu.Lock()
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.conn = nil
	s.mu.Unlock()

	s.transition(StateDone)
}

// handshakeErr keeps transport failures as they are and marks everything else
// as a TLS fault.
func handshakeErr(err error) error {
	var opErr *net.OpError
	if isTimeout(err) || errors.Is(err, context.Canceled) || errors.As(err, &opErr) {
		return err
	}
	return &TLSError{Err: err}
}

// isTransportFault reports errors raised by the connection rather than by
// the IMAP exchange.
func isTransportFault(err error) bool {
	var opErr *net.OpError
	return isTimeout(err) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.As(err, &opErr)
}
