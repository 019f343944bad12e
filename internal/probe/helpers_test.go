package probe

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"io"
	"log"
	"math/big"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/backend"
	"github.com/emersion/go-imap/backend/memory"
	"github.com/emersion/go-imap/server"
)

const (
	testUsername = "alice@example.org"
	testPassword = "correct horse battery staple"
)

// testBackend accepts testUsername/testPassword and serves the mailboxes of
// the in-memory backend.
type testBackend struct {
	inner *memory.Backend
}

func (b *testBackend) Login(info *imap.ConnInfo, username, password string) (backend.User, error) {
	if username != testUsername || password != testPassword {
		return nil, errors.New("Bad username or password")
	}
	return b.inner.Login(info, "username", "password")
}

type serverMode int

const (
	modePlain serverMode = iota
	modeStartTLS
	modeImplicitTLS
	modeCleartextOnly
)

// testServer is an in-process IMAP server on a loopback port.
type testServer struct {
	host string
	port int
	pool *x509.CertPool
}

func startServer(t *testing.T, mode serverMode) *testServer {
	t.Helper()

	cert, pool := selfSignedCert(t)
	tlsConfig := &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}

	s := server.New(&testBackend{inner: memory.New()})
	s.ErrorLog = log.New(io.Discard, "", 0)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	switch mode {
	case modePlain:
		s.AllowInsecureAuth = true
	case modeStartTLS:
		s.TLSConfig = tlsConfig
	case modeImplicitTLS:
		l = tls.NewListener(l, tlsConfig)
	case modeCleartextOnly:
		s.AllowInsecureAuth = false
	}

	go func() { _ = s.Serve(l) }()
	t.Cleanup(func() { _ = s.Close() })

	addr := l.Addr().(*net.TCPAddr)
	return &testServer{host: "127.0.0.1", port: addr.Port, pool: pool}
}

// rawServer accepts connections and hands each one to handle.
func rawServer(t *testing.T, handle func(net.Conn)) (string, int) {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })

	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				handle(conn)
			}()
		}
	}()

	return "127.0.0.1", l.Addr().(*net.TCPAddr).Port
}

// silent keeps the connection open without writing until the peer leaves.
func silent(conn net.Conn) {
	_, _ = io.Copy(io.Discard, conn)
}

// closedPort returns a loopback port with nothing listening on it.
func closedPort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	_ = l.Close()
	return port
}

func selfSignedCert(t *testing.T) (tls.Certificate, *x509.CertPool) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "imapcheck test"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
		DNSNames:              []string{"localhost"},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("failed to parse certificate: %v", err)
	}

	pool := x509.NewCertPool()
	pool.AddCert(leaf)
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key, Leaf: leaf}, pool
}

func mustRequest(t *testing.T, host string, port int, username, password, security string, timeout time.Duration) Request {
	t.Helper()

	req, err := NewRequest(host, port, username, password, security, timeout)
	if err != nil {
		t.Fatalf("NewRequest(%s:%d, %s) unexpected error: %v", host, port, security, err)
	}
	return req
}

// dialerFunc adapts a function to Dialer.
type dialerFunc func(ctx context.Context, network, address string) (net.Conn, error)

func (f dialerFunc) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return f(ctx, network, address)
}

func hostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
