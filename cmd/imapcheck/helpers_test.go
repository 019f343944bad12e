package main

import (
	"bytes"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/emersion/go-imap/backend/memory"
	"github.com/emersion/go-imap/server"
)

// The in-memory backend accepts exactly these credentials.
const (
	goodUsername = "username"
	goodPassword = "password"
)

// startIMAPServer starts a cleartext IMAP server on a loopback port and
// returns its port.
func startIMAPServer(t *testing.T) int {
	t.Helper()

	s := server.New(memory.New())
	s.AllowInsecureAuth = true
	s.ErrorLog = log.New(io.Discard, "", 0)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	go func() { _ = s.Serve(l) }()
	t.Cleanup(func() { _ = s.Close() })

	return l.Addr().(*net.TCPAddr).Port
}

// emptyConfigFile writes an empty configuration file so that runs do not
// pick up a file from the working or home directory.
func emptyConfigFile(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

// cliResult is the outcome of one command execution.
type cliResult struct {
	err    error
	stdout string
	stderr string
}

// runCLI executes the root command with args and stdin.
func runCLI(t *testing.T, stdin string, args ...string) cliResult {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetIn(bytes.NewBufferString(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return cliResult{err: err, stdout: stdout.String(), stderr: stderr.String()}
}

// singleArgs returns the flags of a single-account check against port.
func singleArgs(t *testing.T, port int, extra ...string) []string {
	t.Helper()

	args := []string{
		"--config", emptyConfigFile(t),
		"--server", "127.0.0.1",
		"--port", strconv.Itoa(port),
		"--security", "plain",
		"--username", goodUsername,
		"--timeout", "5",
	}
	return append(args, extra...)
}
