package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// ErrNoInput is returned when the input ends before a password was entered.
var ErrNoInput = errors.New("no password entered: input closed")

// PasswordSource returns the password for an account label.
type PasswordSource interface {
	Password(ctx context.Context, label string) (string, error)
}

// Func adapts a function to PasswordSource.
type Func func(ctx context.Context, label string) (string, error)

// Password calls f.
func (f Func) Password(ctx context.Context, label string) (string, error) {
	return f(ctx, label)
}

// Static returns the same password for every account.
type Static string

// Password returns s.
func (s Static) Password(context.Context, string) (string, error) {
	return string(s), nil
}

// Terminal prompts for each password. When the input is a terminal the
// password is read without echo, otherwise one line is read per prompt so
// that passwords can be piped in.
type Terminal struct {
	in  io.Reader
	out io.Writer

	mu     sync.Mutex
	reader *bufio.Reader
}

// NewTerminal creates a prompt reading from in and writing prompts to out.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: in, out: out}
}

// Password writes "Enter password for <label>: " and reads the answer.
// Prompts are serialized.
func (t *Terminal) Password(ctx context.Context, label string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := fmt.Fprintf(t.out, "Enter password for %s: ", label); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}

	if fd, ok := terminalFd(t.in); ok {
		b, err := term.ReadPassword(fd)
		_, _ = fmt.Fprintln(t.out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}
	return t.readLine()
}

func (t *Terminal) readLine() (string, error) {
	if t.reader == nil {
		t.reader = bufio.NewReader(t.in)
	}
	line, err := t.reader.ReadString('\n')
	if errors.Is(err, io.EOF) && line == "" {
		return "", ErrNoInput
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// terminalFd returns the descriptor of r when it is a terminal.
func terminalFd(r io.Reader) (int, bool) {
	f, ok := r.(*os.File)
	if !ok {
		return 0, false
	}
	fd := int(f.Fd()) //nolint:gosec // descriptors fit in int
	return fd, term.IsTerminal(fd)
}
