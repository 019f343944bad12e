package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/imapcheck/internal/account"
	"github.com/nao1215/imapcheck/internal/config"
)

func TestCheckSingleAccount(t *testing.T) {
	t.Parallel()

	port := startIMAPServer(t)
	label := fmt.Sprintf("%s@127.0.0.1:%d (plain)", goodUsername, port)

	t.Run("valid password", func(t *testing.T) {
		t.Parallel()

		res := runCLI(t, "", singleArgs(t, port, "--password", goodPassword)...)
		if res.err != nil {
			t.Fatalf("unexpected error: %v (stderr %q)", res.err, res.stderr)
		}
		want := "[✅ OK] " + label + ": Authenticated and IMAP responded normally\n"
		if res.stdout != want {
			t.Errorf("stdout = %q, want %q", res.stdout, want)
		}
	})

	t.Run("prompted password", func(t *testing.T) {
		t.Parallel()

		res := runCLI(t, goodPassword+"\n", singleArgs(t, port)...)
		if res.err != nil {
			t.Fatalf("unexpected error: %v", res.err)
		}
		if want := "Enter password for " + goodUsername + "@127.0.0.1: "; !strings.Contains(res.stderr, want) {
			t.Errorf("stderr = %q, want prompt %q", res.stderr, want)
		}
		if strings.Contains(res.stdout+res.stderr, goodPassword+"\n") {
			t.Error("password echoed to the output")
		}
	})

	t.Run("wrong password exits with failure", func(t *testing.T) {
		t.Parallel()

		res := runCLI(t, "", singleArgs(t, port, "--password", "wrong")...)
		if !errors.Is(res.err, ErrChecksFailed) {
			t.Fatalf("error = %v, want ErrChecksFailed", res.err)
		}
		if exitCode(res.err) != 2 {
			t.Errorf("exit code = %d, want 2", exitCode(res.err))
		}
		want := "[❌ FAIL] " + label + ": Login failed: server returned NO\n"
		if res.stdout != want {
			t.Errorf("stdout = %q, want %q", res.stdout, want)
		}
	})

	t.Run("invalid security is a failing result", func(t *testing.T) {
		t.Parallel()

		args := singleArgs(t, port, "--password", goodPassword)
		args = append(args, "--security", "ssl3")
		res := runCLI(t, "", args...)
		if exitCode(res.err) != 2 {
			t.Fatalf("exit code = %d, want 2 (error %v)", exitCode(res.err), res.err)
		}
		if !strings.Contains(res.stdout, `invalid security "ssl3"`) {
			t.Errorf("stdout = %q, want the security message", res.stdout)
		}
	})

	t.Run("out of range port is a failing result", func(t *testing.T) {
		t.Parallel()

		for _, bad := range []string{"70000", "-1"} {
			args := singleArgs(t, port, "--password", goodPassword)
			args = append(args, "--port", bad)
			res := runCLI(t, "", args...)
			if exitCode(res.err) != 2 {
				t.Fatalf("--port %s: exit code = %d, want 2 (error %v)", bad, exitCode(res.err), res.err)
			}
			if want := "invalid port " + bad; !strings.Contains(res.stdout, want) {
				t.Errorf("--port %s: stdout = %q, want %q", bad, res.stdout, want)
			}
		}
	})

	t.Run("verbose prints a summary", func(t *testing.T) {
		t.Parallel()

		res := runCLI(t, "", singleArgs(t, port, "--password", goodPassword, "-v")...)
		if res.err != nil {
			t.Fatalf("unexpected error: %v", res.err)
		}
		if !strings.HasSuffix(res.stdout, "1 checked: 1 ok, 0 failed, 0 skipped\n") {
			t.Errorf("stdout = %q, want a summary line", res.stdout)
		}
		if !strings.Contains(res.stderr, "check finished") {
			t.Errorf("stderr = %q, want debug logs", res.stderr)
		}
	})
}

func TestCheckBatch(t *testing.T) {
	t.Parallel()

	port := startIMAPServer(t)

	writeCSV := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "accounts.csv")
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write CSV: %v", err)
		}
		return path
	}

	t.Run("bad port row is skipped and fails the run", func(t *testing.T) {
		t.Parallel()

		csvPath := writeCSV(t, fmt.Sprintf(
			"server,username,port,security\n127.0.0.1,%s,%d,plain\n127.0.0.1,bad-port,notanumber,plain\n",
			goodUsername, port))

		res := runCLI(t, goodPassword+"\n", "--config", emptyConfigFile(t), "--csv", csvPath, "--timeout", "5")
		if exitCode(res.err) != 2 {
			t.Fatalf("exit code = %d, want 2 (error %v)", exitCode(res.err), res.err)
		}

		lines := strings.Split(strings.TrimRight(res.stdout, "\n"), "\n")
		if len(lines) != 2 {
			t.Fatalf("got %d lines, want 2: %q", len(lines), res.stdout)
		}
		if !strings.HasPrefix(lines[0], "[✅ OK] ") {
			t.Errorf("line 1 = %q, want success", lines[0])
		}
		if want := "Skipping bad-port@127.0.0.1: invalid port 'notanumber'"; lines[1] != want {
			t.Errorf("line 2 = %q, want %q", lines[1], want)
		}
		if strings.Count(res.stderr, "Enter password for") != 1 {
			t.Errorf("skipped row must not be prompted: %q", res.stderr)
		}
	})

	t.Run("missing columns abort before any prompt", func(t *testing.T) {
		t.Parallel()

		csvPath := writeCSV(t, "host,user\n127.0.0.1,alice\n")
		res := runCLI(t, "", "--config", emptyConfigFile(t), "--csv", csvPath)
		if !errors.Is(res.err, account.ErrMissingColumns) {
			t.Fatalf("error = %v, want ErrMissingColumns", res.err)
		}
		if exitCode(res.err) != 1 {
			t.Errorf("exit code = %d, want 1", exitCode(res.err))
		}
		if res.stdout != "" || res.stderr != "" {
			t.Errorf("expected no output, got stdout %q stderr %q", res.stdout, res.stderr)
		}
	})

	t.Run("concurrent checks", func(t *testing.T) {
		t.Parallel()

		csvPath := writeCSV(t, fmt.Sprintf(
			"server,username,port,security,label\n127.0.0.1,%[1]s,%[2]d,plain,first\n127.0.0.1,%[1]s,%[2]d,plain,second\n127.0.0.1,%[1]s,%[2]d,plain,third\n",
			goodUsername, port))

		res := runCLI(t, "", "--config", emptyConfigFile(t), "--csv", csvPath,
			"--password", goodPassword, "-n", "3", "--timeout", "5")
		if res.err != nil {
			t.Fatalf("unexpected error: %v", res.err)
		}
		if got := strings.Count(res.stdout, "[✅ OK] "); got != 3 {
			t.Errorf("got %d successes, want 3: %q", got, res.stdout)
		}
	})
}

func TestCheckOutputFile(t *testing.T) {
	t.Parallel()

	port := startIMAPServer(t)

	tests := []struct {
		format string
		check  func(t *testing.T, content string)
	}{
		{
			format: "markdown",
			check: func(t *testing.T, content string) {
				if !strings.Contains(content, "# IMAP Credential Check") {
					t.Errorf("markdown report missing title: %q", content)
				}
			},
		},
		{
			format: "json",
			check: func(t *testing.T, content string) {
				var line struct {
					OK       bool   `json:"ok"`
					Category string `json:"category"`
				}
				if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &line); err != nil {
					t.Fatalf("invalid JSON line %q: %v", content, err)
				}
				if !line.OK || line.Category != "Success" {
					t.Errorf("JSON line = %+v", line)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()

			outPath := filepath.Join(t.TempDir(), "reports", "result")
			res := runCLI(t, "", singleArgs(t, port, "--password", goodPassword, "-f", tt.format, "-o", outPath)...)
			if res.err != nil {
				t.Fatalf("unexpected error: %v", res.err)
			}
			if !strings.HasPrefix(res.stdout, "[✅ OK] ") {
				t.Errorf("stdout = %q, want the text line", res.stdout)
			}

			content, err := os.ReadFile(outPath)
			if err != nil {
				t.Fatalf("failed to read output file: %v", err)
			}
			tt.check(t, string(content))
		})
	}
}

func TestCheckFatalErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want error
	}{
		{
			name: "missing username",
			args: []string{"--server", "imap.example.com"},
			want: config.ErrMissingUsername,
		},
		{
			name: "no accounts",
			args: []string{},
			want: config.ErrNoAccounts,
		},
		{
			name: "invalid format",
			args: []string{"--server", "imap.example.com", "--username", "alice", "-f", "xml"},
			want: config.ErrInvalidFormat,
		},
		{
			name: "missing csv file",
			args: []string{"--csv", "/nonexistent/accounts.csv"},
			want: os.ErrNotExist,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			args := append([]string{"--config", emptyConfigFile(t)}, tt.args...)
			res := runCLI(t, "", args...)
			if !errors.Is(res.err, tt.want) {
				t.Fatalf("error = %v, want %v", res.err, tt.want)
			}
			if exitCode(res.err) != 1 {
				t.Errorf("exit code = %d, want 1", exitCode(res.err))
			}
		})
	}

	t.Run("csv and server are mutually exclusive", func(t *testing.T) {
		t.Parallel()

		res := runCLI(t, "", "--csv", "a.csv", "--server", "imap.example.com", "--username", "alice")
		if res.err == nil || exitCode(res.err) != 1 {
			t.Errorf("error = %v, want a fatal error", res.err)
		}
	})

	t.Run("explicit config file must exist", func(t *testing.T) {
		t.Parallel()

		res := runCLI(t, "", "--config", filepath.Join(t.TempDir(), "missing.yaml"),
			"--server", "imap.example.com", "--username", "alice")
		if !errors.Is(res.err, config.ErrConfigNotFound) {
			t.Errorf("error = %v, want ErrConfigNotFound", res.err)
		}
	})
}

func TestBuildConfigAppliesConfigFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "security: starttls\ntimeout: 30\nconcurrency: 4\nmailbox: Archive\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cmd := NewRootCmd()
	if err := cmd.ParseFlags([]string{"--config", path, "--server", "h", "--username", "u", "--mailbox", "Sent"}); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}
	cfg, err := buildConfig(cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Security != "starttls" {
		t.Errorf("Security = %q, want starttls from the file", cfg.Security)
	}
	if cfg.Timeout.Seconds() != 30 {
		t.Errorf("Timeout = %v, want 30s from the file", cfg.Timeout)
	}
	if cfg.Concurrency != 4 {
		t.Errorf("Concurrency = %d, want 4 from the file", cfg.Concurrency)
	}
	if cfg.Mailbox != "Sent" {
		t.Errorf("Mailbox = %q, want the explicit flag value", cfg.Mailbox)
	}
}
