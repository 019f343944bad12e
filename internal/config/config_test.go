package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestNewConfig documents the defaults.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	if cfg.Security != "ssl" {
		t.Errorf("Security = %q, want ssl", cfg.Security)
	}
	if cfg.Timeout != 15*time.Second {
		t.Errorf("Timeout = %v, want 15s", cfg.Timeout)
	}
	if cfg.Concurrency != 1 {
		t.Errorf("Concurrency = %d, want 1", cfg.Concurrency)
	}
	if cfg.Mailbox != "INBOX" || cfg.Auth != "login" || cfg.Format != "text" {
		t.Errorf("Mailbox/Auth/Format = %q/%q/%q", cfg.Mailbox, cfg.Auth, cfg.Format)
	}
	if cfg.RateLimit != 0 || cfg.History || cfg.Proxy != "" {
		t.Errorf("optional features enabled by default: %+v", cfg)
	}
	if cfg.HistoryDir != XDGDataDir() {
		t.Errorf("HistoryDir = %q, want %q", cfg.HistoryDir, XDGDataDir())
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	single := func(mutate func(*Config)) *Config {
		cfg := NewConfig()
		cfg.Server = "imap.example.com"
		cfg.Username = "alice@example.com"
		if mutate != nil {
			mutate(cfg)
		}
		return cfg
	}

	tests := []struct {
		name string
		cfg  *Config
		want error
	}{
		{name: "single account", cfg: single(nil)},
		{name: "batch", cfg: func() *Config { c := NewConfig(); c.CSVPath = "accounts.csv"; return c }()},
		{name: "invalid security is reported per check", cfg: single(func(c *Config) { c.Security = "ssl3" })},
		{name: "no accounts", cfg: NewConfig(), want: ErrNoAccounts},
		{name: "csv and server", cfg: single(func(c *Config) { c.CSVPath = "a.csv" }), want: ErrConflictingSources},
		{name: "missing username", cfg: single(func(c *Config) { c.Username = "" }), want: ErrMissingUsername},
		{name: "negative port is reported per check", cfg: single(func(c *Config) { c.Port = -1 })},
		{name: "port too large is reported per check", cfg: single(func(c *Config) { c.Port = 65536 })},
		{name: "zero timeout", cfg: single(func(c *Config) { c.Timeout = 0 }), want: ErrInvalidTimeout},
		{name: "zero concurrency", cfg: single(func(c *Config) { c.Concurrency = 0 }), want: ErrInvalidConcurrency},
		{name: "negative rate", cfg: single(func(c *Config) { c.RateLimit = -1 }), want: ErrInvalidRateLimit},
		{name: "empty mailbox", cfg: single(func(c *Config) { c.Mailbox = "" }), want: ErrEmptyMailbox},
		{name: "unknown auth", cfg: single(func(c *Config) { c.Auth = "cram-md5" }), want: ErrInvalidAuth},
		{name: "unknown format", cfg: single(func(c *Config) { c.Format = "xml" }), want: ErrInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	write := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), ".imapcheck")
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		return path
	}

	t.Run("reads every key", func(t *testing.T) {
		t.Parallel()

		path := write(t, `security: starttls
timeout: 30
concurrency: 4
rate: 2.5
proxy: socks5://127.0.0.1:1080
mailbox: Archive
auth: plain
caFile: /etc/ssl/corp.pem
format: json
history: true
`)
		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cf.Security != "starttls" || cf.Timeout != 30 || cf.Concurrency != 4 || cf.Rate != 2.5 {
			t.Errorf("File = %+v", cf)
		}
		if cf.History == nil || !*cf.History {
			t.Error("history not read")
		}
	})

	t.Run("empty file", func(t *testing.T) {
		t.Parallel()

		cf, err := LoadConfigFile(write(t, ""))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cf.Security != "" || cf.History != nil {
			t.Errorf("File = %+v, want zero", cf)
		}
	})

	t.Run("rejects passwords", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(write(t, "password: hunter2\n"))
		if !errors.Is(err, ErrPasswordInFile) {
			t.Errorf("error = %v, want ErrPasswordInFile", err)
		}
	})

	t.Run("rejects unknown keys", func(t *testing.T) {
		t.Parallel()

		if _, err := LoadConfigFile(write(t, "timout: 3\n")); err == nil {
			t.Error("expected an error for a misspelled key")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("error = %v, want ErrConfigNotFound", err)
		}
	})
}

func TestFileApply(t *testing.T) {
	t.Parallel()

	history := true
	cf := &File{
		Security:    "plain",
		Timeout:     5,
		Concurrency: 3,
		Rate:        1,
		Mailbox:     "Sent",
		Format:      "markdown",
		History:     &history,
	}

	cfg := NewConfig()
	cfg.Security = "starttls"
	explicit := map[string]bool{"security": true}
	cf.Apply(cfg, func(flag string) bool { return explicit[flag] })

	if cfg.Security != "starttls" {
		t.Errorf("explicit flag overridden: Security = %q", cfg.Security)
	}
	if cfg.Timeout != 5*time.Second || cfg.Concurrency != 3 || cfg.RateLimit != 1 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Mailbox != "Sent" || cfg.Format != "markdown" || !cfg.History {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Auth != DefaultAuth {
		t.Errorf("unset key changed Auth to %q", cfg.Auth)
	}
}

// TestFindConfigFile cannot run in parallel because it changes the working
// directory.
func TestFindConfigFile(t *testing.T) {
	t.Run("explicit path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(path, []byte("timeout: 1\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("FindConfigFile() = %q, want %q", got, path)
		}
		if got := FindConfigFile(path + ".missing"); got != "" {
			t.Errorf("FindConfigFile(missing) = %q, want empty", got)
		}
	})

	t.Run("current directory", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		path := filepath.Join(dir, DefaultConfigFile)
		if err := os.WriteFile(path, []byte("timeout: 1\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		got := FindConfigFile("")
		resolved, _ := filepath.EvalSymlinks(got)
		want, _ := filepath.EvalSymlinks(path)
		if resolved != want {
			t.Errorf("FindConfigFile() = %q, want %q", got, path)
		}
	})
}
