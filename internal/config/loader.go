package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".imapcheck"

// xdgConfigFile is the file name inside the XDG config directory.
const xdgConfigFile = "config.yaml"

var (
	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrPasswordInFile is returned when the defaults file contains a
	// password. Passwords are only taken from --password or the prompt.
	ErrPasswordInFile = errors.New("configuration file must not contain a password")
)

// File is the structure of the defaults file. Unset keys keep the built-in
// defaults; explicit flags override every key.
type File struct {
	Security    string  `yaml:"security,omitempty"`
	Timeout     int     `yaml:"timeout,omitempty"`
	Concurrency int     `yaml:"concurrency,omitempty"`
	Rate        float64 `yaml:"rate,omitempty"`
	Proxy       string  `yaml:"proxy,omitempty"`
	Mailbox     string  `yaml:"mailbox,omitempty"`
	Auth        string  `yaml:"auth,omitempty"`
	CAFile      string  `yaml:"caFile,omitempty"`
	Format      string  `yaml:"format,omitempty"`
	History     *bool   `yaml:"history,omitempty"`
	HistoryDir  string  `yaml:"historyDir,omitempty"`
	Password    string  `yaml:"password,omitempty"`
}

// LoadConfigFile loads the defaults file. If the file does not exist, it
// returns ErrConfigNotFound. Unknown keys are rejected.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if cf.Password != "" {
		return nil, ErrPasswordInFile
	}
	return &cf, nil
}

// Apply copies the file values into cfg, except for the options whose flag
// was set explicitly. explicit reports whether a flag was set.
func (cf *File) Apply(cfg *Config, explicit func(flag string) bool) {
	setString := func(flag string, dst *string, v string) {
		if v != "" && !explicit(flag) {
			*dst = v
		}
	}

	setString("security", &cfg.Security, cf.Security)
	setString("proxy", &cfg.Proxy, cf.Proxy)
	setString("mailbox", &cfg.Mailbox, cf.Mailbox)
	setString("auth", &cfg.Auth, cf.Auth)
	setString("ca-file", &cfg.CAFile, cf.CAFile)
	setString("format", &cfg.Format, cf.Format)
	setString("history-dir", &cfg.HistoryDir, cf.HistoryDir)

	if cf.Timeout != 0 && !explicit("timeout") {
		cfg.Timeout = time.Duration(cf.Timeout) * time.Second
	}
	if cf.Concurrency != 0 && !explicit("concurrency") {
		cfg.Concurrency = cf.Concurrency
	}
	if cf.Rate != 0 && !explicit("rate") {
		cfg.RateLimit = cf.Rate
	}
	if cf.History != nil && !explicit("history") {
		cfg.History = *cf.History
	}
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. .imapcheck in the current directory
// 3. config.yaml in the XDG config directory
// 4. .imapcheck in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), xdgConfigFile))
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}

	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}
