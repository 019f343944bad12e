package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/nao1215/imapcheck/internal/account"
	"github.com/nao1215/imapcheck/internal/config"
	"github.com/nao1215/imapcheck/internal/history"
	"github.com/nao1215/imapcheck/internal/log"
	"github.com/nao1215/imapcheck/internal/model"
	"github.com/nao1215/imapcheck/internal/pipeline"
	"github.com/nao1215/imapcheck/internal/probe"
	"github.com/nao1215/imapcheck/internal/prompt"
	"github.com/nao1215/imapcheck/internal/report"
	"github.com/nao1215/imapcheck/internal/socks"
	"github.com/rs/xid"
	"github.com/spf13/cobra"
)

// streams are the standard streams of a check run.
type streams struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

// runCheckCmd executes the root command.
func runCheckCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCheck(ctx, cfg, streams{
		in:     cmd.InOrStdin(),
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
	}, logger)
}

// buildConfig creates a Config from cobra command flags and the
// configuration file.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.CSVPath, err = flags.GetString("csv"); err != nil {
		return nil, err
	}
	if cfg.Server, err = flags.GetString("server"); err != nil {
		return nil, err
	}
	if cfg.Username, err = flags.GetString("username"); err != nil {
		return nil, err
	}
	if cfg.Port, err = flags.GetInt("port"); err != nil {
		return nil, err
	}
	if cfg.Security, err = flags.GetString("security"); err != nil {
		return nil, err
	}
	if cfg.Password, err = flags.GetString("password"); err != nil {
		return nil, err
	}

	timeout, err := flags.GetInt("timeout")
	if err != nil {
		return nil, err
	}
	cfg.Timeout = time.Duration(timeout) * time.Second

	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = flags.GetFloat64("rate"); err != nil {
		return nil, err
	}
	if cfg.Proxy, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.Mailbox, err = flags.GetString("mailbox"); err != nil {
		return nil, err
	}
	if cfg.Auth, err = flags.GetString("auth"); err != nil {
		return nil, err
	}
	if cfg.CAFile, err = flags.GetString("ca-file"); err != nil {
		return nil, err
	}
	if cfg.Format, err = flags.GetString("format"); err != nil {
		return nil, err
	}
	if cfg.OutputFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.History, err = flags.GetBool("history"); err != nil {
		return nil, err
	}
	if cfg.HistoryDir, err = flags.GetString("history-dir"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	// Values from the configuration file apply only to flags left unset.
	// If the user named a file explicitly, it must exist.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		file.Apply(cfg, flags.Changed)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	return cfg, nil
}

// runCheck checks every account and writes the results. It returns
// ErrChecksFailed when at least one account failed or was skipped.
func runCheck(ctx context.Context, cfg *config.Config, s streams, logger *slog.Logger) error {
	accounts, err := loadAccounts(cfg)
	if err != nil {
		return err
	}

	prober, err := newProber(ctx, cfg, logger)
	if err != nil {
		return err
	}

	if cfg.Password != "" {
		logger.Warn("password given on the command line; it may be visible to other local users")
	}

	runID := xid.New().String()
	summary := model.NewSummary(runID, time.Now())

	writer, closeOutput, err := newReportWriter(cfg, s.out)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeOutput(); err != nil {
			logger.Error("failed to close output file", "error", err)
		}
	}()

	checkSteps := []pipeline.Step{
		pipeline.NewProbeStep(prober,
			pipeline.WithRateLimit(cfg.RateLimit),
			pipeline.WithProbeLogger(logger),
		),
	}
	if cfg.History {
		db, err := history.Open(cfg.HistoryDir, history.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer db.Close()
		logger.Info("history database opened", "path", db.Path())
		checkSteps = append(checkSteps, pipeline.NewRecordStep(db, runID))
	}

	prepare := pipeline.New([]pipeline.Step{
		pipeline.NewResolveStep(cfg.Timeout),
		pipeline.NewPasswordStep(passwordSource(cfg, s)),
	}, pipeline.WithLogger(logger))
	check := pipeline.New(checkSteps,
		pipeline.WithLogger(logger),
		pipeline.WithContinueOnError(true),
	)

	bp := pipeline.NewBatchProcessor(prepare, check,
		pipeline.WithConcurrency(cfg.Concurrency),
		pipeline.WithBatchLogger(logger),
	)

	logger.Info("starting check",
		"run", runID,
		"accounts", len(accounts),
		"concurrency", cfg.Concurrency,
		"via_proxy", cfg.Proxy != "",
	)

	// Callbacks are serialized by the batch processor.
	var writeErr error
	_, err = bp.Process(ctx, accounts, func(c *model.Check) {
		summary.Add(c)
		if err := writer.WriteCheck(c); err != nil && writeErr == nil {
			writeErr = err
		}
	})
	if err != nil {
		return fmt.Errorf("check interrupted: %w", err)
	}
	if writeErr != nil {
		return fmt.Errorf("failed to write results: %w", writeErr)
	}
	if err := writer.Flush(summary); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	logger.Info("check finished",
		"run", runID,
		"passed", summary.Passed,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
	)

	if !summary.AllPassed() {
		return ErrChecksFailed
	}
	return nil
}

// loadAccounts returns the CSV rows in batch mode, or the single account
// given by flags.
func loadAccounts(cfg *config.Config) ([]model.Account, error) {
	if cfg.BatchMode() {
		return account.LoadCSV(cfg.CSVPath)
	}

	var port string
	if cfg.Port != 0 {
		port = strconv.Itoa(cfg.Port)
	}
	return []model.Account{{
		Server:   cfg.Server,
		Username: cfg.Username,
		Port:     port,
		Security: cfg.Security,
	}}, nil
}

// newProber builds the prober. A configured proxy is checked before any
// account is probed.
func newProber(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*probe.Prober, error) {
	mechanism, err := probe.ParseAuthMechanism(cfg.Auth)
	if err != nil {
		return nil, err
	}

	opts := []probe.Option{
		probe.WithMailbox(cfg.Mailbox),
		probe.WithAuthMechanism(mechanism),
		probe.WithLogger(logger),
	}

	if cfg.CAFile != "" {
		pool, err := probe.LoadCAFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load CA file: %w", err)
		}
		opts = append(opts, probe.WithRootCAs(pool))
	}

	if cfg.Proxy != "" {
		dialer, err := socks.NewDialer(cfg.Proxy, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		if status := dialer.CheckConnection(ctx); status != socks.ProxyStatusOK {
			return nil, fmt.Errorf("proxy check failed for %s: %w", dialer, status.Error())
		}
		logger.Info("proxy connection verified", "address", dialer.Address())
		opts = append(opts, probe.WithDialer(dialer))
	}

	return probe.New(opts...), nil
}

// passwordSource returns the --password value, or a prompt on the terminal.
func passwordSource(cfg *config.Config, s streams) prompt.PasswordSource {
	if cfg.Password != "" {
		return prompt.Static(cfg.Password)
	}
	return prompt.NewTerminal(s.in, s.errOut)
}

// newReportWriter returns the result writer and a function closing the
// output file. Without --output the chosen format goes to stdout. With it,
// the file receives the chosen format and text lines still go to stdout.
func newReportWriter(cfg *config.Config, stdout io.Writer) (report.Writer, func() error, error) {
	noop := func() error { return nil }

	console := report.Writer(report.NewSimpleWriter(stdout, report.WithSummary(cfg.Verbose)))
	if cfg.OutputFile == "" {
		if cfg.Format == config.FormatText {
			return console, noop, nil
		}
		w, err := report.NewWriter(cfg.Format, stdout)
		if err != nil {
			return nil, nil, err
		}
		return w, noop, nil
	}

	dir := filepath.Dir(cfg.OutputFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	f, err := os.Create(cfg.OutputFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}

	fileWriter, err := report.NewWriter(cfg.Format, f)
	if err != nil {
		return nil, nil, errors.Join(err, f.Close())
	}

	return report.NewMultiWriter(console, fileWriter), f.Close, nil
}
