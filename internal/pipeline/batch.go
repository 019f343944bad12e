package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/imapcheck/internal/model"
	"golang.org/x/sync/errgroup"
)

// BatchProcessor runs a set of accounts through two pipelines: prepare
// (resolution and password collection, always sequential because it may
// prompt) and check (probe and recording).
type BatchProcessor struct {
	prepare *Pipeline
	check   *Pipeline

	// concurrency is the maximum number of probes in flight.
	concurrency int

	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent probes.
// Default is 1 (sequential).
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(prepare, check *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		prepare:     prepare,
		check:       check,
		concurrency: 1,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// Concurrency returns the configured probe concurrency.
func (bp *BatchProcessor) Concurrency() int {
	return bp.concurrency
}

// Process checks every account and calls callback once per finished check,
// as soon as it is finished. Callbacks never run concurrently.
//
// The returned checks keep the order of accounts. On cancellation the
// context error is returned, together with the checks that were started.
func (bp *BatchProcessor) Process(
	ctx context.Context,
	accounts []model.Account,
	callback func(check *model.Check),
) ([]*model.Check, error) {
	bp.logger.Info("starting batch",
		"total_accounts", len(accounts),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	checks := make([]*model.Check, 0, len(accounts))
	var err error
	if bp.concurrency <= 1 {
		checks, err = bp.processSequential(ctx, accounts, checks, callback)
	} else {
		checks, err = bp.processConcurrent(ctx, accounts, checks, callback)
	}

	bp.logger.Info("batch complete",
		"total_accounts", len(accounts),
		"checked", len(checks),
		"elapsed", time.Since(startTime),
	)
	return checks, err
}

// processSequential prompts, probes and reports one account at a time.
func (bp *BatchProcessor) processSequential(
	ctx context.Context,
	accounts []model.Account,
	checks []*model.Check,
	callback func(check *model.Check),
) ([]*model.Check, error) {
	for i, acc := range accounts {
		if err := ctx.Err(); err != nil {
			return checks, err
		}

		check := model.NewCheck(i, acc)
		checks = append(checks, check)

		if err := bp.prepare.Execute(ctx, check); err != nil && ctx.Err() != nil {
			return checks, ctx.Err()
		}
		if err := bp.check.Execute(ctx, check); err != nil && !check.Done() {
			return checks, err
		}
		if check.Done() {
			callback(check)
		}
	}
	return checks, ctx.Err()
}

// processConcurrent collects every password first, then probes with at most
// concurrency goroutines. Checks finished while preparing are reported
// immediately.
func (bp *BatchProcessor) processConcurrent(
	ctx context.Context,
	accounts []model.Account,
	checks []*model.Check,
	callback func(check *model.Check),
) ([]*model.Check, error) {
	var mu sync.Mutex
	report := func(check *model.Check) {
		mu.Lock()
		defer mu.Unlock()
		callback(check)
	}

	pending := make([]*model.Check, 0, len(accounts))
	for i, acc := range accounts {
		if err := ctx.Err(); err != nil {
			clearPasswords(pending)
			return checks, err
		}

		check := model.NewCheck(i, acc)
		checks = append(checks, check)

		if err := bp.prepare.Execute(ctx, check); err != nil && ctx.Err() != nil {
			clearPasswords(pending)
			return checks, ctx.Err()
		}
		if check.Done() {
			// Record skipped and invalid rows without waiting for the probes.
			_ = bp.check.Execute(ctx, check) //nolint:errcheck // logged by the pipeline
			report(check)
			continue
		}
		pending = append(pending, check)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for _, check := range pending {
		g.Go(func() error {
			_ = bp.check.Execute(gctx, check) //nolint:errcheck // logged by the pipeline
			if !check.Done() {
				check.Request.Password = ""
				return gctx.Err()
			}
			report(check)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return checks, err
	}
	return checks, ctx.Err()
}

// clearPasswords drops collected passwords of checks that will never run.
func clearPasswords(checks []*model.Check) {
	for _, c := range checks {
		c.Request.Password = ""
	}
}
