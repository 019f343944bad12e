package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/imapcheck/internal/model"
)

// Step is one stage of a check.
type Step interface {
	// Do executes the step. Outcomes that belong to the account, such as
	// a rejected login or an unreadable password, are recorded on the check.
	// A returned error means the step itself could not run.
	Do(ctx context.Context, check *model.Check) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline runs steps in order on one check.
type Pipeline struct {
	steps []Step

	logger *slog.Logger

	// continueOnError runs the remaining steps after a step error.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to keep going after a step
// error.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given steps and options.
func New(steps []Step, opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: steps,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// Execute runs every step on the check. It stops on cancellation and, unless
// continueOnError is set, on the first step error.
func (p *Pipeline) Execute(ctx context.Context, check *model.Check) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"account", check.Account.DisplayLabel(),
				"reason", err,
			)
			return err
		}

		if err := step.Do(ctx, check); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"account", check.Account.DisplayLabel(),
				"error", err,
			)
			if !p.continueOnError {
				return err
			}
			continue
		}

		p.logger.Debug("step completed",
			"step", step.Name(),
			"account", check.Account.DisplayLabel(),
			"done", check.Done(),
		)
	}
	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
