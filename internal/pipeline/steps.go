package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/imapcheck/internal/account"
	"github.com/nao1215/imapcheck/internal/model"
	"github.com/nao1215/imapcheck/internal/probe"
	"github.com/nao1215/imapcheck/internal/prompt"
	"golang.org/x/time/rate"
)

// ResolveStep turns the account into a probe request. A non-integer port
// skips the check; any other invalid value finishes it with a configuration
// error without touching the network.
type ResolveStep struct {
	timeout time.Duration
}

// NewResolveStep creates a resolution step using the per-operation timeout.
func NewResolveStep(timeout time.Duration) *ResolveStep {
	return &ResolveStep{timeout: timeout}
}

// Name returns the step name.
func (s *ResolveStep) Name() string {
	return "resolve"
}

// Do executes the resolution step.
func (s *ResolveStep) Do(_ context.Context, check *model.Check) error {
	if check.Done() {
		return nil
	}

	req, err := account.Resolve(check.Account, s.timeout)
	var portErr *account.InvalidPortError
	switch {
	case errors.As(err, &portErr):
		check.Skip(portErr.Error())
	case err != nil:
		check.Finish(probe.Classify(account.Label(check.Account), err))
	default:
		check.Request = req
	}
	return nil
}

// PasswordStep asks the password source for the account's password. The
// prompt uses the account's display label. A source failure finishes the
// check with an unexpected error; cancellation stops the run.
type PasswordStep struct {
	source prompt.PasswordSource
}

// NewPasswordStep creates a password collection step.
func NewPasswordStep(source prompt.PasswordSource) *PasswordStep {
	return &PasswordStep{source: source}
}

// Name returns the step name.
func (s *PasswordStep) Name() string {
	return "password"
}

// Do executes the password step.
func (s *PasswordStep) Do(ctx context.Context, check *model.Check) error {
	if check.Done() {
		return nil
	}

	password, err := s.source.Password(ctx, check.Account.DisplayLabel())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		check.Finish(probe.Unexpected(check.Request.Label(), "prompt", err))
		return nil
	}
	check.Request.Password = password
	return nil
}

// Prober runs one credential probe.
type Prober interface {
	Probe(ctx context.Context, req probe.Request) probe.Result
}

// ProbeStep runs the credential probe and finishes the check with its result.
type ProbeStep struct {
	prober  Prober
	limiter *rate.Limiter
	logger  *slog.Logger
}

// ProbeStepOption configures a ProbeStep.
type ProbeStepOption func(*ProbeStep)

// WithRateLimit limits probes to perSecond connection attempts per second
// across every goroutine sharing the step. Zero or less disables the limit.
func WithRateLimit(perSecond float64) ProbeStepOption {
	return func(s *ProbeStep) {
		if perSecond > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithProbeLogger sets a custom logger for the probe step.
func WithProbeLogger(logger *slog.Logger) ProbeStepOption {
	return func(s *ProbeStep) {
		s.logger = logger
	}
}

// NewProbeStep creates a probe step.
func NewProbeStep(prober Prober, opts ...ProbeStepOption) *ProbeStep {
	s := &ProbeStep{
		prober: prober,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *ProbeStep) Name() string {
	return "probe"
}

// Do executes the probe step. The password is cleared when the check
// finishes, whatever the outcome.
func (s *ProbeStep) Do(ctx context.Context, check *model.Check) error {
	if check.Done() {
		return nil
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			check.Finish(probe.Classify(check.Request.Label(), fmt.Errorf("rate limit: %w", err)))
			return nil
		}
	}

	result := s.prober.Probe(ctx, check.Request)
	check.Finish(result)

	s.logger.Debug("probe finished",
		"account", result.Label,
		"ok", result.OK,
		"category", result.Category.String(),
		"duration", result.Duration,
	)
	return nil
}

// Recorder stores finished checks.
type Recorder interface {
	RecordCheck(ctx context.Context, runID string, check *model.Check) error
}

// RecordStep stores every finished check, skipped rows included.
type RecordStep struct {
	recorder Recorder
	runID    string
}

// NewRecordStep creates a recording step for the given run.
func NewRecordStep(recorder Recorder, runID string) *RecordStep {
	return &RecordStep{recorder: recorder, runID: runID}
}

// Name returns the step name.
func (s *RecordStep) Name() string {
	return "record"
}

// Do executes the recording step.
func (s *RecordStep) Do(ctx context.Context, check *model.Check) error {
	if !check.Done() {
		return nil
	}
	if err := s.recorder.RecordCheck(ctx, s.runID, check); err != nil {
		return fmt.Errorf("failed to record check: %w", err)
	}
	return nil
}
