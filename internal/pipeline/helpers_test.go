package pipeline

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/nao1215/imapcheck/internal/model"
	"github.com/nao1215/imapcheck/internal/probe"
)

const rightPassword = "right"

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, check *model.Check) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, check *model.Check) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, check)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

// fakeProber accepts rightPassword and rejects everything else with NO.
type fakeProber struct {
	probeFunc func(ctx context.Context, req probe.Request)
}

func (f *fakeProber) Probe(ctx context.Context, req probe.Request) probe.Result {
	if f.probeFunc != nil {
		f.probeFunc(ctx, req)
	}
	if err := ctx.Err(); err != nil {
		return probe.Classify(req.Label(), err)
	}
	if req.Password == rightPassword {
		return probe.Success(req.Label())
	}
	return probe.Classify(req.Label(), &probe.ProtocolError{Command: "LOGIN", Status: "NO"})
}

// fakeRecorder keeps the labels of recorded checks.
type fakeRecorder struct {
	mu     sync.Mutex
	runIDs []string
	labels []string
	err    error
}

func (r *fakeRecorder) RecordCheck(_ context.Context, runID string, check *model.Check) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.runIDs = append(r.runIDs, runID)
	r.labels = append(r.labels, check.Label())
	return nil
}

// events is a concurrency-safe ordered log.
type events struct {
	mu   sync.Mutex
	list []string
}

func (e *events) add(s string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.list = append(e.list, s)
}

func (e *events) all() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.list...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func accountFor(username string) model.Account {
	return model.Account{Server: "imap.example.com", Username: username, Security: "ssl"}
}
