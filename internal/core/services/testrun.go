package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/scribe/internal/core/domain"
	"github.com/custodia-labs/scribe/internal/core/ports/driven"
	"github.com/custodia-labs/scribe/internal/logger"
)

// DefaultTickInterval is the elapsed counter resolution of a test run.
const DefaultTickInterval = time.Second

// TestRunner executes transformation test runs under the test-run class of
// the guard and owns their visible state and elapsed counter.
type TestRunner struct {
	backend  driven.SettingsBackend
	guard    *OperationGuard
	interval time.Duration
	log      logger.Component

	mu      sync.Mutex
	state   domain.TestRunState
	current *testRun

	tickers sync.WaitGroup
}

type testRun struct {
	op       *Operation
	cancel   context.CancelFunc
	ended    chan struct{}
	stopOnce sync.Once
}

// end stops the run's ticker and releases Await callers.
func (r *testRun) end() {
	r.stopOnce.Do(func() {
		close(r.ended)
		r.cancel()
	})
}

// NewTestRunner creates a runner. A non-positive interval uses
// DefaultTickInterval.
func NewTestRunner(backend driven.SettingsBackend, guard *OperationGuard, interval time.Duration) *TestRunner {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &TestRunner{
		backend:  backend,
		guard:    guard,
		interval: interval,
		log:      logger.Component("testrun"),
		state:    domain.TestRunState{Status: domain.TestRunIdle},
	}
}

// Begin starts a test run over input and supersedes the run in flight.
func (t *TestRunner) Begin(ctx context.Context, input string) domain.Token {
	runCtx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	op := t.guard.Begin(domain.OpTestRun)
	run := &testRun{op: op, cancel: cancel, ended: make(chan struct{})}
	if t.current != nil {
		t.current.end()
	}
	t.current = run
	t.state = domain.TestRunState{
		Status:    domain.TestRunRunning,
		Token:     op.Token(),
		Input:     input,
		StartedAt: time.Now(),
	}
	t.mu.Unlock()

	t.log.Debug("begin run (token %d)", op.Token())

	t.tickers.Add(1)
	go t.tick(run)
	go t.execute(runCtx, run, input)

	return op.Token()
}

// commit applies fn to the visible state only while run is the current
// run and its token is still current.
func (t *TestRunner) commit(run *testRun, fn func(*domain.TestRunState)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current != run || !run.op.IsCurrent() {
		return false
	}
	fn(&t.state)
	return true
}

func (t *TestRunner) tick(run *testRun) {
	defer t.tickers.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-run.ended:
			return
		case <-ticker.C:
			current := t.commit(run, func(state *domain.TestRunState) {
				if state.Status == domain.TestRunRunning {
					state.Elapsed += t.interval
				}
			})
			if !current {
				return
			}
		}
	}
}

func (t *TestRunner) execute(ctx context.Context, run *testRun, input string) {
	output, err := t.backend.RunTransform(ctx, input)
	err = domain.AsBoundaryError("run_transform", err)

	accepted := t.commit(run, func(state *domain.TestRunState) {
		if err != nil {
			state.Status = domain.TestRunFailed
			state.Err = err
		} else {
			state.Status = domain.TestRunSucceeded
			state.Output = output
		}
		run.end()
	})

	if !accepted {
		t.log.Debug("discarding stale run result (token %d)", run.op.Token())
		run.end()
		return
	}
	if err != nil {
		t.log.Warn("run failed (token %d): %v", run.op.Token(), err)
	}
}

// Cancel clears the visible state to idle and makes the run in flight stale.
// The backend call is asked to stop but its result is discarded either way.
func (t *TestRunner) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
}

// CancelToken is Cancel restricted to the run issued token. Reports
// whether that run was still in flight.
func (t *TestRunner) CancelToken(token domain.Token) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil || t.current.op.Token() != token {
		return false
	}
	select {
	case <-t.current.ended:
		return false
	default:
	}
	t.cancelLocked()
	return true
}

func (t *TestRunner) cancelLocked() {
	t.guard.Invalidate(domain.OpTestRun)
	if t.current != nil {
		t.log.Debug("cancel run (token %d)", t.current.op.Token())
		t.current.end()
		t.current = nil
	}
	t.state = domain.TestRunState{Status: domain.TestRunIdle}
}

// State returns the visible run state.
func (t *TestRunner) State() domain.TestRunState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Await blocks until the run with token ends, is cancelled or is
// superseded, then returns the visible state.
func (t *TestRunner) Await(ctx context.Context, token domain.Token) (domain.TestRunState, error) {
	t.mu.Lock()
	run := t.current
	t.mu.Unlock()

	if run != nil && run.op.Token() == token {
		select {
		case <-run.ended:
		case <-ctx.Done():
			return t.State(), ctx.Err()
		}
	}
	return t.State(), nil
}

// Close cancels the run in flight and waits for its ticker to stop.
func (t *TestRunner) Close() {
	t.Cancel()
	t.tickers.Wait()
}
