package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/probegate/probegate/internal/domain"
	"github.com/probegate/probegate/internal/probe"
)

var (
	// ErrNoChecks rejects a run with an empty check list before any state change.
	ErrNoChecks = errors.New("runner: no checks to run")
	// ErrAlreadyRunning rejects a second Run while one is in progress.
	ErrAlreadyRunning = errors.New("runner: run already in progress")
	// ErrFinished rejects reuse of a terminal runner without Reset.
	ErrFinished = errors.New("runner: runner is finished; Reset it or create a new one")
)

// DefaultPacing is the fixed gap between consecutive probes. It keeps a run
// from looking like a burst against the target and lets each response settle
// before the next request opens.
const DefaultPacing = 100 * time.Millisecond

// Observer receives one ProgressEvent per settled Outcome, in input order.
// Delivery happens synchronously on the run goroutine; observers should not
// block. An observer that panics is logged and skipped, never fails the run.
type Observer func(domain.ProgressEvent)

// Runner executes an ordered list of CheckSpecs strictly sequentially and
// folds the Outcomes into a RunReport. One Runner drives at most one run;
// independent Runner instances share no state.
type Runner struct {
	prober    probe.Prober
	logger    *zap.Logger
	pacing    time.Duration
	observers []Observer

	mu    sync.Mutex
	state domain.RunState
	abort context.CancelFunc
}

type Option func(*Runner)

// WithPacing overrides the gap between probes. Zero disables pacing.
func WithPacing(d time.Duration) Option {
	return func(r *Runner) {
		if d >= 0 {
			r.pacing = d
		}
	}
}

func New(p probe.Prober, logger *zap.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		prober: p,
		logger: logger,
		pacing: DefaultPacing,
		state:  domain.StateIdle,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnProgress registers an observer. Register before calling Run.
func (r *Runner) OnProgress(fn Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, fn)
}

func (r *Runner) State() domain.RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Run probes every check in order and returns the terminal report. Probe-level
// failures never abort the sequence; the only early exit is cancellation,
// which still yields a (partial) report.
func (r *Runner) Run(ctx context.Context, specs []domain.CheckSpec) (*domain.RunReport, error) {
	if len(specs) == 0 {
		return nil, ErrNoChecks
	}

	r.mu.Lock()
	switch r.state {
	case domain.StateRunning:
		r.mu.Unlock()
		return nil, ErrAlreadyRunning
	case domain.StateCompleted, domain.StateCancelled:
		r.mu.Unlock()
		return nil, ErrFinished
	}
	runCtx, abort := context.WithCancel(ctx)
	r.state = domain.StateRunning
	r.abort = abort
	r.mu.Unlock()
	defer abort()

	total := len(specs)
	r.logger.Info("run_started", zap.Int("total", total))

	start := time.Now()
	outcomes := make([]domain.Outcome, 0, total)
	cancelled := false

	for i, spec := range specs {
		if runCtx.Err() != nil {
			cancelled = true
			break
		}

		out := r.prober.Probe(runCtx, spec)
		outcomes = append(outcomes, out)
		r.emit(domain.ProgressEvent{Index: i, Total: total, Outcome: out})

		r.logger.Debug("probe_recorded",
			zap.String("check_id", out.ID),
			zap.Int("index", i),
			zap.Bool("passed", out.Passed),
			zap.Float64("elapsed_ms", out.ElapsedMS),
			zap.String("message", out.Message),
		)

		if i < total-1 && r.pacing > 0 {
			select {
			case <-runCtx.Done():
				cancelled = true
			case <-time.After(r.pacing):
			}
			if cancelled {
				break
			}
		}
	}
	if runCtx.Err() != nil {
		cancelled = true
	}

	report := domain.NewRunReport(outcomes, elapsedMS(start), cancelled)

	final := domain.StateCompleted
	if cancelled {
		final = domain.StateCancelled
	}
	r.mu.Lock()
	r.state = final
	r.abort = nil
	r.mu.Unlock()

	r.logger.Info("run_finished",
		zap.String("state", string(final)),
		zap.String("verdict", string(report.Verdict)),
		zap.Int("total", report.Total),
		zap.Int("passed", report.Passed),
		zap.Int("failed", report.Failed),
		zap.Int("critical_failures", report.CriticalFailures),
		zap.Float64("total_elapsed_ms", report.TotalElapsedMS),
	)
	return report, nil
}

// Cancel aborts the in-flight probe and prevents further dispatch. It is
// cooperative and idempotent; calling it on a finished runner is a no-op.
func (r *Runner) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == domain.StateRunning && r.abort != nil {
		r.abort()
	}
}

// Reset returns a terminal runner to Idle so it can run again.
func (r *Runner) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == domain.StateRunning {
		return ErrAlreadyRunning
	}
	r.state = domain.StateIdle
	r.abort = nil
	return nil
}

func (r *Runner) emit(ev domain.ProgressEvent) {
	for _, fn := range r.observers {
		r.deliver(fn, ev)
	}
}

// deliver isolates one observer call; a broken consumer must not take the
// run down with it.
func (r *Runner) deliver(fn Observer, ev domain.ProgressEvent) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Warn("progress_observer_panic", zap.Any("panic", p))
		}
	}()
	fn(ev)
}

func elapsedMS(start time.Time) float64 {
	ms := time.Since(start).Seconds() * 1000
	if ms < 0 {
		return 0
	}
	return ms
}
