package notify

import (
	"context"
	"sync"
	"time"

	"github.com/probegate/probegate/internal/domain"
)

type GateConfig struct {
	AlertOnRecovery bool
	Cooldown        time.Duration
}

type gateRecord struct {
	degraded bool
	sentAt   time.Time
}

// Gate turns run verdicts into notifications. It alerts when a suite's gate
// transitions into CRITICAL_FAIL, suppresses repeats inside the cooldown,
// and optionally announces recovery back to a non-critical verdict.
type Gate struct {
	mu       sync.Mutex
	notifier Notifier
	cfg      GateConfig
	last     map[string]gateRecord
}

func NewGate(n Notifier, cfg GateConfig) *Gate {
	return &Gate{
		notifier: n,
		cfg:      cfg,
		last:     make(map[string]gateRecord),
	}
}

// RunFinished inspects a terminal run and sends at most one best-effort
// notification. Send failures are swallowed; alerting never affects the run.
func (g *Gate) RunFinished(ctx context.Context, run *domain.Run) {
	if g == nil || g.notifier == nil || run.Report == nil {
		return
	}

	suite := run.Suite
	if suite == "" {
		suite = "default"
	}
	degraded := run.Report.Verdict == domain.VerdictCriticalFail
	now := time.Now()

	g.mu.Lock()
	rec, seen := g.last[suite]
	stateChanged := !seen || rec.degraded != degraded

	cooled := true
	if seen && !rec.sentAt.IsZero() {
		cooled = now.Sub(rec.sentAt) >= g.cfg.Cooldown
	}

	downAlert := degraded && stateChanged && cooled
	recoveryAlert := !degraded && seen && rec.degraded && g.cfg.AlertOnRecovery

	next := gateRecord{degraded: degraded, sentAt: rec.sentAt}
	if downAlert || recoveryAlert {
		next.sentAt = now
	}
	g.last[suite] = next
	g.mu.Unlock()

	if !downAlert && !recoveryAlert {
		return
	}

	_ = g.notifier.Notify(ctx, Alert{
		Suite:     suite,
		RunID:     run.ID,
		Verdict:   run.Report.Verdict,
		Recovered: recoveryAlert,
		Report:    run.Report,
	})
}
