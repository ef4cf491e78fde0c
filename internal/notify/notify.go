package notify

import (
	"context"

	"github.com/probegate/probegate/internal/domain"
)

// Alert is one gate decision about a finished run, ready for delivery.
// Recovered marks the transition back out of CRITICAL_FAIL.
type Alert struct {
	Suite     string
	RunID     domain.RunID
	Verdict   domain.Verdict
	Recovered bool
	Report    *domain.RunReport
}

// Notifier delivers one Alert to a channel (chat webhook, log, ...).
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// Multi fans an alert out to every configured channel. All sends are
// attempted; the first failure is what gets reported.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, a Alert) error {
	var firstErr error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, a); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
