package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/probegate/probegate/internal/domain"
)

func criticalAlert(suite string) Alert {
	return Alert{
		Suite:   suite,
		RunID:   "r1",
		Verdict: domain.VerdictCriticalFail,
		Report: &domain.RunReport{
			Total:            3,
			Passed:           2,
			Failed:           1,
			CriticalFailures: 1,
			PassRatePct:      66.67,
			Verdict:          domain.VerdictCriticalFail,
		},
	}
}

func TestSlack_NotifyPostsReportFields(t *testing.T) {
	var got string
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got = string(b)
		w.WriteHeader(200)
	}))
	defer s.Close()

	if err := NewSlack(s.URL).Notify(context.Background(), criticalAlert("smoke")); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	for _, want := range []string{"smoke", "r1", "CRITICAL_FAIL", "2/3", "66.67"} {
		if !strings.Contains(got, want) {
			t.Fatalf("payload missing %q: %s", want, got)
		}
	}
}

func TestSlack_EmptyWebhookDisabled(t *testing.T) {
	if NewSlack("") != nil {
		t.Fatalf("empty webhook should disable slack")
	}
}

func TestSlack_Non2xxIsError(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer s.Close()

	if err := NewSlack(s.URL).Notify(context.Background(), criticalAlert("smoke")); err == nil {
		t.Fatalf("want error on non-2xx")
	}
}

// --- multi ---

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []Alert
	err    error
}

func (r *recordingNotifier) Notify(ctx context.Context, a Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
	return r.err
}

func (r *recordingNotifier) sent() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Alert(nil), r.alerts...)
}

func TestMulti_FansOutToEveryChannel(t *testing.T) {
	a, b := &recordingNotifier{}, &recordingNotifier{}
	m := Multi{a, nil, b}

	if err := m.Notify(context.Background(), criticalAlert("smoke")); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(a.sent()) != 1 || len(b.sent()) != 1 {
		t.Fatalf("every channel gets the alert, got %d/%d", len(a.sent()), len(b.sent()))
	}
}

func TestMulti_FirstErrorWinsButAllSendsRun(t *testing.T) {
	broken := &recordingNotifier{err: errors.New("down")}
	ok := &recordingNotifier{}

	err := Multi{broken, ok}.Notify(context.Background(), criticalAlert("smoke"))
	if err == nil || err.Error() != "down" {
		t.Fatalf("want first error back, got %v", err)
	}
	if len(ok.sent()) != 1 {
		t.Fatalf("later channels must still be attempted")
	}
}

// --- gate ---

func finishedRun(suite string, verdict domain.Verdict) *domain.Run {
	rep := &domain.RunReport{Total: 1, Verdict: verdict}
	if verdict != domain.VerdictPass {
		rep.Failed = 1
		if verdict == domain.VerdictCriticalFail {
			rep.CriticalFailures = 1
		}
	} else {
		rep.Passed = 1
	}
	return &domain.Run{ID: "r1", Suite: suite, State: domain.StateCompleted, Report: rep}
}

func TestGate_AlertsOnCriticalTransition(t *testing.T) {
	rec := &recordingNotifier{}
	g := NewGate(rec, GateConfig{Cooldown: time.Hour})

	g.RunFinished(context.Background(), finishedRun("smoke", domain.VerdictCriticalFail))
	if len(rec.sent()) != 1 {
		t.Fatalf("want 1 alert, got %v", rec.sent())
	}

	// Same degraded state inside the cooldown: no repeat.
	g.RunFinished(context.Background(), finishedRun("smoke", domain.VerdictCriticalFail))
	if len(rec.sent()) != 1 {
		t.Fatalf("repeat inside cooldown should be suppressed, got %v", rec.sent())
	}
}

func TestGate_PlainFailDoesNotAlert(t *testing.T) {
	rec := &recordingNotifier{}
	g := NewGate(rec, GateConfig{})

	g.RunFinished(context.Background(), finishedRun("smoke", domain.VerdictFail))
	if len(rec.sent()) != 0 {
		t.Fatalf("FAIL verdict must not page anyone, got %v", rec.sent())
	}
}

func TestGate_RecoveryRespectsConfig(t *testing.T) {
	rec := &recordingNotifier{}
	g := NewGate(rec, GateConfig{AlertOnRecovery: true, Cooldown: time.Hour})

	g.RunFinished(context.Background(), finishedRun("smoke", domain.VerdictCriticalFail))
	g.RunFinished(context.Background(), finishedRun("smoke", domain.VerdictPass))

	alerts := rec.sent()
	if len(alerts) != 2 || !alerts[1].Recovered {
		t.Fatalf("want critical then recovery, got %+v", alerts)
	}

	quiet := &recordingNotifier{}
	g2 := NewGate(quiet, GateConfig{AlertOnRecovery: false})
	g2.RunFinished(context.Background(), finishedRun("smoke", domain.VerdictCriticalFail))
	g2.RunFinished(context.Background(), finishedRun("smoke", domain.VerdictPass))
	if len(quiet.sent()) != 1 {
		t.Fatalf("recovery disabled: want only the critical alert, got %+v", quiet.sent())
	}
}

func TestGate_SuitesTrackedIndependently(t *testing.T) {
	rec := &recordingNotifier{}
	g := NewGate(rec, GateConfig{Cooldown: time.Hour})

	g.RunFinished(context.Background(), finishedRun("a", domain.VerdictCriticalFail))
	g.RunFinished(context.Background(), finishedRun("b", domain.VerdictCriticalFail))
	if len(rec.sent()) != 2 {
		t.Fatalf("each suite gets its own gate, got %v", rec.sent())
	}
}
