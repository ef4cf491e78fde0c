package domain

import "testing"

func out(id string, passed, critical bool, elapsed float64) Outcome {
	return Outcome{ID: id, Passed: passed, Critical: critical, ElapsedMS: elapsed}
}

func TestNewRunReport_AllPass(t *testing.T) {
	r := NewRunReport([]Outcome{
		out("a", true, false, 10),
		out("b", true, true, 20),
		out("c", true, false, 30),
	}, 66, false)

	if r.Total != 3 || r.Passed != 3 || r.Failed != 0 || r.CriticalFailures != 0 {
		t.Fatalf("bad counts: %+v", r)
	}
	if r.Verdict != VerdictPass {
		t.Fatalf("want PASS, got %s", r.Verdict)
	}
	if r.PassRatePct != 100 {
		t.Fatalf("want 100%%, got %f", r.PassRatePct)
	}
	if r.AvgElapsedMS != 20 || r.MaxElapsedMS != 30 {
		t.Fatalf("bad timing aggregates: avg=%f max=%f", r.AvgElapsedMS, r.MaxElapsedMS)
	}
}

func TestNewRunReport_CriticalOutranksPlainFailures(t *testing.T) {
	r := NewRunReport([]Outcome{
		out("a", false, false, 5),
		out("b", false, false, 5),
		out("c", false, true, 5),
	}, 15, false)

	if r.Verdict != VerdictCriticalFail {
		t.Fatalf("want CRITICAL_FAIL, got %s", r.Verdict)
	}
	if r.CriticalFailures != 1 {
		t.Fatalf("want 1 critical failure, got %d", r.CriticalFailures)
	}
}

func TestNewRunReport_NonCriticalFailure(t *testing.T) {
	// A passing critical check must not count as a critical failure.
	r := NewRunReport([]Outcome{
		out("a", true, true, 5),
		out("b", false, false, 5),
	}, 10, false)

	if r.Verdict != VerdictFail {
		t.Fatalf("want FAIL, got %s", r.Verdict)
	}
	if r.CriticalFailures != 0 {
		t.Fatalf("want 0 critical failures, got %d", r.CriticalFailures)
	}
}

func TestNewRunReport_PassRateRounding(t *testing.T) {
	outs := []Outcome{
		out("a", true, false, 1),
		out("b", true, false, 1),
		out("c", false, false, 1),
	}
	r := NewRunReport(outs, 3, false)
	if r.PassRatePct != 66.67 {
		t.Fatalf("want 66.67, got %f", r.PassRatePct)
	}
}

func TestNewRunReport_Empty(t *testing.T) {
	r := NewRunReport(nil, 0, true)
	if r.PassRatePct != 0 || r.AvgElapsedMS != 0 {
		t.Fatalf("empty report should have zero rates: %+v", r)
	}
	if r.Verdict != VerdictPass {
		t.Fatalf("empty outcome list has nothing failing, got %s", r.Verdict)
	}
	if !r.Cancelled {
		t.Fatalf("cancelled flag should carry through")
	}
}

func TestRunStateTerminal(t *testing.T) {
	for _, tc := range []struct {
		s    RunState
		want bool
	}{
		{StateIdle, false},
		{StateRunning, false},
		{StateCompleted, true},
		{StateCancelled, true},
	} {
		if got := tc.s.Terminal(); got != tc.want {
			t.Fatalf("%s: terminal=%v, want %v", tc.s, got, tc.want)
		}
	}
}
