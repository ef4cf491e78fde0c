package domain

import "math"

type Verdict string

const (
	VerdictPass         Verdict = "PASS"
	VerdictFail         Verdict = "FAIL"
	VerdictCriticalFail Verdict = "CRITICAL_FAIL"
)

type RunState string

const (
	StateIdle      RunState = "idle"
	StateRunning   RunState = "running"
	StateCompleted RunState = "completed"
	StateCancelled RunState = "cancelled"
)

// Terminal reports whether the state admits no further transitions.
func (s RunState) Terminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// RunReport is the terminal aggregate over one run's Outcomes.
type RunReport struct {
	Total            int       `json:"total"`
	Passed           int       `json:"passed"`
	Failed           int       `json:"failed"`
	CriticalFailures int       `json:"criticalFailures"`
	PassRatePct      float64   `json:"passRatePct"`
	AvgElapsedMS     float64   `json:"avgElapsedMs"`
	MaxElapsedMS     float64   `json:"maxElapsedMs"`
	TotalElapsedMS   float64   `json:"totalElapsedMs"`
	Verdict          Verdict   `json:"verdict"`
	Cancelled        bool      `json:"cancelled,omitempty"`
	Outcomes         []Outcome `json:"outcomes"`
}

// NewRunReport folds an ordered Outcome list into the aggregate.
// A single critical failure outranks any number of plain failures; any
// failure outranks a clean pass. There is no partial-credit tier.
func NewRunReport(outcomes []Outcome, totalElapsedMS float64, cancelled bool) *RunReport {
	r := &RunReport{
		Total:          len(outcomes),
		TotalElapsedMS: totalElapsedMS,
		Cancelled:      cancelled,
		Outcomes:       outcomes,
	}

	var sum float64
	for _, o := range outcomes {
		if o.Passed {
			r.Passed++
		} else {
			r.Failed++
			if o.Critical {
				r.CriticalFailures++
			}
		}
		sum += o.ElapsedMS
		if o.ElapsedMS > r.MaxElapsedMS {
			r.MaxElapsedMS = o.ElapsedMS
		}
	}

	if r.Total > 0 {
		r.PassRatePct = round2(100 * float64(r.Passed) / float64(r.Total))
		r.AvgElapsedMS = sum / float64(r.Total)
	}

	switch {
	case r.CriticalFailures > 0:
		r.Verdict = VerdictCriticalFail
	case r.Failed > 0:
		r.Verdict = VerdictFail
	default:
		r.Verdict = VerdictPass
	}
	return r
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
