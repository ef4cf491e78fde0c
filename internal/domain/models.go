package domain

import "time"

type RunID string

// CheckSpec declares one HTTP probe to execute.
//
// Field names are part of the wire contract with suite authors and report
// consumers; keep them stable.
type CheckSpec struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	URL            string            `json:"url"`
	Method         string            `json:"method"`
	Headers        map[string]string `json:"headers,omitempty"`
	ExpectedStatus int               `json:"expectedStatus"`
	MaxDurationMS  int64             `json:"maxDurationMs"`
	Critical       bool              `json:"critical"`
}

// Deadline returns the probe deadline as a duration.
func (s CheckSpec) Deadline() time.Duration {
	return time.Duration(s.MaxDurationMS) * time.Millisecond
}

// Outcome is the immutable result of probing one CheckSpec.
//
// ObservedStatus is 0 when no status line was received (transport error,
// deadline exceeded, cancellation).
type Outcome struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Method         string  `json:"method"`
	URL            string  `json:"url"`
	Passed         bool    `json:"passed"`
	ObservedStatus int     `json:"observedStatus"`
	ElapsedMS      float64 `json:"elapsedMs"`
	Critical       bool    `json:"critical"`
	Message        string  `json:"message"`
	Warning        string  `json:"warning,omitempty"`
}

// ProgressEvent is emitted once per Outcome, in input order.
type ProgressEvent struct {
	Index   int     `json:"index"`
	Total   int     `json:"total"`
	Outcome Outcome `json:"outcome"`
}

// Run is the persisted envelope around one execution: identity, lifecycle
// state and, once terminal, the report.
type Run struct {
	ID         RunID      `json:"id"`
	Suite      string     `json:"suite,omitempty"`
	State      RunState   `json:"state"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Report     *RunReport `json:"report,omitempty"`
}
