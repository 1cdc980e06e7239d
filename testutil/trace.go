// Package testutil carries helpers shared by the engine's tests.
package testutil

import (
	"sync"

	"github.com/comalice/instantx"
)

// Trace accumulates instant reports so tests can assert on per-instant
// signal state after the fact. Safe for use from realtime callbacks.
type Trace struct {
	mu   sync.Mutex
	reps []instantx.InstantReport
}

// Record appends one report; pass it as an OnInstant callback or call it
// after Step.
func (t *Trace) Record(rep instantx.InstantReport) {
	t.mu.Lock()
	t.reps = append(t.reps, rep)
	t.mu.Unlock()
}

// Reports returns a copy of everything recorded.
func (t *Trace) Reports() []instantx.InstantReport {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]instantx.InstantReport, len(t.reps))
	copy(out, t.reps)
	return out
}

// Len returns how many instants were recorded.
func (t *Trace) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.reps)
}

// Signal returns the recorded state of a signal at a 1-based instant.
func (t *Trace) Signal(instant uint64, name string) (instantx.SignalValue, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, rep := range t.reps {
		if rep.Instant == instant {
			sv, ok := rep.Signals[name]
			return sv, ok
		}
	}
	return instantx.SignalValue{}, false
}

// StepN runs n instants, recording each report. It stops early on
// termination or error.
func StepN(rt *instantx.Runtime, n int, tr *Trace) error {
	for i := 0; i < n; i++ {
		rep, err := rt.Step()
		if err != nil {
			return err
		}
		if tr != nil {
			tr.Record(rep)
		}
		if rep.Terminated {
			return nil
		}
	}
	return nil
}
