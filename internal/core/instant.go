package core

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Emission is a host-injected emit, applied at the start of an instant
// before any continuation runs.
type Emission struct {
	Sig   *Signal
	Value any
}

// SignalValue is a signal's state at an instant boundary.
type SignalValue struct {
	Present bool
	Value   any
}

// Instant carries the execution state of a single logical round: counters,
// the step budget, and the first failure. It is shared by the scheduler and
// every worker for the duration of one RunInstant.
type Instant struct {
	num      uint64
	sched    *Scheduler
	pool     *Pool
	maxSteps int64

	steps     atomic.Int64
	emissions atomic.Int64
	abortFlag atomic.Bool

	errMu sync.Mutex
	err   error
}

func (in *Instant) enqueue(c *Cont) { in.pool.enqueue(c) }

func (in *Instant) nextID() uint64 { return in.sched.nextID() }

func (in *Instant) addSignal(s *Signal)  { in.sched.addSignal(s) }
func (in *Instant) dropSignal(s *Signal) { in.sched.dropSignal(s) }

func (in *Instant) aborted() bool { return in.abortFlag.Load() }

// fail records the first failure and aborts the rest of the instant.
func (in *Instant) fail(err error) {
	in.errMu.Lock()
	if in.err == nil {
		in.err = err
	}
	in.errMu.Unlock()
	in.abortFlag.Store(true)
}

func (in *Instant) failure() error {
	in.errMu.Lock()
	defer in.errMu.Unlock()
	return in.err
}

// countStep charges one executed step against the instant budget. A false
// return means the budget is blown and the instant is failing.
func (in *Instant) countStep() bool {
	if in.steps.Add(1) > in.maxSteps {
		in.fail(fmt.Errorf("%w: exceeded %d steps in instant %d",
			ErrInstantDivergence, in.maxSteps, in.num))
		return false
	}
	return true
}

func (in *Instant) noteEmission() { in.emissions.Add(1) }
