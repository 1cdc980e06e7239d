package core

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/comalice/instantx/internal/logging"
	"github.com/comalice/instantx/internal/metrics"
)

// DefaultMaxSteps is the per-instant executed-step budget when the host does
// not set one.
const DefaultMaxSteps = 1 << 20

// Config carries the scheduler's construction parameters.
type Config struct {
	Workers  int
	MaxSteps int64
	Log      *slog.Logger
	Metrics  *metrics.Set
}

// Scheduler owns the live continuations and the registered signals and drives
// one instant at a time. RunInstant is not safe for concurrent use; the
// parallelism lives inside the instant, in the pool.
type Scheduler struct {
	log      *slog.Logger
	met      *metrics.Set
	pool     *Pool
	maxSteps int64

	instant uint64
	root    *Cont
	ids     atomic.Uint64

	mu      sync.Mutex // guards live and signals; workers append mid-instant
	live    []*Cont
	signals []*Signal
}

// NewScheduler builds a scheduler and starts its worker pool.
func NewScheduler(cfg Config) *Scheduler {
	if cfg.Log == nil {
		cfg.Log = logging.NewNop()
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}
	return &Scheduler{
		log:      cfg.Log,
		met:      cfg.Metrics,
		pool:     NewPool(cfg.Workers),
		maxSteps: cfg.MaxSteps,
	}
}

func (s *Scheduler) nextID() uint64 { return s.ids.Add(1) }

func (s *Scheduler) addSignal(sig *Signal) {
	s.mu.Lock()
	s.signals = append(s.signals, sig)
	s.mu.Unlock()
}

func (s *Scheduler) dropSignal(sig *Signal) {
	s.mu.Lock()
	for i, cur := range s.signals {
		if cur == sig {
			s.signals = append(s.signals[:i], s.signals[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
}

func (s *Scheduler) addConts(cs []*Cont) {
	s.mu.Lock()
	s.live = append(s.live, cs...)
	s.mu.Unlock()
}

// DeclareSignal registers an external signal owned by the host for the
// runtime's lifetime.
func (s *Scheduler) DeclareSignal(name string, def any, combine CombineFunc) *Signal {
	sig := NewSignal(name, def, combine, true)
	s.addSignal(sig)
	return sig
}

// Attach validates the root process and seeds it so the first RunInstant
// starts it.
func (s *Scheduler) Attach(root Node) error {
	if err := Validate(root); err != nil {
		return err
	}
	c := &Cont{id: s.nextID(), status: StatusComplete, node: root}
	s.root = c
	s.mu.Lock()
	s.live = append(s.live, c)
	s.mu.Unlock()
	return nil
}

// Terminated reports whether the root process ran to completion.
func (s *Scheduler) Terminated() bool {
	return s.root != nil && s.root.Status() == StatusTerminated
}

// Shutdown stops the worker pool.
func (s *Scheduler) Shutdown() { s.pool.Close() }

// Report summarizes one completed instant.
type Report struct {
	Instant    uint64
	Terminated bool
	Steps      int64
	Emissions  int64
	Outputs    map[string]SignalValue
}

// RunInstant executes exactly one instant: inject host emissions, resume
// everything that yielded at the previous boundary, run the pool to the fixed
// point, then settle the boundary — commit parked choices, deliver merged
// values, snapshot external outputs, reset signals, prune the dead.
func (s *Scheduler) RunInstant(inject []Emission) (Report, error) {
	s.instant++
	start := time.Now()
	in := &Instant{num: s.instant, sched: s, pool: s.pool, maxSteps: s.maxSteps}
	s.pool.begin(in)

	// Host emissions land before any continuation runs, so they are visible
	// for the whole instant.
	func() {
		defer func() {
			if r := recover(); r != nil {
				if err, ok := r.(error); ok {
					in.fail(err)
				} else {
					in.fail(fmt.Errorf("host emission: %v", r))
				}
			}
		}()
		for _, e := range inject {
			e.Sig.Emit(in, e.Value)
		}
	}()

	for _, c := range s.liveSnapshot() {
		if c.Status() == StatusComplete {
			c.setStatus(StatusRunnable)
			in.enqueue(c)
		}
	}

	s.pool.drain()

	steps, ems := in.steps.Load(), in.emissions.Load()

	if err := in.failure(); err != nil {
		s.resetSignals()
		if s.met != nil {
			s.met.IncAbort()
		}
		s.log.Warn("instant aborted", "instant", s.instant, "err", err)
		return Report{Instant: s.instant, Steps: steps, Emissions: ems}, err
	}

	// Boundary: parked choices whose awaited signals stayed absent fall
	// through to their immediate branch next instant.
	for _, c := range s.liveSnapshot() {
		c.commitChoiceElse()
	}

	// Deliver merged values: value waiters of present signals resume next
	// instant with the final merge of this one.
	for _, sig := range s.signalsSnapshot() {
		v, vws := sig.takeValueWaiters()
		for _, vw := range vws {
			vw.c.installDelivery(vw.deliver, v)
		}
	}

	outs := make(map[string]SignalValue)
	for _, sig := range s.signalsSnapshot() {
		if sig.External() {
			outs[sig.Name()] = sig.snapshot()
		}
	}

	s.resetSignals()

	s.mu.Lock()
	var scheduled, extWait bool
	liveNext := s.live[:0]
	for _, c := range s.live {
		st := c.Status()
		if st == StatusTerminated {
			continue
		}
		liveNext = append(liveNext, c)
		switch st {
		case StatusComplete:
			scheduled = true
		case StatusWaiting:
			if c.waitingExternal() {
				extWait = true
			}
		}
	}
	s.live = liveNext
	liveCount := len(liveNext)
	s.mu.Unlock()

	if steps == 0 && ems == 0 && !scheduled && liveCount > 0 && !extWait {
		err := fmt.Errorf("%w: %d continuation(s) blocked on signals nothing can emit",
			ErrInstantDivergence, liveCount)
		if s.met != nil {
			s.met.IncAbort()
		}
		s.log.Warn("instant aborted", "instant", s.instant, "err", err)
		return Report{Instant: s.instant, Steps: steps, Emissions: ems, Outputs: outs}, err
	}

	rep := Report{
		Instant:    s.instant,
		Terminated: s.Terminated(),
		Steps:      steps,
		Emissions:  ems,
		Outputs:    outs,
	}
	s.log.Debug("instant complete",
		"instant", s.instant, "steps", steps, "emissions", ems,
		"live", liveCount, "terminated", rep.Terminated)
	if s.met != nil {
		s.met.ObserveInstant(time.Since(start), steps, ems)
	}
	return rep, nil
}

func (s *Scheduler) liveSnapshot() []*Cont {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Cont, len(s.live))
	copy(out, s.live)
	return out
}

func (s *Scheduler) signalsSnapshot() []*Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Signal, len(s.signals))
	copy(out, s.signals)
	return out
}

func (s *Scheduler) resetSignals() {
	for _, sig := range s.signalsSnapshot() {
		sig.reset()
	}
}
