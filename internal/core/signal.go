package core

import (
	"fmt"
	"sync"
)

// CombineFunc merges one emitted value into a signal's accumulated value for
// the current instant. It must be associative and commutative: the order of
// emissions from parallel branches within an instant is unspecified.
type CombineFunc func(acc, v any) any

type waiter struct {
	c     *Cont
	epoch uint64
}

type valueWaiter struct {
	c       *Cont
	deliver func(v any)
}

// Signal is a per-instant reactive variable: a presence flag and a merged
// value, both cleared at every instant boundary. Each signal carries its own
// mutex, held only across the merge and waiter hand-off, so unrelated signals
// never contend.
type Signal struct {
	name     string
	def      any
	combine  CombineFunc
	external bool

	mu           sync.Mutex
	present      bool
	acc          any
	dead         bool
	waiters      []waiter
	valueWaiters []valueWaiter
}

// NewSignal creates a signal with the given default and combine function. A
// nil combine keeps the latest emission. External signals are host-declared
// and live for the runtime's lifetime.
func NewSignal(name string, def any, combine CombineFunc, external bool) *Signal {
	if combine == nil {
		combine = func(acc, v any) any { return v }
	}
	return &Signal{name: name, def: def, combine: combine, external: external, acc: def}
}

func (s *Signal) Name() string { return s.name }

// External reports whether the host owns this signal.
func (s *Signal) External() bool { return s.external }

// Emit merges v into the signal for the current instant, marks it present,
// and wakes every continuation awaiting it onto the instant's queue. Panics
// with ErrDeadSignal if the declaring scope has terminated.
func (s *Signal) Emit(in *Instant, v any) {
	ws := func() []waiter {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.dead {
			panic(fmt.Errorf("%w: emit on %q", ErrDeadSignal, s.name))
		}
		s.present = true
		s.acc = s.combine(s.acc, v)
		ws := s.waiters
		s.waiters = nil
		return ws
	}()
	in.noteEmission()
	for _, w := range ws {
		if w.c.tryWake(w.epoch) {
			in.enqueue(w.c)
		}
	}
}

// Read returns the merged value so far and whether the signal is present this
// instant. Absent signals read as their default.
func (s *Signal) Read() (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dead {
		panic(fmt.Errorf("%w: read on %q", ErrDeadSignal, s.name))
	}
	if !s.present {
		return s.def, false
	}
	return s.acc, true
}

// Present reports presence for the current instant.
func (s *Signal) Present() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dead {
		panic(fmt.Errorf("%w: await on %q", ErrDeadSignal, s.name))
	}
	return s.present
}

// addWaiter registers c to be woken by the next emission. If the signal is
// already present the registration is skipped and true is returned; the
// caller wakes c itself. The presence check happens under the signal lock,
// after c entered StatusWaiting, so an emission can never slip between the
// check and the registration.
func (s *Signal) addWaiter(c *Cont, epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dead {
		panic(fmt.Errorf("%w: await on %q", ErrDeadSignal, s.name))
	}
	if s.present {
		return true
	}
	s.waiters = append(s.waiters, waiter{c: c, epoch: epoch})
	return false
}

func (s *Signal) addValueWaiter(c *Cont, deliver func(v any)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dead {
		panic(fmt.Errorf("%w: await on %q", ErrDeadSignal, s.name))
	}
	s.valueWaiters = append(s.valueWaiters, valueWaiter{c: c, deliver: deliver})
}

// takeValueWaiters hands out the merged value and the registered value
// waiters if the signal is present. Called by the scheduler at the instant
// boundary, after the pool drained.
func (s *Signal) takeValueWaiters() (any, []valueWaiter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.present || len(s.valueWaiters) == 0 {
		return nil, nil
	}
	vws := s.valueWaiters
	s.valueWaiters = nil
	return s.acc, vws
}

// snapshot captures presence and value for the instant report, taken before
// reset.
func (s *Signal) snapshot() SignalValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.present {
		return SignalValue{Present: false, Value: s.def}
	}
	return SignalValue{Present: true, Value: s.acc}
}

// reset clears presence and restores the default accumulator. Exactly once
// per instant, at the boundary.
func (s *Signal) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.present = false
	s.acc = s.def
}

// kill marks the signal dead when its declaring scope terminates.
func (s *Signal) kill() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dead = true
	s.waiters = nil
	s.valueWaiters = nil
}
