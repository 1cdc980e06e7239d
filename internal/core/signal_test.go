package core

import (
	"errors"
	"sync"
	"testing"
)

func TestSignalMergeAndReset(t *testing.T) {
	s := NewSignal("s", 0, func(acc, v any) any { return acc.(int) + v.(int) }, false)
	in := &Instant{maxSteps: DefaultMaxSteps}
	in.pool = &Pool{} // no waiters registered, the queue stays untouched

	s.Emit(in, 2)
	s.Emit(in, 3)
	if v, present := s.Read(); !present || v != 5 {
		t.Errorf("Read() = %v, %v, want 5, present", v, present)
	}

	s.reset()
	if v, present := s.Read(); present || v != 0 {
		t.Errorf("after reset: Read() = %v, %v, want default 0, absent", v, present)
	}
}

func TestDeadSignalPanicsOnEmit(t *testing.T) {
	s := NewSignal("s", 0, nil, false)
	s.kill()

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrDeadSignal) {
			t.Errorf("recovered %v, want ErrDeadSignal", r)
		}
	}()
	s.Emit(&Instant{maxSteps: DefaultMaxSteps}, 1)
}

// queueOnlyPool accepts enqueues without running anything, so waiter state
// can be inspected deterministically.
func queueOnlyPool() *Pool {
	p := &Pool{}
	p.work = sync.NewCond(&p.mu)
	p.idle = sync.NewCond(&p.mu)
	return p
}

func TestEmissionWakesRegisteredWaiter(t *testing.T) {
	s := NewSignal("s", 0, nil, false)
	c := &Cont{}
	ep := c.beginWait()
	if s.addWaiter(c, ep) {
		t.Errorf("addWaiter on absent signal should register, not report presence")
	}

	in := &Instant{maxSteps: DefaultMaxSteps, pool: queueOnlyPool()}
	s.Emit(in, 1)
	if c.Status() != StatusRunnable {
		t.Errorf("waiter status = %v after emission, want runnable", c.Status())
	}

	// A registration from before the latest block is stale and must not
	// wake the continuation.
	stale := c.beginWait()
	c.beginWait()
	if c.tryWake(stale) {
		t.Errorf("stale epoch woke the continuation")
	}
}

func TestAddWaiterReportsPresence(t *testing.T) {
	s := NewSignal("s", 0, nil, false)
	in := &Instant{maxSteps: DefaultMaxSteps, pool: queueOnlyPool()}
	s.Emit(in, 1)

	c := &Cont{}
	if !s.addWaiter(c, c.beginWait()) {
		t.Errorf("addWaiter on a present signal must report presence")
	}
}
