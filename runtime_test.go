package instantx_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/comalice/instantx"
)

func TestPauseAdvancesExactlyOneRound(t *testing.T) {
	rt := newRuntime(t)

	var before, after atomic.Bool
	if err := rt.Start(instantx.Seq(
		instantx.Atomic(func() error { before.Store(true); return nil }),
		instantx.Pause(),
		instantx.Atomic(func() error { after.Store(true); return nil }),
	)); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	rep := mustStep(t, rt)
	if !before.Load() || after.Load() {
		t.Errorf("instant 1: before=%v after=%v, want true/false", before.Load(), after.Load())
	}
	if rep.Terminated {
		t.Errorf("terminated at instant 1, pause should defer the rest")
	}
	rep = mustStep(t, rt)
	if !after.Load() || !rep.Terminated {
		t.Errorf("instant 2: after=%v terminated=%v, want true/true", after.Load(), rep.Terminated)
	}
}

func TestParallelJoinWaitsForSlowestBranch(t *testing.T) {
	rt := newRuntime(t, instantx.WithWorkers(4))

	if err := rt.Start(instantx.Par(
		instantx.Seq(instantx.Pause(), instantx.Pause()),
		instantx.Pause(),
		instantx.Nothing(),
	)); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	for i, wantTerm := range []bool{false, false, true} {
		rep := mustStep(t, rt)
		if rep.Terminated != wantTerm {
			t.Errorf("instant %d: terminated=%v, want %v", i+1, rep.Terminated, wantTerm)
		}
	}
}

func TestParallelJoinTerminatesImmediateBranches(t *testing.T) {
	rt := newRuntime(t)

	// A joined fork must resume past the fork point, not re-spawn its
	// branches.
	if err := rt.Start(instantx.Par(instantx.Nothing(), instantx.Nothing())); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if rep := mustStep(t, rt); !rep.Terminated {
		t.Errorf("parallel of immediate branches must terminate on the first instant")
	}
}

func TestNestedParallelJoins(t *testing.T) {
	rt := newRuntime(t, instantx.WithWorkers(4))

	var ran atomic.Int64
	mark := func() instantx.Proc {
		return instantx.Atomic(func() error { ran.Add(1); return nil })
	}
	if err := rt.Start(instantx.Seq(
		instantx.Par(
			instantx.Par(mark(), mark()),
			instantx.Par(mark(), instantx.Seq(instantx.Pause(), mark())),
		),
		mark(),
	)); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	mustStep(t, rt)
	rep := mustStep(t, rt)
	if !rep.Terminated {
		t.Fatalf("nested forks did not all join by instant 2")
	}
	if ran.Load() != 5 {
		t.Errorf("ran %d atomics, want 5 (each exactly once)", ran.Load())
	}
}

func TestRunStopsAtInstantBound(t *testing.T) {
	rt := newRuntime(t)
	if err := rt.Start(instantx.Loop(instantx.Pause())); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	rep, err := rt.Run(context.Background(), 5)
	if !errors.Is(err, instantx.ErrMaxInstants) {
		t.Fatalf("Run() error = %v, want ErrMaxInstants", err)
	}
	if rep.Instant != 5 {
		t.Errorf("last instant = %d, want 5", rep.Instant)
	}
}

func TestRunHonorsContext(t *testing.T) {
	rt := newRuntime(t)
	if err := rt.Start(instantx.Loop(instantx.Pause())); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := rt.Run(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRunToTermination(t *testing.T) {
	rt := newRuntime(t)
	if err := rt.Start(instantx.Seq(instantx.Pause(), instantx.Pause())); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	rep, err := rt.Run(context.Background(), 100)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if !rep.Terminated || rep.Instant != 3 {
		t.Errorf("got instant %d terminated=%v, want termination at 3", rep.Instant, rep.Terminated)
	}
}

func TestStepBeforeStart(t *testing.T) {
	rt := newRuntime(t)
	if _, err := rt.Step(); !errors.Is(err, instantx.ErrNotStarted) {
		t.Errorf("Step() error = %v, want ErrNotStarted", err)
	}
}

func TestStepAfterTermination(t *testing.T) {
	rt := newRuntime(t)
	if err := rt.Start(instantx.Nothing()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	mustStep(t, rt)
	if _, err := rt.Step(); !errors.Is(err, instantx.ErrTerminated) {
		t.Errorf("Step() error = %v, want ErrTerminated", err)
	}
}

func TestDoubleStart(t *testing.T) {
	rt := newRuntime(t)
	if err := rt.Start(instantx.Nothing()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if err := rt.Start(instantx.Nothing()); err == nil {
		t.Errorf("second Start() should fail")
	}
}

func TestAtomicErrorAbortsInstant(t *testing.T) {
	rt := newRuntime(t)
	boom := errors.New("boom")
	if err := rt.Start(instantx.Atomic(func() error { return boom })); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if _, err := rt.Step(); !errors.Is(err, boom) {
		t.Fatalf("Step() error = %v, want boom", err)
	}
	// The runtime stays failed.
	if _, err := rt.Step(); !errors.Is(err, boom) {
		t.Errorf("second Step() error = %v, want boom again", err)
	}
}

func TestAtomicPanicAbortsInstant(t *testing.T) {
	rt := newRuntime(t)
	if err := rt.Start(instantx.Atomic(func() error { panic("kaboom") })); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if _, err := rt.Step(); err == nil {
		t.Errorf("Step() should surface the panic as an error")
	}
}
