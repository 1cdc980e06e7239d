package instantx_test

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/comalice/instantx"
)

func newRuntime(t *testing.T, opts ...instantx.Option) *instantx.Runtime {
	t.Helper()
	rt := instantx.NewRuntime(opts...)
	t.Cleanup(rt.Stop)
	return rt
}

func mustStep(t *testing.T, rt *instantx.Runtime) instantx.InstantReport {
	t.Helper()
	rep, err := rt.Step()
	if err != nil {
		t.Fatalf("Step() failed at instant %d: %v", rep.Instant, err)
	}
	return rep
}

func sumInts(acc, v any) any { return acc.(int) + v.(int) }

func TestRoundIsolation(t *testing.T) {
	rt := newRuntime(t)
	s := rt.DeclareSignal("s", 0, sumInts)

	if err := rt.Start(instantx.Seq(
		instantx.Emit(s, 7),
		instantx.Pause(),
		instantx.Pause(),
	)); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	rep := mustStep(t, rt)
	if sv := rep.Signals["s"]; !sv.Present || sv.Value != 7 {
		t.Errorf("instant 1: got %+v, want present 7", sv)
	}

	// Presence must not leak into the next round.
	rep = mustStep(t, rt)
	if sv := rep.Signals["s"]; sv.Present || sv.Value != 0 {
		t.Errorf("instant 2: got %+v, want absent default 0", sv)
	}
	if v, present := s.Last(); present || v != 0 {
		t.Errorf("Last() = %v, %v, want default 0, absent", v, present)
	}
}

func TestCommutativeMergeUnderParallelism(t *testing.T) {
	rt := newRuntime(t, instantx.WithWorkers(8))
	total := rt.DeclareSignal("total", 0, sumInts)

	const n = 32
	var got atomic.Int64
	branches := make([]instantx.Proc, 0, n+1)
	for i := 1; i <= n; i++ {
		branches = append(branches, instantx.Emit(total, i))
	}
	branches = append(branches, instantx.AwaitValue(total, func(v any) {
		got.Store(int64(v.(int)))
	}))

	if err := rt.Start(instantx.Par(branches...)); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	rep := mustStep(t, rt)
	if rep.Emissions != n {
		t.Errorf("instant 1 emissions = %d, want %d", rep.Emissions, n)
	}
	rep = mustStep(t, rt)
	if !rep.Terminated {
		t.Errorf("expected termination at instant 2")
	}
	// 1+2+...+32, independent of worker interleaving.
	if got.Load() != n*(n+1)/2 {
		t.Errorf("merged sum = %d, want %d", got.Load(), n*(n+1)/2)
	}
}

func TestSameInstantVisibility(t *testing.T) {
	rt := newRuntime(t)
	ping := rt.DeclareSignal("ping", 0, nil)

	// The awaiting branch must wake in the instant of the emission, not
	// the one after.
	if err := rt.Start(instantx.Par(
		instantx.Seq(instantx.Pause(), instantx.Emit(ping, 1)),
		instantx.Await(ping),
	)); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	if rep := mustStep(t, rt); rep.Terminated {
		t.Fatalf("terminated at instant 1, emission only happens at instant 2")
	}
	if rep := mustStep(t, rt); !rep.Terminated {
		t.Errorf("await did not resume in the emission's instant")
	}
}

func TestHostInjectionVisibleForWholeInstant(t *testing.T) {
	rt := newRuntime(t)
	in := rt.DeclareSignal("in", "", nil)

	var seen atomic.Value
	if err := rt.Start(instantx.Seq(
		instantx.Await(in),
		instantx.AwaitValue(in, func(v any) { seen.Store(v) }),
	)); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	if err := in.Emit("hello"); err != nil {
		t.Fatalf("host Emit failed: %v", err)
	}
	mustStep(t, rt)
	rep := mustStep(t, rt)
	if !rep.Terminated {
		t.Fatalf("expected termination at instant 2")
	}
	if seen.Load() != "hello" {
		t.Errorf("delivered value = %v, want %q", seen.Load(), "hello")
	}
	if v, present := in.Last(); present || v != "" {
		t.Errorf("Last() after absent instant = %v, %v, want default", v, present)
	}
}

func TestHostEmissionsMergeWithProcessEmissions(t *testing.T) {
	rt := newRuntime(t)
	s := rt.DeclareSignal("s", 0, sumInts)

	if err := rt.Start(instantx.Seq(instantx.Emit(s, 1), instantx.Pause())); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if err := s.Emit(10); err != nil {
		t.Fatalf("host Emit failed: %v", err)
	}
	if err := s.Emit(100); err != nil {
		t.Fatalf("host Emit failed: %v", err)
	}

	rep := mustStep(t, rt)
	if sv := rep.Signals["s"]; sv.Value != 111 {
		t.Errorf("merged value = %v, want 111", sv.Value)
	}
	if v, present := s.Last(); !present || v != 111 {
		t.Errorf("Last() = %v, %v, want 111, present", v, present)
	}
}

func TestEmitAfterScopeExitAbortsInstant(t *testing.T) {
	rt := newRuntime(t)

	// The handle outlives its scope; using it afterwards is a programming
	// error that must fail the instant, not silently emit.
	var leaked *instantx.Signal
	proc := instantx.Seq(
		instantx.Scope("doomed", 0, nil, func(s *instantx.Signal) instantx.Proc {
			leaked = s
			return instantx.Nothing()
		}),
		// Built when the second scope starts, after the first one died.
		instantx.Scope("outer", 0, nil, func(*instantx.Signal) instantx.Proc {
			return instantx.Emit(leaked, 1)
		}),
	)
	if err := rt.Start(proc); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	if _, err := rt.Step(); !errors.Is(err, instantx.ErrDeadSignal) {
		t.Errorf("Step() error = %v, want ErrDeadSignal", err)
	}
}

func TestScopeLocalSignal(t *testing.T) {
	rt := newRuntime(t)

	var delivered atomic.Int64
	proc := instantx.Scope("local", 0, sumInts, func(s *instantx.Signal) instantx.Proc {
		if err := s.Emit(1); err == nil {
			t.Errorf("host Emit on scope-local signal should fail")
		}
		return instantx.Par(
			instantx.Emit(s, 3),
			instantx.Emit(s, 4),
			instantx.AwaitValue(s, func(v any) { delivered.Store(int64(v.(int))) }),
		)
	})
	if err := rt.Start(proc); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	mustStep(t, rt)
	rep := mustStep(t, rt)
	if !rep.Terminated {
		t.Fatalf("expected termination at instant 2")
	}
	if delivered.Load() != 7 {
		t.Errorf("scope-local merge = %d, want 7", delivered.Load())
	}
	if _, ok := rep.Signals["local"]; ok {
		t.Errorf("scope-local signal leaked into the instant report")
	}
}
