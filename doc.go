// Package instantx is a synchronous-reactive process engine. Time is divided
// into instants: within one instant every process sees the same view of every
// signal, emissions merge through a commutative combine function, and a
// signal's absence is only decided when the instant ends. Processes are built
// from a small combinator algebra (Seq, Par, Choice, Loop, Await, Emit, ...)
// and executed by a worker pool, with observable behavior independent of how
// work is scheduled across workers.
//
// A minimal program:
//
//	rt := instantx.NewRuntime()
//	defer rt.Stop()
//	ping := rt.DeclareSignal("ping", 0, nil)
//	if err := rt.Start(instantx.Par(
//		instantx.Emit(ping, 1),
//		instantx.Seq(instantx.Await(ping), instantx.Atomic(work)),
//	)); err != nil {
//		return err
//	}
//	rep, err := rt.Run(ctx, 100)
//
// Step runs exactly one instant; Run steps until the root process terminates
// or a bound is hit. Hosts feed input by declaring external signals and
// calling Emit on them between steps.
package instantx
