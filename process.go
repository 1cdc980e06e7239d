package instantx

import "github.com/comalice/instantx/internal/core"

// Proc is a process expression. Procs are immutable values; build them with
// the combinators below and hand the result to Runtime.Start.
type Proc struct {
	node core.Node
}

// CombineFunc merges one emission into a signal's value for the current
// instant. It must be associative and commutative.
type CombineFunc = core.CombineFunc

// LastWins is a CombineFunc keeping the latest emission. It is only
// deterministic for signals emitted at most once per instant.
func LastWins(acc, v any) any { return v }

// Nothing terminates immediately without doing anything.
func Nothing() Proc { return Proc{node: &core.NothingNode{}} }

// Atomic runs fn within the instant. A returned error aborts the instant.
func Atomic(fn func() error) Proc {
	return Proc{node: &core.AtomicNode{Fn: fn}}
}

// Pause suspends until the next instant.
func Pause() Proc { return Proc{node: &core.PauseNode{}} }

// Emit emits v onto s in the current instant.
func Emit(s *Signal, v any) Proc {
	return Proc{node: &core.EmitNode{Sig: s.sig, Value: func() any { return v }}}
}

// EmitWith emits the value fn computes at emission time.
func EmitWith(s *Signal, fn func() any) Proc {
	return Proc{node: &core.EmitNode{Sig: s.sig, Value: fn}}
}

// Await blocks until s is present, resuming in the same instant as the
// emission. If s is already present this instant, it does not block at all.
func Await(s *Signal) Proc {
	return Proc{node: &core.AwaitNode{Sig: s.sig}}
}

// AwaitValue blocks until s is present, then resumes at the start of the
// next instant with the instant's fully merged value. This is the only way a
// process reads a merged value: partial merges are never observable.
func AwaitValue(s *Signal, fn func(v any)) Proc {
	return Proc{node: &core.AwaitValueNode{Sig: s.sig, Deliver: fn}}
}

// Seq runs its processes in order.
func Seq(ps ...Proc) Proc {
	return Proc{node: &core.SeqNode{Steps: nodes(ps)}}
}

// Choice commits to exactly one of its branches. A branch starting with an
// Await commits as soon as its signal is present; if no awaited signal turns
// up by the end of the instant, the first branch without an Await at its head
// runs at the next instant. With no await-headed branches the first branch
// commits immediately.
func Choice(ps ...Proc) Proc {
	return Proc{node: &core.ChoiceNode{Branches: nodes(ps)}}
}

// Par runs its processes in parallel and terminates when the last of them
// terminates.
func Par(ps ...Proc) Proc {
	return Proc{node: &core.ParNode{Branches: nodes(ps)}}
}

// Loop restarts p each time it terminates. The body must suspend at least
// once per iteration; Start rejects bodies that cannot, and the runtime
// aborts the instant if an iteration completes without suspending.
func Loop(p Proc) Proc {
	return Proc{node: &core.LoopNode{Body: p.node}}
}

// Break terminates the innermost enclosing Loop.
func Break() Proc { return Proc{node: &core.BreakNode{}} }

// Scope declares a signal visible only to body. The signal dies with the
// scope: emitting or awaiting it afterwards aborts the instant with
// ErrDeadSignal.
func Scope(name string, def any, combine CombineFunc, body func(s *Signal) Proc) Proc {
	return Proc{node: &core.ScopeNode{
		Name:    name,
		Default: def,
		Combine: combine,
		Body: func(sig *core.Signal) core.Node {
			return body(&Signal{sig: sig}).node
		},
	}}
}

func nodes(ps []Proc) []core.Node {
	ns := make([]core.Node, len(ps))
	for i, p := range ps {
		ns[i] = p.node
	}
	return ns
}
