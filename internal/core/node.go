package core

import "fmt"

// Node is one combinator of the process algebra. The set is closed: the
// continuation step function dispatches on it with a single type switch, so
// adding a combinator means extending that switch, not implementing an
// interface elsewhere.
type Node interface {
	isNode()
}

// NothingNode terminates immediately.
type NothingNode struct{}

// AtomicNode runs a host function within the current instant. A returned
// error aborts the instant.
type AtomicNode struct {
	Fn func() error
}

// PauseNode yields until the next instant.
type PauseNode struct{}

// EmitNode emits a value, computed at emission time, onto a signal.
type EmitNode struct {
	Sig   *Signal
	Value func() any
}

// AwaitNode blocks until its signal is present, resuming within the same
// instant as the emission.
type AwaitNode struct {
	Sig *Signal
}

// AwaitValueNode blocks until its signal is present, then receives the
// fully merged value at the start of the next instant. This is the only way
// process code observes a merged value, which keeps merge-before-read intact.
type AwaitValueNode struct {
	Sig     *Signal
	Deliver func(v any)
}

// SeqNode runs its steps in order.
type SeqNode struct {
	Steps []Node
}

// ChoiceNode commits to exactly one branch. An await-headed branch whose
// signal is present commits immediately; with no await-headed branches the
// first branch commits; otherwise the choice parks until an awaited signal is
// emitted or the instant ends (see Cont.commitChoiceElse).
type ChoiceNode struct {
	Branches []Node
}

// ParNode runs its branches as independent continuations and resumes when
// the last one terminates.
type ParNode struct {
	Branches []Node
}

// LoopNode restarts its body each time the body terminates. The body must
// yield at least once per iteration.
type LoopNode struct {
	Body Node
}

// BreakNode terminates the innermost enclosing loop.
type BreakNode struct{}

// ScopeNode declares a signal whose lifetime is the body's execution. The
// body is built when the scope starts, so the signal handle can be captured
// by the combinators inside it.
type ScopeNode struct {
	Name    string
	Default any
	Combine CombineFunc
	Body    func(sig *Signal) Node
}

func (*NothingNode) isNode()    {}
func (*AtomicNode) isNode()     {}
func (*PauseNode) isNode()      {}
func (*EmitNode) isNode()       {}
func (*AwaitNode) isNode()      {}
func (*AwaitValueNode) isNode() {}
func (*SeqNode) isNode()        {}
func (*ChoiceNode) isNode()     {}
func (*ParNode) isNode()        {}
func (*LoopNode) isNode()       {}
func (*BreakNode) isNode()      {}
func (*ScopeNode) isNode()      {}

// Validate rejects process expressions containing a loop whose body can never
// yield. Scope bodies are built at runtime and validated on entry instead.
func Validate(n Node) error {
	switch n := n.(type) {
	case *SeqNode:
		for _, s := range n.Steps {
			if err := Validate(s); err != nil {
				return err
			}
		}
	case *ChoiceNode:
		for _, b := range n.Branches {
			if err := Validate(b); err != nil {
				return err
			}
		}
	case *ParNode:
		for _, b := range n.Branches {
			if err := Validate(b); err != nil {
				return err
			}
		}
	case *LoopNode:
		if !canYield(n.Body) {
			return fmt.Errorf("%w: loop body has no pause, await, or break", ErrInstantaneousLoop)
		}
		return Validate(n.Body)
	}
	return nil
}

// canYield reports whether executing n can suspend the current instant (or
// exit the loop). A choice can yield if any branch can, or if it has an
// await-headed branch that may park it.
func canYield(n Node) bool {
	switch n := n.(type) {
	case *PauseNode, *AwaitNode, *AwaitValueNode, *BreakNode:
		return true
	case *SeqNode:
		for _, s := range n.Steps {
			if canYield(s) {
				return true
			}
		}
	case *ChoiceNode:
		if len(awaitHeads(n)) > 0 {
			return true
		}
		for _, b := range n.Branches {
			if canYield(b) {
				return true
			}
		}
	case *ParNode:
		for _, b := range n.Branches {
			if canYield(b) {
				return true
			}
		}
	case *LoopNode:
		return canYield(n.Body)
	case *ScopeNode:
		// Body unknown until runtime; the dynamic restart guard covers it.
		return true
	}
	return false
}

// awaitHeads collects the signals awaited at the head of n, looking through
// sequence prefixes and nested choices.
func awaitHeads(n Node) []*Signal {
	switch n := n.(type) {
	case *AwaitNode:
		return []*Signal{n.Sig}
	case *SeqNode:
		if len(n.Steps) > 0 {
			return awaitHeads(n.Steps[0])
		}
	case *ChoiceNode:
		var sigs []*Signal
		for _, b := range n.Branches {
			sigs = append(sigs, awaitHeads(b)...)
		}
		return sigs
	}
	return nil
}

// headReady reports whether n starts with an await whose signal is already
// present this instant.
func headReady(n Node) bool {
	switch n := n.(type) {
	case *AwaitNode:
		return n.Sig.Present()
	case *SeqNode:
		if len(n.Steps) > 0 {
			return headReady(n.Steps[0])
		}
	case *ChoiceNode:
		for _, b := range n.Branches {
			if headReady(b) {
				return true
			}
		}
	}
	return false
}

// pickBranch selects the branch a choice commits to right now, or nil if the
// choice must park: in declaration order, the first await-headed branch whose
// signal is present, or — when no branch is await-headed — the first branch.
func pickBranch(ch *ChoiceNode) Node {
	anyAwait := false
	for _, b := range ch.Branches {
		if len(awaitHeads(b)) == 0 {
			continue
		}
		anyAwait = true
		if headReady(b) {
			return b
		}
	}
	if !anyAwait {
		return ch.Branches[0]
	}
	return nil
}

// firstImmediate returns the first branch with no await at its head, the
// branch a parked choice falls through to at the instant boundary.
func firstImmediate(ch *ChoiceNode) Node {
	for _, b := range ch.Branches {
		if len(awaitHeads(b)) == 0 {
			return b
		}
	}
	return nil
}
