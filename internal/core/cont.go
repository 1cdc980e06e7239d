package core

import (
	"fmt"
	"sync"
)

type frameKind int

const (
	frameSeq frameKind = iota
	frameLoop
	frameScope
)

// frame is one level of the continuation's control stack: position in a
// sequence, an active loop with its per-iteration yield flag, or an open
// scope holding the signal to kill on exit.
type frame struct {
	kind    frameKind
	seq     *SeqNode
	idx     int
	loop    *LoopNode
	yielded bool
	sig     *Signal
}

// Cont is a resumable continuation: the node it resumes at plus a control
// stack. The mutex guards status, epoch, and the join counters; node and
// stack are only touched by the worker currently running the continuation or
// by the scheduler between instants.
type Cont struct {
	id     uint64
	parent *Cont

	mu          sync.Mutex
	status      Status
	epoch       uint64
	waitExt     bool
	joinLeft    int
	joinInstant uint64

	node  Node
	stack []frame
}

// Status returns the current lifecycle state.
func (c *Cont) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Cont) setStatus(st Status) {
	c.mu.Lock()
	c.status = st
	c.mu.Unlock()
}

// tryWake transitions Waiting to Runnable if the epoch still matches the
// registration. Stale waiter entries from an earlier block fail the epoch
// check and are ignored. Reports whether the caller should enqueue c.
func (c *Cont) tryWake(epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusWaiting || c.epoch != epoch {
		return false
	}
	c.status = StatusRunnable
	return true
}

// beginWait moves the continuation into Waiting under a fresh epoch and
// returns that epoch for waiter registration.
func (c *Cont) beginWait() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.status = StatusWaiting
	c.waitExt = false
	return c.epoch
}

func (c *Cont) setWaitExternal() {
	c.mu.Lock()
	c.waitExt = true
	c.mu.Unlock()
}

func (c *Cont) waitingExternal() bool {
	return c.waitExt
}

// beginJoin moves the continuation into Joining on n children spawned in
// instant num.
func (c *Cont) beginJoin(n int, num uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = StatusJoining
	c.joinLeft = n
	c.joinInstant = num
}

// markYield records, on every loop frame in the stack, that the current
// iteration suspended the instant. Called whenever the continuation pauses,
// blocks, or parks.
func (c *Cont) markYield() {
	for i := range c.stack {
		if c.stack[i].kind == frameLoop {
			c.stack[i].yielded = true
		}
	}
}

// commitChoiceElse resolves a choice still parked at the instant boundary:
// every awaited signal stayed absent, so the first branch without an await at
// its head is committed and begins at the next instant. Reports whether a
// branch was committed.
func (c *Cont) commitChoiceElse() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusWaiting {
		return false
	}
	ch, ok := c.node.(*ChoiceNode)
	if !ok {
		return false
	}
	b := firstImmediate(ch)
	if b == nil {
		return false
	}
	c.epoch++ // invalidate waiter registrations from the park
	c.status = StatusComplete
	c.node = b
	return true
}

// installDelivery hands a value waiter its merged value: the continuation
// resumes next instant by running the delivery function.
func (c *Cont) installDelivery(fn func(v any), v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.status = StatusComplete
	c.node = &AtomicNode{Fn: func() error {
		fn(v)
		return nil
	}}
}

type action int

const (
	actTerminated action = iota
	actYield
	actWait
	actValueWait
	actSpawn
	actAbort
)

// stepResult tells the pool how the continuation left the step function:
// finished, yielded for this instant, blocked on signals, blocked for a
// merged value, spawned parallel children, or hit an abort.
type stepResult struct {
	act      action
	waitSigs []*Signal
	valueSig *Signal
	deliver  func(v any)
	children []*Cont
}

// step runs the continuation until it terminates, yields, blocks, or spawns.
// It is only ever executed by one worker at a time.
func (c *Cont) step(in *Instant) stepResult {
	for {
		if in.aborted() {
			return stepResult{act: actAbort}
		}
		if !in.countStep() {
			return stepResult{act: actAbort}
		}
		if c.node == nil {
			res, done := c.advance(in)
			if done {
				return res
			}
			continue
		}
		switch n := c.node.(type) {
		case *NothingNode:
			c.node = nil
		case *AtomicNode:
			if err := n.Fn(); err != nil {
				in.fail(err)
				return stepResult{act: actAbort}
			}
			c.node = nil
		case *PauseNode:
			c.markYield()
			c.node = nil
			return stepResult{act: actYield}
		case *EmitNode:
			n.Sig.Emit(in, n.Value())
			c.node = nil
		case *AwaitNode:
			if n.Sig.Present() {
				c.node = nil
				continue
			}
			c.markYield()
			return stepResult{act: actWait, waitSigs: []*Signal{n.Sig}}
		case *AwaitValueNode:
			c.markYield()
			c.node = nil // replaced by the delivery when the value arrives
			return stepResult{act: actValueWait, valueSig: n.Sig, deliver: n.Deliver}
		case *SeqNode:
			if len(n.Steps) == 0 {
				c.node = nil
				continue
			}
			c.stack = append(c.stack, frame{kind: frameSeq, seq: n})
			c.node = n.Steps[0]
		case *ChoiceNode:
			if len(n.Branches) == 0 {
				c.node = nil
				continue
			}
			if b := pickBranch(n); b != nil {
				c.node = b
				continue
			}
			c.markYield()
			return stepResult{act: actWait, waitSigs: awaitHeads(n)}
		case *ParNode:
			if len(n.Branches) == 0 {
				c.node = nil
				continue
			}
			children := make([]*Cont, 0, len(n.Branches))
			for _, b := range n.Branches {
				children = append(children, &Cont{
					id:     in.nextID(),
					parent: c,
					status: StatusRunnable,
					node:   b,
				})
			}
			// The join resumes past the fork: the parent must advance its
			// control stack, not re-spawn the branches.
			c.node = nil
			return stepResult{act: actSpawn, children: children}
		case *LoopNode:
			c.stack = append(c.stack, frame{kind: frameLoop, loop: n})
			c.node = n.Body
		case *BreakNode:
			if !c.breakLoop(in) {
				in.fail(fmt.Errorf("break outside of loop"))
				return stepResult{act: actAbort}
			}
		case *ScopeNode:
			sig := NewSignal(n.Name, n.Default, n.Combine, false)
			body := n.Body(sig)
			if err := Validate(body); err != nil {
				in.fail(err)
				return stepResult{act: actAbort}
			}
			in.addSignal(sig)
			c.stack = append(c.stack, frame{kind: frameScope, sig: sig})
			c.node = body
		default:
			in.fail(fmt.Errorf("unknown combinator %T", n))
			return stepResult{act: actAbort}
		}
	}
}

// advance pops the control stack after the current node finished: move to the
// next sequence step, restart a loop, or close a scope. done reports that the
// step loop should return res instead of continuing.
func (c *Cont) advance(in *Instant) (res stepResult, done bool) {
	for {
		if len(c.stack) == 0 {
			return stepResult{act: actTerminated}, true
		}
		f := &c.stack[len(c.stack)-1]
		switch f.kind {
		case frameSeq:
			f.idx++
			if f.idx < len(f.seq.Steps) {
				c.node = f.seq.Steps[f.idx]
				return stepResult{}, false
			}
			c.stack = c.stack[:len(c.stack)-1]
		case frameLoop:
			if !f.yielded {
				in.fail(fmt.Errorf("%w: body restarted without yielding", ErrInstantaneousLoop))
				return stepResult{act: actAbort}, true
			}
			f.yielded = false
			c.node = f.loop.Body
			return stepResult{}, false
		case frameScope:
			f.sig.kill()
			in.dropSignal(f.sig)
			c.stack = c.stack[:len(c.stack)-1]
		}
	}
}

// breakLoop pops frames up to and including the innermost loop, killing any
// scope opened inside it. Reports false when no loop encloses the break.
func (c *Cont) breakLoop(in *Instant) bool {
	for len(c.stack) > 0 {
		f := c.stack[len(c.stack)-1]
		c.stack = c.stack[:len(c.stack)-1]
		switch f.kind {
		case frameScope:
			f.sig.kill()
			in.dropSignal(f.sig)
		case frameLoop:
			c.node = nil
			return true
		}
	}
	return false
}
