package core

import (
	"fmt"
	"runtime"
	"sync"
)

// Pool executes runnable continuations on a fixed set of workers. Within one
// instant the queue is the frontier of the fixed-point computation: workers
// pop, step, and push whatever the step woke or spawned, until the queue is
// empty and every worker is idle. The pool outlives instants; begin points it
// at the current one.
type Pool struct {
	mu     sync.Mutex
	work   *sync.Cond
	idle   *sync.Cond
	queue  []*Cont
	active int
	in     *Instant
	closed bool
	wg     sync.WaitGroup
}

// NewPool starts workers goroutines. workers <= 0 means runtime.NumCPU().
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	p := &Pool{}
	p.work = sync.NewCond(&p.mu)
	p.idle = sync.NewCond(&p.mu)
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// begin attaches the pool to the instant about to run. Must be called while
// the pool is drained.
func (p *Pool) begin(in *Instant) {
	p.mu.Lock()
	p.in = in
	p.mu.Unlock()
}

func (p *Pool) enqueue(c *Cont) {
	p.mu.Lock()
	p.queue = append(p.queue, c)
	p.mu.Unlock()
	p.work.Signal()
}

// drain blocks until the queue is empty and no worker is mid-step. Wait-free
// when there is no outstanding work.
func (p *Pool) drain() {
	p.mu.Lock()
	for len(p.queue) > 0 || p.active > 0 {
		p.idle.Wait()
	}
	p.mu.Unlock()
}

// Close stops the workers once the queue empties.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.work.Broadcast()
	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	p.mu.Lock()
	for {
		for len(p.queue) == 0 && !p.closed {
			p.work.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		c := p.queue[len(p.queue)-1]
		p.queue = p.queue[:len(p.queue)-1]
		in := p.in
		p.active++
		p.mu.Unlock()

		p.runOne(in, c)

		p.mu.Lock()
		p.active--
		if len(p.queue) == 0 && p.active == 0 {
			p.idle.Broadcast()
		}
	}
}

// runOne steps one continuation and finalizes its state. Blocking is
// two-phase: step never registers waiters itself; the registration happens
// here, after the continuation entered Waiting, with a presence re-check
// under the signal lock so a concurrent emission cannot be lost.
func (p *Pool) runOne(in *Instant, c *Cont) {
	defer func() {
		if r := recover(); r != nil {
			if err, ok := r.(error); ok {
				in.fail(err)
			} else {
				in.fail(fmt.Errorf("continuation panic: %v", r))
			}
		}
	}()
	if in.aborted() {
		return
	}
	res := c.step(in)
	switch res.act {
	case actTerminated:
		c.setStatus(StatusTerminated)
		p.notifyParent(in, c)
	case actYield:
		c.setStatus(StatusComplete)
	case actWait:
		ep := c.beginWait()
		present := false
		for _, sig := range res.waitSigs {
			if sig.External() {
				c.setWaitExternal()
			}
			if sig.addWaiter(c, ep) {
				present = true
			}
		}
		if present && c.tryWake(ep) {
			in.enqueue(c)
		}
	case actValueWait:
		c.beginWait()
		if res.valueSig.External() {
			c.setWaitExternal()
		}
		res.valueSig.addValueWaiter(c, res.deliver)
	case actSpawn:
		c.beginJoin(len(res.children), in.num)
		in.sched.addConts(res.children)
		for _, ch := range res.children {
			in.enqueue(ch)
		}
	case actAbort:
		// failure already recorded on the instant
	}
}

// notifyParent decrements the parent's join counter; the last child makes the
// parent runnable again within the current instant. A join that lands in a
// later instant than the spawn counts as a yield for the parent's loops.
func (p *Pool) notifyParent(in *Instant, c *Cont) {
	par := c.parent
	if par == nil {
		return
	}
	par.mu.Lock()
	par.joinLeft--
	ready := par.joinLeft == 0 && par.status == StatusJoining
	if ready {
		par.status = StatusRunnable
		if par.joinInstant != in.num {
			par.markYield()
		}
	}
	par.mu.Unlock()
	if ready {
		in.enqueue(par)
	}
}
