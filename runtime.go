package instantx

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/comalice/instantx/internal/core"
	"github.com/comalice/instantx/internal/logging"
	"github.com/comalice/instantx/internal/metrics"
)

// Option configures a Runtime.
type Option func(*Runtime)

// WithWorkers sets the worker pool size. Values <= 0 mean runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(r *Runtime) { r.workers = n }
}

// WithLogger attaches a logger; the engine logs per-instant debug lines and
// abort warnings. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runtime) { r.log = l }
}

// WithMetrics registers engine collectors (instants, steps, emissions,
// aborts, instant duration) on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(r *Runtime) { r.met = metrics.New(reg) }
}

// WithMaxStepsPerInstant bounds executed steps per instant; exceeding it
// fails the instant with ErrInstantDivergence.
func WithMaxStepsPerInstant(n int64) Option {
	return func(r *Runtime) { r.maxSteps = n }
}

// Runtime hosts one root process and drives it instant by instant. Step and
// Run must be called from one goroutine; Signal.Emit may be called from any.
type Runtime struct {
	log      *slog.Logger
	workers  int
	maxSteps int64
	met      *metrics.Set

	sched *core.Scheduler

	mu      sync.Mutex
	pending []core.Emission
	signals []*Signal

	started bool
	failed  error
}

// NewRuntime builds a runtime and starts its worker pool. Callers own the
// pool's lifetime: Stop releases it.
func NewRuntime(opts ...Option) *Runtime {
	r := &Runtime{log: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	r.sched = core.NewScheduler(core.Config{
		Workers:  r.workers,
		MaxSteps: r.maxSteps,
		Log:      r.log,
		Metrics:  r.met,
	})
	return r
}

// DeclareSignal registers an external signal. def is the value read while the
// signal is absent; combine merges same-instant emissions (nil keeps the
// latest). Names should be unique: instant reports key signal state by name.
func (r *Runtime) DeclareSignal(name string, def any, combine CombineFunc) *Signal {
	cs := r.sched.DeclareSignal(name, def, combine)
	s := &Signal{sig: cs, rt: r, last: SignalValue{Value: def}}
	r.mu.Lock()
	r.signals = append(r.signals, s)
	r.mu.Unlock()
	return s
}

// Start validates p and attaches it as the root process. The first Step runs
// its first instant.
func (r *Runtime) Start(p Proc) error {
	if r.started {
		return fmt.Errorf("runtime already started")
	}
	if p.node == nil {
		return fmt.Errorf("empty process")
	}
	if err := r.sched.Attach(p.node); err != nil {
		return err
	}
	r.started = true
	return nil
}

func (r *Runtime) inject(sig *core.Signal, v any) {
	r.mu.Lock()
	r.pending = append(r.pending, core.Emission{Sig: sig, Value: v})
	r.mu.Unlock()
}

// InstantReport summarizes one completed instant.
type InstantReport struct {
	// Instant is the 1-based number of the instant that just ran.
	Instant uint64
	// Terminated reports that the root process finished in this instant.
	Terminated bool
	// Steps and Emissions count executed continuation steps and signal
	// emissions within the instant.
	Steps     int64
	Emissions int64
	// Signals holds the boundary state of every external signal, keyed by
	// name.
	Signals map[string]SignalValue
}

// Step executes exactly one instant: buffered host emissions are applied
// first, then the engine runs to the instant's fixed point and settles the
// boundary. After an engine error the runtime is stopped for good and Step
// keeps returning that error.
func (r *Runtime) Step() (InstantReport, error) {
	if !r.started {
		return InstantReport{}, ErrNotStarted
	}
	if r.failed != nil {
		return InstantReport{}, r.failed
	}
	if r.sched.Terminated() {
		return InstantReport{}, ErrTerminated
	}

	r.mu.Lock()
	inject := r.pending
	r.pending = nil
	r.mu.Unlock()

	rep, err := r.sched.RunInstant(inject)
	out := InstantReport{
		Instant:    rep.Instant,
		Terminated: rep.Terminated,
		Steps:      rep.Steps,
		Emissions:  rep.Emissions,
		Signals:    rep.Outputs,
	}
	if err != nil {
		r.failed = err
		return out, err
	}

	r.mu.Lock()
	for _, s := range r.signals {
		if sv, ok := rep.Outputs[s.sig.Name()]; ok {
			s.setLast(sv)
		}
	}
	r.mu.Unlock()
	return out, nil
}

// Run steps until the root process terminates, ctx is cancelled, or
// maxInstants have run (maxInstants <= 0 means no bound, in which case only
// termination or cancellation stop it). The last report is returned; hitting
// the bound returns ErrMaxInstants.
func (r *Runtime) Run(ctx context.Context, maxInstants int) (InstantReport, error) {
	var rep InstantReport
	for i := 0; maxInstants <= 0 || i < maxInstants; i++ {
		select {
		case <-ctx.Done():
			return rep, ctx.Err()
		default:
		}
		var err error
		rep, err = r.Step()
		if err != nil {
			return rep, err
		}
		if rep.Terminated {
			return rep, nil
		}
	}
	return rep, ErrMaxInstants
}

// Terminated reports whether the root process has finished.
func (r *Runtime) Terminated() bool { return r.sched.Terminated() }

// Stop shuts the worker pool down. The runtime is unusable afterwards.
func (r *Runtime) Stop() { r.sched.Shutdown() }
