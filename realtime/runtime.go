package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/comalice/instantx"
	"github.com/comalice/instantx/internal/logging"
)

// Runtime provides tick-based execution by embedding the instant-stepping
// runtime and adding only the pacing loop. Host emissions still go through
// Signal.Emit; they are batched by the embedded runtime and applied at the
// start of the next tick's instant.
type Runtime struct {
	*instantx.Runtime

	tickRate    time.Duration
	maxInstants int
	onInstant   func(instantx.InstantReport)
	log         *slog.Logger

	ticker     *time.Ticker
	tickCtx    context.Context
	tickCancel context.CancelFunc
	stopped    chan struct{}

	mu       sync.Mutex
	instants uint64
	lastErr  error
}

// Config configures the tick loop.
type Config struct {
	// TickRate is the wall-clock spacing between instants
	// (e.g. 16.67ms for 60 FPS). Default 60 FPS.
	TickRate time.Duration
	// MaxInstants stops the loop after that many instants; 0 means
	// unbounded.
	MaxInstants int
	// OnInstant, if set, is called after every completed instant from the
	// tick goroutine.
	OnInstant func(instantx.InstantReport)
	// Log receives tick-loop warnings. Default discards.
	Log *slog.Logger
}

// NewRuntime wraps an instant-stepping runtime in a tick loop.
func NewRuntime(rt *instantx.Runtime, cfg Config) *Runtime {
	if cfg.TickRate == 0 {
		cfg.TickRate = 16667 * time.Microsecond
	}
	if cfg.Log == nil {
		cfg.Log = logging.NewNop()
	}
	return &Runtime{
		Runtime:     rt,
		tickRate:    cfg.TickRate,
		maxInstants: cfg.MaxInstants,
		onInstant:   cfg.OnInstant,
		log:         cfg.Log,
		stopped:     make(chan struct{}),
	}
}

// Start attaches the root process and begins ticking.
func (rt *Runtime) Start(ctx context.Context, p instantx.Proc) error {
	if err := rt.Runtime.Start(p); err != nil {
		return err
	}
	rt.tickCtx, rt.tickCancel = context.WithCancel(ctx)
	rt.ticker = time.NewTicker(rt.tickRate)
	go rt.tickLoop()
	return nil
}

// Stop halts the tick loop, waits for it to exit, and shuts the embedded
// runtime down.
func (rt *Runtime) Stop() {
	if rt.tickCancel == nil {
		rt.Runtime.Stop()
		return
	}
	rt.tickCancel()
	rt.ticker.Stop()
	<-rt.stopped
	rt.Runtime.Stop()
}

// Done is closed when the tick loop exits: root terminated, an instant
// failed, the instant bound was hit, or the context was cancelled.
func (rt *Runtime) Done() <-chan struct{} { return rt.stopped }

// Err returns the error that stopped the loop, if any.
func (rt *Runtime) Err() error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.lastErr
}

// Instants returns how many instants the loop has run.
func (rt *Runtime) Instants() uint64 {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.instants
}

func (rt *Runtime) tickLoop() {
	defer close(rt.stopped)
	for {
		select {
		case <-rt.tickCtx.Done():
			return
		case <-rt.ticker.C:
			if done := rt.processTick(); done {
				return
			}
		}
	}
}

// processTick runs one instant with panic recovery. A panicking OnInstant
// callback must not take the loop down with it.
func (rt *Runtime) processTick() (done bool) {
	defer func() {
		if r := recover(); r != nil {
			rt.log.Warn("tick panic", "panic", r)
		}
	}()

	rep, err := rt.Runtime.Step()
	rt.mu.Lock()
	rt.instants++
	n := rt.instants
	if err != nil {
		rt.lastErr = err
	}
	rt.mu.Unlock()

	if err != nil {
		rt.log.Warn("tick failed", "instant", rep.Instant, "err", err)
		return true
	}
	if rt.onInstant != nil {
		rt.onInstant(rep)
	}
	if rep.Terminated {
		return true
	}
	return rt.maxInstants > 0 && int(n) >= rt.maxInstants
}
