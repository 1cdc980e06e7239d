// Package gameoflife runs Conway's game of life on the reactive engine.
// Every cell is a looping process: it emits its liveness on its own signal
// each generation, collects the eight neighbor signals in parallel, and
// applies the birth/survival rule. One generation settles per instant, and
// the result is the same no matter how many workers execute it.
package gameoflife

import (
	"context"
	"fmt"
	"sync"

	"github.com/comalice/instantx"
)

// Cell addresses one board position.
type Cell struct {
	X, Y int
}

// Config describes a board. The grid is a torus: neighbors wrap around the
// edges, which is why both dimensions must be at least 3.
type Config struct {
	Width   int
	Height  int
	Alive   []Cell // initially alive cells
	Workers int    // engine workers; <= 0 means NumCPU
}

// Board owns the runtime and the cell processes. A watcher process snapshots
// every settled generation; hosts read it with Snapshot.
type Board struct {
	width, height int
	rt            *instantx.Runtime
	rtOpts        []instantx.Option
	sigs          []*instantx.Signal
	render        func(grid []bool, gen uint64)

	mu   sync.Mutex
	grid []bool
	gen  uint64
}

type cellState struct {
	alive bool
	nbr   []bool // one slot per neighbor, each written by one delivery
}

// New builds the board, wires every cell process, and starts the runtime.
func New(cfg Config, opts ...Option) (*Board, error) {
	if cfg.Width < 3 || cfg.Height < 3 {
		return nil, fmt.Errorf("board must be at least 3x3, got %dx%d", cfg.Width, cfg.Height)
	}
	b := &Board{
		width:  cfg.Width,
		height: cfg.Height,
		sigs:   make([]*instantx.Signal, cfg.Width*cfg.Height),
		grid:   make([]bool, cfg.Width*cfg.Height),
	}
	for _, opt := range opts {
		opt(b)
	}
	rtOpts := append([]instantx.Option{instantx.WithWorkers(cfg.Workers)}, b.rtOpts...)
	b.rt = instantx.NewRuntime(rtOpts...)

	alive := make(map[int]bool, len(cfg.Alive))
	for _, c := range cfg.Alive {
		if c.X < 0 || c.X >= cfg.Width || c.Y < 0 || c.Y >= cfg.Height {
			return nil, fmt.Errorf("alive cell (%d,%d) outside %dx%d board", c.X, c.Y, cfg.Width, cfg.Height)
		}
		alive[c.Y*cfg.Width+c.X] = true
	}

	for i := range b.sigs {
		b.sigs[i] = b.rt.DeclareSignal(fmt.Sprintf("cell_%d_%d", i%cfg.Width, i/cfg.Width), false, nil)
	}

	procs := make([]instantx.Proc, 0, len(b.sigs)+1)
	for i := range b.sigs {
		procs = append(procs, b.cellProcess(i, alive[i]))
	}
	procs = append(procs, b.watcherProcess())

	if err := b.rt.Start(instantx.Par(procs...)); err != nil {
		b.rt.Stop()
		return nil, err
	}
	return b, nil
}

// Option configures a Board.
type Option func(*Board)

// WithRenderer calls render after every settled generation, from inside the
// engine. gen is 1-based; gen 1 is the seeded grid.
func WithRenderer(render func(grid []bool, gen uint64)) Option {
	return func(b *Board) { b.render = render }
}

// WithRuntimeOptions passes extra options (logger, metrics) to the engine.
func WithRuntimeOptions(opts ...instantx.Option) Option {
	return func(b *Board) { b.rtOpts = append(b.rtOpts, opts...) }
}

// cellProcess seeds the cell's signal, then loops: gather neighbors, apply
// the rule, emit the new state. The parallel gather joins one instant after
// it spawns, so each loop iteration spans exactly one generation.
func (b *Board) cellProcess(idx int, alive bool) instantx.Proc {
	ns := b.neighbors(idx)
	c := &cellState{alive: alive, nbr: make([]bool, len(ns))}
	self := b.sigs[idx]

	gather := make([]instantx.Proc, len(ns))
	for i, n := range ns {
		i, sig := i, b.sigs[n]
		gather[i] = instantx.AwaitValue(sig, func(v any) { c.nbr[i] = v.(bool) })
	}

	return instantx.Seq(
		instantx.EmitWith(self, func() any { return c.alive }),
		instantx.Loop(instantx.Seq(
			instantx.Par(gather...),
			instantx.Atomic(func() error {
				live := 0
				for _, a := range c.nbr {
					if a {
						live++
					}
				}
				c.alive = live == 3 || (c.alive && live == 2)
				return nil
			}),
			instantx.EmitWith(self, func() any { return c.alive }),
		)),
	)
}

// watcherProcess mirrors every settled generation into the board snapshot.
func (b *Board) watcherProcess() instantx.Proc {
	snap := make([]bool, len(b.sigs))
	gather := make([]instantx.Proc, len(b.sigs))
	for i := range b.sigs {
		i := i
		gather[i] = instantx.AwaitValue(b.sigs[i], func(v any) { snap[i] = v.(bool) })
	}
	return instantx.Loop(instantx.Seq(
		instantx.Par(gather...),
		instantx.Atomic(func() error {
			b.mu.Lock()
			copy(b.grid, snap)
			b.gen++
			gen := b.gen
			b.mu.Unlock()
			if b.render != nil {
				b.render(snap, gen)
			}
			return nil
		}),
	))
}

// neighbors returns the eight toroidal neighbor indexes of idx.
func (b *Board) neighbors(idx int) []int {
	x, y := idx%b.width, idx/b.width
	out := make([]int, 0, 8)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx := (x + dx + b.width) % b.width
			ny := (y + dy + b.height) % b.height
			out = append(out, ny*b.width+nx)
		}
	}
	return out
}

// Advance steps the engine until the watcher has settled another
// `generations` generations.
func (b *Board) Advance(ctx context.Context, generations int) error {
	b.mu.Lock()
	target := b.gen + uint64(generations)
	b.mu.Unlock()
	for {
		b.mu.Lock()
		done := b.gen >= target
		b.mu.Unlock()
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if _, err := b.rt.Step(); err != nil {
			return err
		}
	}
}

// Snapshot returns a copy of the last settled generation and its 1-based
// number (0 before the seed settles).
func (b *Board) Snapshot() ([]bool, uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]bool, len(b.grid))
	copy(out, b.grid)
	return out, b.gen
}

// Alive reports the last settled state of cell (x, y).
func (b *Board) Alive(x, y int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.grid[y*b.width+x]
}

// Runtime exposes the underlying engine, e.g. for metric registration.
func (b *Board) Runtime() *instantx.Runtime { return b.rt }

// Close shuts the engine down.
func (b *Board) Close() { b.rt.Stop() }
