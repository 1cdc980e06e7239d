package trafficsim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/comalice/instantx"
)

// Wish is one car's movement request for the current cycle.
type Wish struct {
	Car  int
	From int
	To   int
}

// mergeWishes folds wishes into a map keyed by car. The nil default is never
// mutated; the first merge of an instant allocates a fresh map.
func mergeWishes(acc, v any) any {
	m, _ := acc.(map[int]Wish)
	if m == nil {
		m = make(map[int]Wish)
	}
	w := v.(Wish)
	m[w.Car] = w
	return m
}

// Sim wires cars and the arbiter onto one runtime. A cycle takes two
// instants: wishes settle in one, granted moves settle in the next.
type Sim struct {
	cfg Config
	rt  *instantx.Runtime

	wishes *instantx.Signal
	moves  *instantx.Signal

	mu        sync.Mutex
	positions map[int]int // car -> cell, updated by the arbiter
	cycles    uint64
}

type car struct {
	id   int
	pos  int
	dest int
	rng  *rand.Rand
}

// New builds the simulation and starts the runtime. Extra runtime options
// (workers, logger, metrics) pass through.
func New(cfg Config, rtOpts ...instantx.Option) (*Sim, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	opts := append([]instantx.Option{instantx.WithWorkers(cfg.Workers)}, rtOpts...)
	s := &Sim{
		cfg:       cfg,
		rt:        instantx.NewRuntime(opts...),
		positions: make(map[int]int, cfg.Cars),
	}
	s.wishes = s.rt.DeclareSignal("wishes", nil, mergeWishes)
	s.moves = s.rt.DeclareSignal("moves", nil, nil)

	// Scatter cars over distinct cells; every car gets its own rng so
	// routing stays deterministic for a given seed and worker count.
	seedRng := rand.New(rand.NewSource(cfg.Seed))
	cells := seedRng.Perm(cfg.Width * cfg.Height)
	procs := make([]instantx.Proc, 0, cfg.Cars+1)
	for i := 0; i < cfg.Cars; i++ {
		c := &car{
			id:  i,
			pos: cells[i],
			rng: rand.New(rand.NewSource(cfg.Seed + int64(i) + 1)),
		}
		c.dest = c.pickDest(cfg)
		s.positions[i] = c.pos
		procs = append(procs, s.carProcess(c))
	}
	procs = append(procs, s.arbiterProcess())

	if err := s.rt.Start(instantx.Par(procs...)); err != nil {
		s.rt.Stop()
		return nil, err
	}
	return s, nil
}

// carProcess emits an initial wish, then loops: receive the settled grants,
// move if granted, wish again.
func (s *Sim) carProcess(c *car) instantx.Proc {
	wish := func() any {
		return Wish{Car: c.id, From: c.pos, To: c.nextCell(s.cfg)}
	}
	apply := func(v any) {
		granted := v.(map[int]int)
		if to, ok := granted[c.id]; ok {
			c.pos = to
		}
		if c.pos == c.dest {
			c.dest = c.pickDest(s.cfg)
		}
	}
	return instantx.Seq(
		instantx.EmitWith(s.wishes, wish),
		instantx.Loop(instantx.Seq(
			instantx.AwaitValue(s.moves, apply),
			instantx.EmitWith(s.wishes, wish),
		)),
	)
}

// arbiterProcess receives the settled wish merge each cycle, grants at most
// one car per cell in ascending car order, and broadcasts the grants.
func (s *Sim) arbiterProcess() instantx.Proc {
	var granted map[int]int
	resolve := func(v any) {
		wishes := v.(map[int]Wish)
		granted = make(map[int]int, len(wishes))

		s.mu.Lock()
		occupied := make(map[int]int, len(s.positions))
		for id, cell := range s.positions {
			occupied[cell] = id
		}
		ids := make([]int, 0, len(wishes))
		for id := range wishes {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		for _, id := range ids {
			w := wishes[id]
			if w.To == w.From {
				continue
			}
			if _, taken := occupied[w.To]; taken {
				continue
			}
			delete(occupied, w.From)
			occupied[w.To] = id
			granted[id] = w.To
			s.positions[id] = w.To
		}
		s.cycles++
		s.mu.Unlock()
	}
	return instantx.Loop(instantx.Seq(
		instantx.AwaitValue(s.wishes, resolve),
		instantx.EmitWith(s.moves, func() any { return granted }),
	))
}

// nextCell is the cell one step toward the destination, x before y.
func (c *car) nextCell(cfg Config) int {
	x, y := c.pos%cfg.Width, c.pos/cfg.Width
	dx, dy := c.dest%cfg.Width-x, c.dest/cfg.Width-y
	switch {
	case dx > 0:
		x++
	case dx < 0:
		x--
	case dy > 0:
		y++
	case dy < 0:
		y--
	}
	return y*cfg.Width + x
}

func (c *car) pickDest(cfg Config) int {
	for {
		d := c.rng.Intn(cfg.Width * cfg.Height)
		if d != c.pos {
			return d
		}
	}
}

// Run executes n instants (two per traffic cycle).
func (s *Sim) Run(ctx context.Context, instants int) error {
	_, err := s.rt.Run(ctx, instants)
	if errors.Is(err, instantx.ErrMaxInstants) {
		return nil
	}
	return err
}

// Step executes one instant.
func (s *Sim) Step() (instantx.InstantReport, error) { return s.rt.Step() }

// Positions returns a copy of the car positions as of the last resolved
// cycle.
func (s *Sim) Positions() map[int]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]int, len(s.positions))
	for id, cell := range s.positions {
		out[id] = cell
	}
	return out
}

// Cycles returns how many wish/grant cycles the arbiter has resolved.
func (s *Sim) Cycles() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cycles
}

// CheckCollisions returns an error if two cars share a cell.
func (s *Sim) CheckCollisions() error {
	seen := make(map[int]int)
	for id, cell := range s.Positions() {
		if other, dup := seen[cell]; dup {
			return fmt.Errorf("cars %d and %d both on cell %d", min(id, other), max(id, other), cell)
		}
		seen[cell] = id
	}
	return nil
}

// Runtime exposes the underlying engine.
func (s *Sim) Runtime() *instantx.Runtime { return s.rt }

// Close shuts the engine down.
func (s *Sim) Close() { s.rt.Stop() }
