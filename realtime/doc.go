// Package realtime drives an instantx runtime at a fixed wall-clock rate.
//
// The engine itself has no notion of wall time: an instant takes as long as
// its fixed point takes to compute. This package adds a ticker loop that runs
// one instant per tick, which is how simulations pace themselves against real
// time (a 60 FPS tick rate means 60 instants per second, as long as each
// instant finishes within its tick).
package realtime
