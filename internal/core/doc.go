// Package core implements the synchronous-reactive engine: signals with
// per-instant presence and merged values, resumable continuations over a
// closed combinator set, a worker pool running each instant to its fixed
// point, and the scheduler that settles instant boundaries.
//
// Determinism contract: within an instant, emissions merge through an
// associative and commutative combine function, merged values are only
// observable at the next instant, and absence is only decided at the
// boundary. Everything a process can observe is therefore independent of
// worker scheduling.
package core
