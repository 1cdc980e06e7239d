package instantx

import (
	"errors"

	"github.com/comalice/instantx/internal/core"
)

var (
	// ErrNotStarted is returned by Step and Run before Start succeeded.
	ErrNotStarted = errors.New("runtime not started")

	// ErrTerminated is returned by Step once the root process finished.
	ErrTerminated = errors.New("root process already terminated")

	// ErrMaxInstants is returned by Run when the instant bound is reached
	// before the root process terminates.
	ErrMaxInstants = errors.New("instant budget exhausted")

	// ErrInstantDivergence marks an instant that could not converge: the
	// step budget was exceeded, or every live process is blocked on
	// signals nothing can emit.
	ErrInstantDivergence = core.ErrInstantDivergence

	// ErrInstantaneousLoop marks a loop whose body completed without
	// yielding; Start rejects statically detectable cases.
	ErrInstantaneousLoop = core.ErrInstantaneousLoop

	// ErrDeadSignal marks use of a scoped signal after its scope ended.
	ErrDeadSignal = core.ErrDeadSignal
)
