package core

import "errors"

var (
	// ErrInstantDivergence reports an instant that cannot converge: either
	// the executed-step budget was exceeded or every live continuation is
	// blocked on signals nothing can emit.
	ErrInstantDivergence = errors.New("instant divergence")

	// ErrInstantaneousLoop reports a loop whose body can complete without
	// yielding, which would spin forever inside a single instant.
	ErrInstantaneousLoop = errors.New("instantaneous loop")

	// ErrDeadSignal reports use of a scope-local signal after its declaring
	// scope terminated.
	ErrDeadSignal = errors.New("signal used outside its scope")
)
