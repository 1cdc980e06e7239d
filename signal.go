package instantx

import (
	"fmt"
	"sync"

	"github.com/comalice/instantx/internal/core"
)

// SignalValue is a signal's state at an instant boundary: whether it was
// present and its merged (or default) value.
type SignalValue = core.SignalValue

// Signal is a handle to a reactive signal. Handles returned by
// Runtime.DeclareSignal are external: the host may Emit on them between
// steps and read their last settled value with Last. Handles passed to Scope
// bodies are internal and only usable inside process expressions.
type Signal struct {
	sig *core.Signal
	rt  *Runtime // nil for scope-local signals

	mu   sync.Mutex
	last SignalValue
}

// Name returns the name the signal was declared with.
func (s *Signal) Name() string { return s.sig.Name() }

// Emit buffers v for injection at the start of the next Step, so it is
// visible for that whole instant. Only external signals accept host
// emissions.
func (s *Signal) Emit(v any) error {
	if s.rt == nil {
		return fmt.Errorf("host emit on scope-local signal %q", s.sig.Name())
	}
	s.rt.inject(s.sig, v)
	return nil
}

// Last returns the signal's merged value and presence as of the last
// completed instant. Before the first Step it reports the default, absent.
func (s *Signal) Last() (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last.Value, s.last.Present
}

func (s *Signal) setLast(v SignalValue) {
	s.mu.Lock()
	s.last = v
	s.mu.Unlock()
}
