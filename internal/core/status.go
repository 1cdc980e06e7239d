package core

// Status is the lifecycle state of a continuation.
type Status int

const (
	// StatusRunnable means the continuation is queued or executing in the
	// current instant.
	StatusRunnable Status = iota

	// StatusWaiting means the continuation is blocked on one or more
	// signals (await, parked choice, or value wait).
	StatusWaiting

	// StatusJoining means the continuation spawned parallel branches and
	// resumes when the last of them terminates.
	StatusJoining

	// StatusComplete means the continuation yielded for this instant and
	// resumes at the start of the next one.
	StatusComplete

	// StatusTerminated means the continuation ran to the end of its
	// process expression.
	StatusTerminated
)

func (s Status) String() string {
	switch s {
	case StatusRunnable:
		return "runnable"
	case StatusWaiting:
		return "waiting"
	case StatusJoining:
		return "joining"
	case StatusComplete:
		return "complete"
	case StatusTerminated:
		return "terminated"
	}
	return "unknown"
}
