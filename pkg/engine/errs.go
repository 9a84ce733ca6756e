package engine

import "errors"

// Configuration errors — returned from NewEngine when the caller's
// arguments violate a precondition in spec.md §6. The caller is
// responsible for reporting these; the engine never logs them itself.
var (
	ErrInvalidGoal           = errors.New("engine: goal must be > 0")
	ErrNilStates             = errors.New("engine: control_states must not be nil or empty")
	ErrInvalidPeriod         = errors.New("engine: period must be > 0")
	ErrBufferedLoggingNoFile = errors.New("engine: buffer_depth > 0 requires a log filename")
)

// Resource errors — returned from NewEngine when a precondition holds but
// acquiring a resource failed. Any partial allocation is released before
// NewEngine returns.
var (
	ErrLogFileOpen = errors.New("engine: could not open log file")
)
