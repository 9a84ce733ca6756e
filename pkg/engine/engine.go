// Package engine implements the control orchestrator: the per-iteration
// entry point that ties the Kalman estimators, the xup controllers, the
// planner, and the pair search together into the three-layer controller
// spec.md describes, and dispatches configuration changes through a
// host-supplied, opaque apply callback.
package engine

import (
	"fmt"
	"os"

	"github.com/kestrelsys/poetcore/pkg/kalman"
	"github.com/kestrelsys/poetcore/pkg/runtimeflags"
	"github.com/kestrelsys/poetcore/pkg/search"
	"github.com/kestrelsys/poetcore/pkg/states"
	"github.com/kestrelsys/poetcore/pkg/telemetry"
	"github.com/kestrelsys/poetcore/pkg/xup"
)

// Constraint is the dimension the engine optimizes: performance (hit the
// rate goal at minimum power/energy cost) or power (hit the power goal at
// maximum performance).
type Constraint = search.Constraint

const (
	Performance = search.Performance
	Power       = search.Power
)

// ApplyFunc is the host's reconfiguration callback. It is treated as
// opaque: the engine never inspects applyStates, and the callback's
// success or failure is not checked (spec.md §7 — runtime anomalies never
// fail apply_control).
type ApplyFunc func(applyStates any, numStates, newID, lastID int, idleNs int64, isFirstApply bool)

// CurrentFunc reports the host's current configuration at init. It is
// optional; when absent or when ok is false, the engine defaults the
// initial state to numStates-1 per spec.md §6.
type CurrentFunc func(applyStates any, numStates int) (id int, ok bool)

// Config is everything NewEngine needs to construct an Engine, mirroring
// spec.md §6's constructor signature.
type Config struct {
	Goal        float64
	Constraint  Constraint
	States      states.Table
	ApplyStates any
	Apply       ApplyFunc
	Current     CurrentFunc
	Period      int
	BufferDepth int
	LogFilename string

	// TelemetryFlush, if set, is invoked with every flushed batch in
	// addition to (not instead of) the log-file writer — the hook a host
	// uses to mirror telemetry into an external backend such as
	// telemetry.Journal.
	TelemetryFlush telemetry.FlushFunc

	// Tuning and filter noise are optional; zero values fall back to
	// xup.DefaultTuning and kalman.DefaultQ/DefaultR.
	Tuning  xup.Tuning
	FilterQ float64
	FilterR float64
}

// Engine is the top-level, owned-by-caller control loop state from
// spec.md §3. It is mutated only through ApplyControl, SetConstraint and
// SetRuntimeFlags, and must not be used concurrently with itself.
type Engine struct {
	goal       float64
	constraint Constraint
	states     states.Table

	applyStates any
	applyFn     ApplyFunc

	period int

	timeFilter   *kalman.Filter
	energyFilter *kalman.Filter
	speedupCtrl  *xup.Controller
	powerupCtrl  *xup.Controller

	lowerID       int
	upperID       int
	lowStateIters int
	idleNs        int64

	lastID        int
	isFirstApply  bool
	currentAction int

	costEstimate    float64
	costXupEstimate float64

	timeWorkload   float64
	energyWorkload float64

	telemetry *telemetry.Sink
	logFile   *os.File

	flags runtimeflags.Flags
}

// NewEngine constructs an Engine per spec.md §6/§7. Preconditions:
// goal > 0, len(cfg.States) > 0 (validated), period > 0, and
// bufferDepth == 0 or logFilename != "".
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Goal <= 0 {
		return nil, ErrInvalidGoal
	}
	if len(cfg.States) == 0 {
		return nil, ErrNilStates
	}
	if err := cfg.States.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNilStates, err)
	}
	if cfg.Period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if cfg.BufferDepth > 0 && cfg.LogFilename == "" {
		return nil, ErrBufferedLoggingNoFile
	}

	tuning := cfg.Tuning
	if tuning == (xup.Tuning{}) {
		tuning = xup.DefaultTuning
	}
	q, r := cfg.FilterQ, cfg.FilterR
	if q == 0 {
		q = kalman.DefaultQ
	}
	if r == 0 {
		r = kalman.DefaultR
	}

	var logFile *os.File
	if cfg.BufferDepth > 0 {
		f, err := os.Create(cfg.LogFilename)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLogFileOpen, err)
		}
		logFile = f
		_ = telemetry.WriteTable(logFile, true, nil)
	}

	e := &Engine{
		goal:         cfg.Goal,
		constraint:   cfg.Constraint,
		states:       cfg.States,
		applyStates:  cfg.ApplyStates,
		applyFn:      cfg.Apply,
		period:       cfg.Period,
		timeFilter:   kalman.New(q, r),
		energyFilter: kalman.New(q, r),
		lowerID:      -1,
		upperID:      -1,
		isFirstApply: true,
		flags:        runtimeflags.FromEnv(),
		logFile:      logFile,
	}

	speedMin, speedMax := xup.Range(cfg.States.Speedups())
	costMin, costMax := xup.Range(cfg.States.Costs())
	e.speedupCtrl = xup.New(tuning, speedMin, speedMax)
	e.powerupCtrl = xup.New(tuning, costMin, costMax)

	e.lastID = len(cfg.States) - 1
	if cfg.Current != nil {
		if id, ok := cfg.Current(cfg.ApplyStates, len(cfg.States)); ok && id >= 0 && id < len(cfg.States) {
			e.lastID = id
		}
	}

	flush := cfg.TelemetryFlush
	if logFile != nil {
		e.telemetry = telemetry.NewSink(cfg.BufferDepth, func(batch []telemetry.Record) {
			_ = telemetry.WriteTable(logFile, false, batch)
			if flush != nil {
				flush(batch)
			}
		})
	} else if flush != nil {
		e.telemetry = telemetry.NewSink(cfg.BufferDepth, flush)
	} else {
		e.telemetry = telemetry.NewSink(0, nil)
	}

	return e, nil
}

// SetRuntimeFlags overrides the cached environment-driven kill switches —
// the injection point spec.md §9's design note calls for, so tests (and
// hosts that want a config system other than raw env vars) can exercise
// all four states deterministically instead of re-reading the environment
// on every call.
func (e *Engine) SetRuntimeFlags(f runtimeflags.Flags) { e.flags = f }

// SetConstraint switches which dimension the engine optimizes and its
// goal. Because the engine cross-seeds the inactive controller's history
// at every boundary (spec.md §4.5d), the newly active controller already
// has a warm, non-default U/UO/UOO the next time a boundary runs.
func (e *Engine) SetConstraint(c Constraint, goal float64) {
	e.constraint = c
	e.goal = goal
}

// Close flushes any buffered telemetry and closes the log file. It must
// not be called concurrently with ApplyControl.
func (e *Engine) Close() error {
	if e.telemetry != nil {
		e.telemetry.Close()
	}
	if e.logFile != nil {
		return e.logFile.Close()
	}
	return nil
}

// Schedule returns the engine's current planning result, primarily for
// tests and for hosts that want to inspect the schedule without driving
// ApplyControl (e.g. a dashboard).
func (e *Engine) Schedule() (lowerID, upperID, lowStateIters int, idleNs int64) {
	return e.lowerID, e.upperID, e.lowStateIters, e.idleNs
}

// CostEstimate returns the most recent planning step's secondary-dimension
// cost and xup estimates.
func (e *Engine) CostEstimate() (cost, xupEstimate float64) {
	return e.costEstimate, e.costXupEstimate
}

// Controllers returns both dimensions' current commanded multiplier, for
// hosts that want to report or graph them without re-deriving state from
// telemetry records.
func (e *Engine) Controllers() (speedup, powerup float64) {
	return e.speedupCtrl.U, e.powerupCtrl.U
}

