package engine

import (
	"testing"

	"github.com/kestrelsys/poetcore/pkg/runtimeflags"
	"github.com/kestrelsys/poetcore/pkg/states"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dispatch struct {
	applyStates  any
	numStates    int
	newID        int
	lastID       int
	idleNs       int64
	isFirstApply bool
}

func recordingApply(log *[]dispatch) ApplyFunc {
	return func(applyStates any, numStates, newID, lastID int, idleNs int64, isFirstApply bool) {
		*log = append(*log, dispatch{applyStates, numStates, newID, lastID, idleNs, isFirstApply})
	}
}

func newTestEngine(t *testing.T, tbl states.Table, goal float64, constraint Constraint, period int) (*Engine, *[]dispatch) {
	t.Helper()
	var log []dispatch
	e, err := NewEngine(Config{
		Goal:       goal,
		Constraint: constraint,
		States:     tbl,
		Apply:      recordingApply(&log),
		Period:     period,
	})
	require.NoError(t, err)
	e.SetRuntimeFlags(runtimeflags.Flags{})
	return e, &log
}

// Scenario 1 (spec.md §8): single state, goal already met.
func TestApplyControl_SingleStateGoalMet(t *testing.T) {
	tbl := states.Table{{Speedup: 1, Cost: 1}}
	e, log := newTestEngine(t, tbl, 1.0, Performance, 1)

	for i := 0; i < 10; i++ {
		e.ApplyControl(i, 1.0, 1.0)
	}

	require.NotEmpty(t, *log)
	for _, d := range *log {
		assert.Equal(t, 0, d.newID)
		assert.Equal(t, int64(0), d.idleNs)
	}
	lowerID, upperID, lowIters, idleNs := e.Schedule()
	assert.Equal(t, 0, lowerID)
	assert.Equal(t, 0, upperID)
	assert.Equal(t, 0, lowIters)
	assert.Equal(t, int64(0), idleNs)
}

// Scenario 2 (spec.md §8): two states, no idle partner, feeding a
// below-goal rate until the controller converges. We assert the
// structural invariants the formula guarantees rather than the exact
// "low_state_iters=5" literal from spec.md, since that figure depends on
// the xup tuning constants reaching a particular converged u — not on any
// single planner call (see planner_test.go's TestRun_NonIdleLower_TwoStatesNoIdle
// for the literal formula cross-check).
func TestApplyControl_TwoStatesConverges(t *testing.T) {
	tbl := states.Table{{Speedup: 1, Cost: 1}, {Speedup: 2, Cost: 2}}
	e, log := newTestEngine(t, tbl, 1.5, Performance, 10)

	for i := 0; i < 200; i++ {
		e.ApplyControl(i, 1.0, 1.0)
	}

	lowerID, upperID, lowIters, idleNs := e.Schedule()
	assert.Equal(t, 0, lowerID)
	assert.Equal(t, 1, upperID)
	assert.GreaterOrEqual(t, lowIters, 0)
	assert.LessOrEqual(t, lowIters, 10)
	assert.Equal(t, int64(0), idleNs)

	for _, d := range *log {
		assert.Contains(t, []int{0, 1}, d.newID)
	}
}

// Scenario 3 (spec.md §8): an idle lower state paired with a non-idle
// partner, targeting a sub-unity xup so the planner must hybridize.
func TestApplyControl_IdleLowerSelected(t *testing.T) {
	tbl := states.Table{
		{Speedup: 0, Cost: 0.1, IdlePartner: 1},
		{Speedup: 1, Cost: 1},
		{Speedup: 2, Cost: 2},
	}
	e, _ := newTestEngine(t, tbl, 0.5, Performance, 4)

	for i := 0; i < 50; i++ {
		e.ApplyControl(i, 1.0, 0.1)
	}

	lowerID, upperID, lowIters, idleNs := e.Schedule()
	if lowerID == 0 {
		assert.Contains(t, []int{1, 2}, upperID)
		assert.Equal(t, 1, lowIters)
		assert.GreaterOrEqual(t, idleNs, int64(0))
	}
}

// Scenario 4 (spec.md §8): same table as scenario 3 but with idling
// disabled — the planner must never select state 0 as lower.
func TestApplyControl_IdleDisabled_NeverSelectsIdleLower(t *testing.T) {
	tbl := states.Table{
		{Speedup: 0, Cost: 0.1, IdlePartner: 1},
		{Speedup: 1, Cost: 1},
		{Speedup: 2, Cost: 2},
	}
	e, _ := newTestEngine(t, tbl, 0.5, Performance, 4)
	e.SetRuntimeFlags(runtimeflags.Flags{DisableIdle: true})

	for i := 0; i < 50; i++ {
		e.ApplyControl(i, 1.0, 0.1)
		lowerID, _, _, _ := e.Schedule()
		if lowerID >= 0 {
			assert.False(t, tbl[lowerID].IsIdle(), "idle state selected as lower while idling disabled")
		}
	}
}

// Scenario 5 (spec.md §8): POET_DISABLE_CONTROL set — no apply callback is
// ever invoked and engine state does not advance.
func TestApplyControl_ControlDisabled_NeverDispatches(t *testing.T) {
	tbl := states.Table{{Speedup: 1, Cost: 1}, {Speedup: 2, Cost: 2}}
	e, log := newTestEngine(t, tbl, 1.5, Performance, 10)
	e.SetRuntimeFlags(runtimeflags.Flags{DisableControl: true})

	for i := 0; i < 30; i++ {
		e.ApplyControl(i, 1.0, 1.0)
	}

	assert.Empty(t, *log)
}

// Scenario 6 (spec.md §8): switching the active constraint mid-run leaves
// the newly active controller warm from cross-seeding, not reset to its
// construction-time defaults.
func TestSetConstraint_CrossSeedsWarmController(t *testing.T) {
	tbl := states.Table{{Speedup: 1, Cost: 1}, {Speedup: 2, Cost: 2}}
	e, _ := newTestEngine(t, tbl, 2.0, Performance, 1)

	for i := 0; i < 20; i++ {
		e.ApplyControl(i, 1.0, 1.0)
	}

	// powerupCtrl has been cross-seeded at every boundary while performance
	// was active, so it holds whatever the last planning step assigned —
	// clamped to its own [umin,umax], per spec.md §8's clamp invariant.
	require.GreaterOrEqual(t, e.powerupCtrl.U, e.powerupCtrl.UMin)
	require.LessOrEqual(t, e.powerupCtrl.U, e.powerupCtrl.UMax)
	warmBeforeSwitch := e.powerupCtrl.U

	e.SetConstraint(Power, 5.0)
	assert.Equal(t, warmBeforeSwitch, e.powerupCtrl.U, "SetConstraint must not reset the controller's warm history")

	e.ApplyControl(21, 1.0, 1.0)
}

// Universal invariant (spec.md §8): after any ApplyControl call both
// controllers stay within their clamp range.
func TestApplyControl_ControllersStayClamped(t *testing.T) {
	tbl := states.Table{{Speedup: 1, Cost: 1}, {Speedup: 3, Cost: 4}}
	e, _ := newTestEngine(t, tbl, 2.5, Performance, 3)

	for i := 0; i < 40; i++ {
		e.ApplyControl(i, 0.3, 7.0)
		assert.GreaterOrEqual(t, e.speedupCtrl.U, e.speedupCtrl.UMin)
		assert.LessOrEqual(t, e.speedupCtrl.U, e.speedupCtrl.UMax)
		assert.GreaterOrEqual(t, e.powerupCtrl.U, e.powerupCtrl.UMin)
		assert.LessOrEqual(t, e.powerupCtrl.U, e.powerupCtrl.UMax)
	}
}

// Boundary behavior (spec.md §8): period == 1 means every call is a
// boundary, so low_state_iters never survives past a single call.
func TestApplyControl_PeriodOne_EveryCallIsBoundary(t *testing.T) {
	tbl := states.Table{{Speedup: 1, Cost: 1}, {Speedup: 2, Cost: 2}}
	e, _ := newTestEngine(t, tbl, 1.5, Performance, 1)

	for i := 0; i < 10; i++ {
		e.ApplyControl(i, 1.0, 1.0)
		_, _, lowIters, _ := e.Schedule()
		assert.LessOrEqual(t, lowIters, 1)
	}
}

// Boundary behavior (spec.md §8): a single-state table always selects
// that state for both upper and lower, with no lower-state iterations.
func TestApplyControl_SingleState_NoSplit(t *testing.T) {
	tbl := states.Table{{Speedup: 1, Cost: 1}}
	e, _ := newTestEngine(t, tbl, 1.0, Performance, 5)

	for i := 0; i < 10; i++ {
		e.ApplyControl(i, 1.0, 1.0)
	}

	lowerID, upperID, lowIters, _ := e.Schedule()
	assert.Equal(t, 0, lowerID)
	assert.Equal(t, 0, upperID)
	assert.Equal(t, 0, lowIters)
}

func TestNewEngine_ValidatesPreconditions(t *testing.T) {
	tbl := states.Table{{Speedup: 1, Cost: 1}}

	_, err := NewEngine(Config{Goal: 0, States: tbl, Period: 1})
	assert.ErrorIs(t, err, ErrInvalidGoal)

	_, err = NewEngine(Config{Goal: 1, States: nil, Period: 1})
	assert.ErrorIs(t, err, ErrNilStates)

	_, err = NewEngine(Config{Goal: 1, States: tbl, Period: 0})
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	_, err = NewEngine(Config{Goal: 1, States: tbl, Period: 1, BufferDepth: 4})
	assert.ErrorIs(t, err, ErrBufferedLoggingNoFile)
}

func TestNewEngine_CurrentFuncSeedsLastID(t *testing.T) {
	tbl := states.Table{{Speedup: 1, Cost: 1}, {Speedup: 2, Cost: 2}, {Speedup: 4, Cost: 4}}
	e, err := NewEngine(Config{
		Goal:       2.0,
		Constraint: Performance,
		States:     tbl,
		Period:     1,
		Current: func(applyStates any, numStates int) (int, bool) {
			return 1, true
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, e.lastID)
}
