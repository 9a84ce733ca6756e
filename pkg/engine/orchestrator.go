package engine

import (
	"github.com/kestrelsys/poetcore/pkg/search"
	"github.com/kestrelsys/poetcore/pkg/telemetry"
)

// ApplyControl is the per-iteration entry point from spec.md §4.5. It never
// fails — pathological inputs yield a clamped multiplier and, at worst, no
// dispatch this period (spec.md §7).
func (e *Engine) ApplyControl(id int, perf, pwr float64) {
	if e.flags.DisableControl {
		return
	}

	if e.currentAction == 0 {
		e.runBoundary(perf, pwr)
	}

	configID := -1
	switch {
	case e.lowStateIters > 0:
		configID = e.lowerID
		e.lowStateIters--
	case e.upperID >= 0:
		configID = e.upperID
	}

	if configID >= 0 && (configID != e.lastID || e.isFirstApply) {
		if e.applyFn != nil && !e.flags.DisableApply {
			e.applyFn(e.applyStates, len(e.states), configID, e.lastID, e.idleNs, e.isFirstApply)
		}
		e.isFirstApply = false
		e.lastID = configID
		e.idleNs = 0
	}

	e.currentAction = (e.currentAction + 1) % e.period
}

// runBoundary runs the full pipeline once per period: both Kalman filters,
// the active-dimension xup controller, the pair search, the cross-seed of
// the inactive controller, and a telemetry emission — spec.md §4.5 steps
// 1a-1e.
func (e *Engine) runBoundary(perf, pwr float64) {
	e.timeWorkload = e.timeFilter.Update(perf, e.speedupCtrl.U)
	e.energyWorkload = e.energyFilter.Update(pwr, e.powerupCtrl.U)

	var target, workload float64
	var sc search.Constraint

	switch e.constraint {
	case Performance:
		target = e.speedupCtrl.Step(perf, e.goal, e.timeWorkload)
		workload = e.timeWorkload
		sc = search.Performance
	case Power:
		target = e.powerupCtrl.Step(pwr, e.goal, e.energyWorkload)
		workload = e.energyWorkload
		sc = search.Power
	}

	result := search.Search(e.states, sc, target, workload, e.period, !e.flags.DisableIdle)

	// Open question resolved per spec.md §9: when no pair qualifies, the
	// -1 sentinel is stored in e.lowerID/e.upperID and the rest of the
	// schedule (e.lowStateIters, e.idleNs, the cost estimates) is left as
	// last computed; the dispatcher above then finds no state id to apply
	// and does not change state this period.
	if result.LowerID != -1 || result.UpperID != -1 {
		e.lowerID = result.LowerID
		e.upperID = result.UpperID
		e.lowStateIters = result.Plan.LowStateIters
		e.idleNs = result.Plan.IdleNs
		e.costEstimate = result.Plan.Cost
		e.costXupEstimate = result.Plan.Xup
	} else {
		e.lowerID = -1
		e.upperID = -1
	}

	// Cross-seed the inactive dimension's controller — spec.md §4.5d and
	// §9's "intentional, not a bug" note — so U stays continuous across a
	// SetConstraint switch.
	switch e.constraint {
	case Performance:
		e.powerupCtrl.Seed(e.costXupEstimate)
	case Power:
		e.speedupCtrl.Seed(e.costXupEstimate)
	}

	e.telemetry.Record(e.buildRecord(perf, pwr))
}

func (e *Engine) buildRecord(perf, pwr float64) telemetry.Record {
	constraintName := "PERFORMANCE"
	if e.constraint == Power {
		constraintName = "POWER"
	}

	return telemetry.Record{
		Tag:            "poetcore",
		Constraint:     constraintName,
		MeasuredPerf:   perf,
		PerfXHat:       e.timeFilter.XHat,
		PerfXHatMinus:  e.timeFilter.XHatMinus,
		PerfP:          e.timeFilter.P,
		PerfPMinus:     e.timeFilter.PMinus,
		PerfH:          e.timeFilter.H,
		PerfK:          e.timeFilter.K,
		Speedup:        e.speedupCtrl.U,
		SpeedupError:   e.speedupCtrl.E,
		MeasuredPower:  pwr,
		CostXHat:       e.energyFilter.XHat,
		CostXHatMinus:  e.energyFilter.XHatMinus,
		CostP:          e.energyFilter.P,
		CostPMinus:     e.energyFilter.PMinus,
		CostH:          e.energyFilter.H,
		CostK:          e.energyFilter.K,
		Powerup:        e.powerupCtrl.U,
		PowerupError:   e.powerupCtrl.E,
		TimeWorkload:   e.timeWorkload,
		EnergyWorkload: e.energyWorkload,
		LowerID:        e.lowerID,
		UpperID:        e.upperID,
		LowStateIters:  e.lowStateIters,
		IdleNs:         e.idleNs,
	}
}
