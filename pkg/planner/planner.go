// Package planner implements the time-division planner: given a candidate
// (lower, upper) pair of control states and a target multiplier, it splits
// one control period into iterations at each state (plus, for an idle
// lower state, a hybrid first iteration with some nanoseconds of sleep)
// so the combined effective multiplier equals the target.
package planner

import (
	"github.com/kestrelsys/poetcore/pkg/numeric"
	"github.com/kestrelsys/poetcore/pkg/states"
)

// Plan is the result of one planner run: how many of the period's
// iterations run at the lower state, how many nanoseconds of idle time (at
// most on the boundary iteration) realize a fractional hybrid iteration,
// and the secondary-dimension cost the split realizes.
type Plan struct {
	LowStateIters int
	IdleNs        int64
	Cost          float64
	Xup           float64
	// UpperScheduled is true when any non-hybrid iteration at the upper
	// state is part of this plan. It lets a caller check spec.md's
	// "low_state_iters + (1 if upper scheduled else 0) <= period" invariant;
	// pkg/search and pkg/engine do not read it.
	UpperScheduled bool
}

// Run splits one control period between lower and upper per spec.md §4.3.
//
// lowerID/upperID index into tbl; period is the number of iterations in one
// control cycle; targetXup is the multiplier the xup controller asked for;
// workload is the current workload estimate (seconds/iteration or
// joules/iteration) used to convert a fractional hybrid iteration into a
// nanosecond idle duration.
func Run(tbl states.Table, lowerID, upperID, period int, targetXup, workload float64) Plan {
	lower := tbl[lowerID]

	if lower.Speedup >= 1 {
		return planNonIdleLower(tbl, lowerID, upperID, period, targetXup)
	}
	return planIdleLower(tbl, lowerID, upperID, period, targetXup, workload)
}

// planNonIdleLower handles spec.md §4.3(a): both candidate states run at or
// above baseline speed, so the split is a simple convex combination of
// iteration counts solving 1/target = x/lower + (1-x)/upper for x.
func planNonIdleLower(tbl states.Table, lowerID, upperID, period int, targetXup float64) Plan {
	lower := tbl[lowerID]
	upper := tbl[upperID]

	if lower.Speedup == upper.Speedup {
		return Plan{
			LowStateIters:  0,
			IdleNs:         0,
			Cost:           upper.Cost,
			Xup:            upper.Speedup,
			UpperScheduled: true,
		}
	}

	// Solve 1/target = x/lower + (1-x)/upper for x:
	//   1/target - 1/upper = x * (1/lower - 1/upper)
	invTarget := 0.0
	if targetXup != 0 {
		invTarget = 1 / targetXup
	}
	invLower, invUpper := 1/lower.Speedup, 1/upper.Speedup

	var x float64
	denom := invLower - invUpper
	if denom != 0 {
		x = (invTarget - invUpper) / denom
	}
	if x < 0 {
		x = 0
	}
	if x > 1 {
		x = 1
	}

	low := numeric.TruncToInt(float64(period) * x)
	upperIters := period - low

	cost := 0.0
	if period > 0 {
		cost = (float64(low)/float64(period))*lower.Cost + (float64(upperIters)/float64(period))*upper.Cost
	}

	return Plan{
		LowStateIters:  low,
		IdleNs:         0,
		Cost:           cost,
		Xup:            targetXup,
		UpperScheduled: upperIters > 0,
	}
}

// planIdleLower handles spec.md §4.3(b): the lower state sleeps. The first
// iteration of the period is a hybrid of lower and its partner; the
// remaining period-1 iterations run at upper.
func planIdleLower(tbl states.Table, lowerID, upperID, period int, targetXup, workload float64) Plan {
	lower := tbl[lowerID]
	upper := tbl[upperID]
	partner := tbl[lower.IdlePartner]

	// hybrid_xup = (target * upper) / (period * (upper - target) + target)
	denom := float64(period)*(upper.Speedup-targetXup) + targetXup
	var hybridXup float64
	if denom != 0 {
		hybridXup = (targetXup * upper.Speedup) / denom
	}

	if hybridXup >= partner.Speedup {
		// No idling helps; a full iteration at partner speed already
		// reaches the target — fall back to running upper exclusively.
		return Plan{
			LowStateIters:  0,
			IdleNs:         0,
			Cost:           upper.Cost,
			Xup:            upper.Speedup,
			UpperScheduled: true,
		}
	}

	var x float64
	if lower.Speedup <= 0 {
		// Pure sleep: x = 1 - hybrid/partner.
		if partner.Speedup != 0 {
			x = 1 - hybridXup/partner.Speedup
		}
	} else {
		// Solve 1/hybrid = x/lower + (1-x)/partner.
		var invHybrid float64
		if hybridXup != 0 {
			invHybrid = 1 / hybridXup
		}
		invLower, invPartner := 1/lower.Speedup, 1/partner.Speedup
		d := invLower - invPartner
		if d != 0 {
			x = (invHybrid - invPartner) / d
		}
	}
	if x < 0 {
		x = 0
	}
	if x > 1 {
		x = 1
	}

	// idle_ns = workload * (1/hybrid - x/partner) seconds, as integer ns.
	var invHybrid float64
	if hybridXup != 0 {
		invHybrid = 1 / hybridXup
	}
	var xOverPartner float64
	if partner.Speedup != 0 {
		xOverPartner = x / partner.Speedup
	}
	idleSeconds := workload * (invHybrid - xOverPartner)
	if idleSeconds < 0 {
		idleSeconds = 0
	}
	idleNs := int64(idleSeconds * 1e9)

	hybridCost := x*lower.Cost + (1-x)*partner.Cost
	upperIters := period - 1
	cost := hybridCost/float64(period) + (float64(upperIters)/float64(period))*upper.Cost

	return Plan{
		LowStateIters:  1,
		IdleNs:         idleNs,
		Cost:           cost,
		Xup:            targetXup,
		UpperScheduled: upperIters > 0,
	}
}
