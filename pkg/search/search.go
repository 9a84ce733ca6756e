// Package search implements the O(n²) pair search: enumerate every
// admissible (lower, upper) pair of control states and keep the one the
// planner realizes at minimum secondary cost (when optimizing for
// performance) or maximum performance contribution (when optimizing for
// power).
package search

import (
	"math"

	"github.com/kestrelsys/poetcore/pkg/planner"
	"github.com/kestrelsys/poetcore/pkg/states"
)

// Constraint selects which dimension the search optimizes, matching
// spec.md §3's engine constraint kind.
type Constraint int

const (
	Performance Constraint = iota
	Power
)

// Result is the best admissible pair found, or the "no pair qualifies"
// sentinel (-1, -1) spec.md §4.4/§9 documents as a contract, not a bug: the
// caller must not fall back to the last good schedule when this happens.
type Result struct {
	LowerID int
	UpperID int
	Plan    planner.Plan
}

// NoPair is the sentinel Result returned when no admissible pair exists.
var NoPair = Result{LowerID: -1, UpperID: -1}

// Search enumerates all (upper, lower) pairs where upper.Speedup >= targetXup
// and upper.Speedup >= 1, and lower.Speedup <= targetXup (additionally
// requiring lower.Speedup >= 1 when allowIdle is false), runs the planner
// for each, and returns the best by the given constraint. Ties break by
// first-found, i.e. natural enumeration order.
func Search(tbl states.Table, constraint Constraint, targetXup, workload float64, period int, allowIdle bool) Result {
	best := NoPair
	var bestScore float64
	switch constraint {
	case Performance:
		bestScore = math.MaxFloat64
	case Power:
		bestScore = 0
	}

	found := false

	for upperID, upper := range tbl {
		if upper.Speedup < 1 || upper.Speedup < targetXup {
			continue
		}
		for lowerID, lower := range tbl {
			if lower.Speedup > targetXup {
				continue
			}
			if !allowIdle && lower.Speedup < 1 {
				continue
			}

			p := planner.Run(tbl, lowerID, upperID, period, targetXup, workload)

			switch constraint {
			case Performance:
				if !found || p.Cost < bestScore {
					bestScore = p.Cost
					best = Result{LowerID: lowerID, UpperID: upperID, Plan: p}
					found = true
				}
			case Power:
				if !found || p.Cost > bestScore {
					bestScore = p.Cost
					best = Result{LowerID: lowerID, UpperID: upperID, Plan: p}
					found = true
				}
			}
		}
	}

	if !found {
		return NoPair
	}
	return best
}
