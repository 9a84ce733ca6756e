// Package numeric defines the scalar type poetcore's control loop computes
// with, and the compile-time choice of representation behind it.
//
// spec.md calls this a "real_t trait": arithmetic that can be backed by
// either floating-point or fixed-point storage without the rest of the
// engine knowing which. No fixed-point arithmetic library appears anywhere
// in this corpus to ground a second implementation against, so Float64 is
// the only Real in this port. The control-loop packages (pkg/kalman,
// pkg/xup, pkg/planner) compute directly in float64 and do not go through
// Real: pkg/xup takes its clamp from Clamp and pkg/planner its
// iteration-count truncation from TruncToInt, and nothing else in the
// control loop uses this package.
package numeric

// Real is the numeric trait for poetcore's scalar arithmetic. Float64 is its
// only implementation, and no control-loop package computes through it.
// Implementations must be comparable by value (used as map/struct fields)
// and must saturate rather than panic on overflow.
type Real interface {
	Add(Real) Real
	Sub(Real) Real
	Mul(Real) Real
	Div(Real) Real
	Float64() float64
}

// Float64 is the floating-point Real. It is the default and, for now, only
// representation; poetcore's compile-time "numeric kernel" selection point.
type Float64 float64

func (f Float64) Add(o Real) Real { return f + o.(Float64) }
func (f Float64) Sub(o Real) Real { return f - o.(Float64) }
func (f Float64) Mul(o Real) Real { return f * o.(Float64) }

// Div returns 0 when dividing by zero rather than +Inf/NaN, matching the
// saturate-don't-panic contract every numeric kernel in this port honors.
func (f Float64) Div(o Real) Real {
	d := o.(Float64)
	if d == 0 {
		return Float64(0)
	}
	return f / d
}

func (f Float64) Float64() float64 { return float64(f) }

// Clamp restricts x to [lo, hi]. Used by pkg/xup's Step and Seed to keep U
// within [UMin, UMax].
func Clamp(x, lo, hi float64) float64 {
	switch {
	case x < lo:
		return lo
	case x > hi:
		return hi
	default:
		return x
	}
}

// TruncToInt truncates a fractional iteration count toward zero. The
// planner relies on this truncating (not rounding) so that
// low + upper-scheduled never exceeds the period — spec.md's time-division
// planner invariant.
func TruncToInt(x float64) int {
	return int(x)
}
