// Package kalman implements the scalar Kalman workload estimator: a
// single-state, single-measurement filter that tracks the intrinsic
// per-iteration workload (time or energy) under unit multiplier from a
// noisy rate observation.
//
// This is deliberately not built on the matrix/vector Kalman filter found
// elsewhere in the pack (itohio/EasyRobot's x/math/filter/kalman, an n-state
// m-measurement linear filter over its own mat.Matrix/vec.Vector types):
// that library solves a general linear-system estimation problem and pulls
// in a matrix package this repo has no other use for, to estimate a single
// scalar. The update here is the textbook 1x1 specialization of the same
// recursion, written directly against float64.
package kalman

// Filter is one Kalman instance over one measurement stream (time-per-iteration
// or energy-per-iteration). Q and R are the process/measurement noise
// constants; callers typically hold one Filter for performance and one for
// power, as spec.md's engine state requires.
type Filter struct {
	Q float64
	R float64

	XHat      float64
	XHatMinus float64
	P         float64
	PMinus    float64
	H         float64
	K         float64
}

// Default initial states, per spec.md §4.1: "their initial states are
// well-defined constants". These are conservative priors — a workload of
// 1 time/energy unit per iteration under unit multiplier, with enough
// initial uncertainty (P0) that the first few observations dominate.
const (
	DefaultXHat = 1.0
	DefaultP    = 1.0
	DefaultQ    = 1e-5
	DefaultR    = 1e-2
)

// New creates a Filter with the default priors and the given process/measurement
// noise. Panics are never used here: R<=0 or P0<=0 would violate the "filter is
// numerically stable provided R > 0 and initial P > 0" precondition from
// spec.md §4.1, so New raises R<=0 to a small positive floor (and a negative q to
// 0) instead of trusting the caller blindly, while P always starts at the positive
// DefaultP — this is the one place the core substitutes a clamp for a
// construction-time error, because unlike pkg/engine's NewEngine this type has
// no error return in its signature.
func New(q, r float64) *Filter {
	const floor = 1e-12
	if q < 0 {
		q = 0
	}
	if r <= 0 {
		r = floor
	}
	return &Filter{
		Q:    q,
		R:    r,
		XHat: DefaultXHat,
		P:    DefaultP,
	}
}

// NewDefault creates a Filter using DefaultQ/DefaultR.
func NewDefault() *Filter { return New(DefaultQ, DefaultR) }

// Update runs one Kalman step given the observed rate y and the multiplier
// uPrev applied during the measurement window, and returns the updated
// workload estimate w = 1/x_hat.
//
//	x_hat_minus = x_hat
//	p_minus     = p + Q
//	h           = u_prev
//	k           = (p_minus * h) / (h * p_minus * h + R)
//	x_hat       = x_hat_minus + k * (y - h * x_hat_minus)
//	p           = (1 - k*h) * p_minus
//	return 1 / x_hat
func (f *Filter) Update(y, uPrev float64) float64 {
	f.XHatMinus = f.XHat
	f.PMinus = f.P + f.Q
	f.H = uPrev

	denom := f.H*f.PMinus*f.H + f.R
	if denom == 0 {
		f.K = 0
	} else {
		f.K = (f.PMinus * f.H) / denom
	}

	f.XHat = f.XHatMinus + f.K*(y-f.H*f.XHatMinus)
	f.P = (1 - f.K*f.H) * f.PMinus

	if f.XHat == 0 {
		return 0
	}
	return 1 / f.XHat
}
