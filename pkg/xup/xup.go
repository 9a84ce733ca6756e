// Package xup implements the fixed-form, second-order pole-placement
// controller that turns a tracking error into a target multiplier — the
// "speedup" when optimizing performance, the "powerup" when optimizing
// power (see the GLOSSARY in spec.md).
//
// The struct shape here (current/previous/two-previous output, current and
// previous error, a clamp range derived at construction) follows the scalar
// PID controllers elsewhere in the pack — rbrabson/control's filter
// comparisons and deepaucksharma/Phoenix's StreamlinedController both keep
// exactly this kind of short history around a scalar output — but the
// recurrence itself is spec.md's fixed pole/zero form, not a PID loop: it
// has no integral or derivative term, just four tuning constants baked
// into the coefficients computed in Step.
package xup

import "github.com/kestrelsys/poetcore/pkg/numeric"

// Tuning holds the four pole/zero/robustness constants spec.md §4.2 calls
// P1, P2, Z1, MU. They are fixed at construction — this port does not
// support re-tuning a live Controller.
type Tuning struct {
	P1 float64
	P2 float64
	Z1 float64
	MU float64
}

// DefaultTuning are conservative pole placements yielding a slow, stable
// response; hosts with a faster actuation path can supply their own Tuning.
var DefaultTuning = Tuning{P1: 0.9, P2: 0.8, Z1: 0.5, MU: 1.0}

// Controller is one dimension's xup controller: one instance drives
// "speedup" from measured performance, a second drives "powerup" from
// measured power. Both live on engine.Engine per spec.md §3.
type Controller struct {
	Tuning Tuning

	U   float64
	UO  float64
	UOO float64
	E   float64
	EO  float64

	UMin float64
	UMax float64
}

// New creates a Controller whose achievable range is [umin, umax] and whose
// history is seeded at the low end of that range — matching a cold engine
// that has not yet applied any non-baseline multiplier.
func New(tuning Tuning, umin, umax float64) *Controller {
	return &Controller{
		Tuning: tuning,
		U:      umin,
		UO:     umin,
		UOO:    umin,
		UMin:   umin,
		UMax:   umax,
	}
}

// Step runs one controller update given the measured rate, the desired
// rate, and the current workload estimate, and returns the clamped target
// multiplier. Per spec.md §4.2:
//
//	e  = desired - current
//	A  = -(-P1*Z1 - P2*Z1 + MU*P1*P2 - MU*P2 + P2 - MU*P1 + P1 + MU)
//	B  = -(-MU*P1*P2*Z1 + P1*P2*Z1 + MU*P2*Z1 + MU*P1*Z1 - MU*Z1 - P1*P2)
//	C  = ((MU - MU*P1)*P2 + MU*P1 - MU) * w
//	D  = ((MU*P1 - MU)*P2 - MU*P1 + MU) * w * Z1
//	F  = 1 / (Z1 - 1)
//	u  = F * (A*uo + B*uoo + C*e + D*eo)
//	clamp u to [umin, umax]; shift history: uoo<-uo, uo<-u, eo<-e
func (c *Controller) Step(current, desired, w float64) float64 {
	p1, p2, z1, mu := c.Tuning.P1, c.Tuning.P2, c.Tuning.Z1, c.Tuning.MU

	e := desired - current

	a := -(-p1*z1 - p2*z1 + mu*p1*p2 - mu*p2 + p2 - mu*p1 + p1 + mu)
	b := -(-mu*p1*p2*z1 + p1*p2*z1 + mu*p2*z1 + mu*p1*z1 - mu*z1 - p1*p2)
	cc := ((mu-mu*p1)*p2 + mu*p1 - mu) * w
	d := ((mu*p1-mu)*p2 - mu*p1 + mu) * w * z1

	var f float64
	if z1 != 1 {
		f = 1 / (z1 - 1)
	}

	u := f * (a*c.UO + b*c.UOO + cc*e + d*c.EO)
	u = numeric.Clamp(u, c.UMin, c.UMax)

	c.UOO = c.UO
	c.UO = u
	c.U = u
	c.EO = e
	c.E = e

	return u
}

// Seed warm-starts this controller's history from a planned xup estimate —
// spec.md §4.5d's cross-seeding of the inactive controller, so that a
// constraint switch via set_constraint has continuous U instead of
// restarting from UMin. Per spec.md: uoo<-uo; u<-estimate; uo<-u; e<-0; eo<-0.
//
// estimate is clamped to [UMin, UMax] before the assignment: spec.md §8's
// clamp invariant binds both controllers after every call, and the
// cross-seeded estimate comes from the other dimension's achievable range,
// not this one's, so it is not guaranteed to already fall inside it.
func (c *Controller) Seed(estimate float64) {
	estimate = numeric.Clamp(estimate, c.UMin, c.UMax)
	c.UOO = c.UO
	c.U = estimate
	c.UO = c.U
	c.E = 0
	c.EO = 0
}

// Range derives [umin, umax] from a slice of speedups or costs per spec.md
// §4.2: the minimum non-zero value across all entries, floored by a small
// positive constant, and the maximum value.
func Range(values []float64) (umin, umax float64) {
	const floor = 1e-3
	umin = -1
	for _, v := range values {
		if v > 0 && (umin < 0 || v < umin) {
			umin = v
		}
		if v > umax {
			umax = v
		}
	}
	if umin < 0 {
		umin = floor
	}
	if umin < floor {
		umin = floor
	}
	return umin, umax
}
