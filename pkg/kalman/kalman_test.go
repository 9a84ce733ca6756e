package kalman

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// expect re-derives the update independently so the test doesn't just
// echo the implementation back at itself.
func expect(f *Filter, y, uPrev float64) (xHat, p, workload float64) {
	xHatMinus := f.XHat
	pMinus := f.P + f.Q
	h := uPrev
	denom := h*pMinus*h + f.R
	var k float64
	if denom != 0 {
		k = (pMinus * h) / denom
	}
	xHat = xHatMinus + k*(y-h*xHatMinus)
	p = (1 - k*h) * pMinus
	if xHat == 0 {
		workload = 0
	} else {
		workload = 1 / xHat
	}
	return
}

func TestUpdate_MatchesFormula(t *testing.T) {
	f := New(DefaultQ, DefaultR)

	samples := []struct {
		y, u float64
	}{
		{1.0, 1.0},
		{0.9, 1.1},
		{1.2, 0.8},
		{1.0, 1.0},
	}

	for i, s := range samples {
		wantXHat, wantP, wantW := expect(f, s.y, s.u)
		gotW := f.Update(s.y, s.u)

		require.InDelta(t, wantXHat, f.XHat, 1e-12, "x_hat mismatch at step %d", i)
		require.InDelta(t, wantP, f.P, 1e-12, "p mismatch at step %d", i)
		require.InDelta(t, wantW, gotW, 1e-12, "workload mismatch at step %d", i)
	}
}

func TestUpdate_ConvergesWhenRateMatchesMultiplier(t *testing.T) {
	// Feeding y = u_prev * x_true repeatedly should converge x_hat -> x_true.
	const xTrue = 2.0
	f := New(1e-6, 1e-3)

	var last float64
	for i := 0; i < 500; i++ {
		last = f.Update(1.0*xTrue, 1.0)
	}
	assert.InDelta(t, 1.0/xTrue, last, 1e-2)
	assert.InDelta(t, xTrue, f.XHat, 1e-2)
}

func TestNew_ClampsNonPositiveR(t *testing.T) {
	f := New(0, 0)
	assert.Greater(t, f.R, 0.0)
	assert.False(t, math.IsNaN(f.R))
}

