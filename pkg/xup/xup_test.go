package xup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRange(t *testing.T) {
	umin, umax := Range([]float64{1, 2, 0.1, 0})
	assert.InDelta(t, 0.1, umin, 1e-9)
	assert.InDelta(t, 2.0, umax, 1e-9)
}

func TestRange_FloorsTinyMinimum(t *testing.T) {
	umin, _ := Range([]float64{1e-9, 5})
	assert.GreaterOrEqual(t, umin, 1e-3)
}

func TestStep_ClampsToRange(t *testing.T) {
	c := New(DefaultTuning, 0.5, 4.0)

	for i := 0; i < 50; i++ {
		u := c.Step(0.1, 100.0, 1.0)
		require.GreaterOrEqual(t, u, c.UMin)
		require.LessOrEqual(t, u, c.UMax)
	}
}

func TestStep_ConvergesWhenErrorIsZero(t *testing.T) {
	c := New(DefaultTuning, 0.1, 10.0)

	var u float64
	for i := 0; i < 200; i++ {
		u = c.Step(2.0, 2.0, 1.0)
	}
	// error has been zero for a long time: e should be 0 and u should have
	// settled to a fixed point within range.
	assert.Equal(t, 0.0, c.E)
	prev := u
	next := c.Step(2.0, 2.0, 1.0)
	assert.InDelta(t, prev, next, 1e-6)
}

func TestSeed_WarmStartsHistory(t *testing.T) {
	c := New(DefaultTuning, 0.1, 10.0)
	c.Step(1.0, 2.0, 1.0) // dirty the history

	c.Seed(3.5)

	assert.Equal(t, 3.5, c.U)
	assert.Equal(t, 3.5, c.UO)
	assert.Equal(t, 0.0, c.E)
	assert.Equal(t, 0.0, c.EO)
}

func TestNew_SeedsHistoryAtUMin(t *testing.T) {
	c := New(DefaultTuning, 0.2, 5.0)
	assert.Equal(t, 0.2, c.U)
	assert.Equal(t, 0.2, c.UO)
	assert.Equal(t, 0.2, c.UOO)
}
