package trend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMovingAverageTrailingWindow(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}
	got := MovingAverage(values, DefaultWindow)
	require.Len(t, got, len(values))
	assert.InDelta(t, 1.0, got[0], 1e-9)
	assert.InDelta(t, 1.5, got[1], 1e-9)
	assert.InDelta(t, 4.0, got[6], 1e-9) // mean of 1..7
	assert.InDelta(t, 5.0, got[7], 1e-9) // mean of 2..8
	assert.InDelta(t, 6.0, got[8], 1e-9) // mean of 3..9
}

func TestMovingAverageSmallWindowCopies(t *testing.T) {
	values := []float64{3, 1, 2}
	got := MovingAverage(values, 1)
	assert.Equal(t, values, got)
	got[0] = 99
	assert.Equal(t, 3.0, values[0], "input must not be aliased")
}

func TestLinearFitPerfectLine(t *testing.T) {
	fit := LinearFit([]float64{10, 20, 30, 40, 50})
	assert.InDelta(t, 10.0, fit.Slope, 1e-9)
	assert.InDelta(t, 10.0, fit.Intercept, 1e-9)
	assert.InDelta(t, 1.0, fit.RSquared, 1e-9)
	want := []float64{10, 20, 30, 40, 50}
	for i, v := range fit.Fitted {
		assert.InDelta(t, want[i], v, 1e-9)
	}
}

func TestLinearFitDegenerate(t *testing.T) {
	empty := LinearFit(nil)
	assert.Empty(t, empty.Fitted)
	assert.Zero(t, empty.Slope)

	single := LinearFit([]float64{42})
	assert.Equal(t, []float64{42}, single.Fitted)
	assert.Zero(t, single.Slope)
	assert.Equal(t, 42.0, single.Intercept)

	flat := LinearFit([]float64{7, 7, 7, 7})
	assert.InDelta(t, 0.0, flat.Slope, 1e-9)
	assert.InDelta(t, 7.0, flat.Intercept, 1e-9)
	assert.Equal(t, 1.0, flat.RSquared)
}

func TestSparkline(t *testing.T) {
	assert.Equal(t, "", Sparkline(nil))
	assert.Equal(t, "+++", Sparkline([]float64{5, 5, 5}))
	line := Sparkline([]float64{0, 50, 100})
	require.Len(t, line, 3)
	assert.Equal(t, byte(' '), line[0])
	assert.Equal(t, byte('@'), line[2])
}
