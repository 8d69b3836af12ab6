// Package trend provides smoothing, regression and distribution helpers over session series.
package trend

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// DefaultWindow is the moving average window used for WPM trend lines.
const DefaultWindow = 7

const sparkChars = " .:-=+*#%@"

// MovingAverage computes a trailing mean over the provided window size. Early positions average
// over however many values are available.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Fit is a least squares line over values indexed 0..n-1.
type Fit struct {
	Slope     float64
	Intercept float64
	RSquared  float64
	Fitted    []float64
}

// At returns the fitted value at index x.
func (f Fit) At(x float64) float64 {
	return f.Intercept + f.Slope*x
}

// LinearFit fits y = intercept + slope*x with x the value index.
// An empty series yields an empty fit; a single value yields a flat line.
func LinearFit(values []float64) Fit {
	n := len(values)
	switch n {
	case 0:
		return Fit{}
	case 1:
		return Fit{Intercept: values[0], RSquared: 1, Fitted: []float64{values[0]}}
	}

	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	intercept, slope := stat.LinearRegression(xs, values, nil, false)
	if math.IsNaN(slope) || math.IsNaN(intercept) {
		mean := stat.Mean(values, nil)
		slope, intercept = 0, mean
	}
	fit := Fit{Slope: slope, Intercept: intercept, Fitted: make([]float64, n)}
	for i, x := range xs {
		fit.Fitted[i] = fit.At(x)
	}
	fit.RSquared = stat.RSquared(xs, values, nil, intercept, slope)
	if math.IsNaN(fit.RSquared) {
		// Constant series: the flat line explains everything.
		fit.RSquared = 1
	}
	return fit
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}
