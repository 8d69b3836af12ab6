package trend

import "math"

// Bin is one histogram bucket covering [Low, High).
type Bin struct {
	Low   float64
	High  float64
	Count int
}

// Histogram buckets values into bins of uniform width with rounded boundaries.
//
// The first bin also takes values that fall below its rounded lower bound, and the last bin is
// closed, so every value, including the maximum, lands in exactly one bin.
func Histogram(values []float64, bins int) []Bin {
	if len(values) == 0 || bins <= 0 {
		return nil
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	width := (maxVal - minVal) / float64(bins)

	out := make([]Bin, bins)
	for k := range out {
		out[k].Low = math.Round(minVal + float64(k)*width)
		out[k].High = math.Round(minVal + float64(k+1)*width)
	}
	if width == 0 {
		out[0].Count = len(values)
		return out
	}

	for _, v := range values {
		out[binIndex(out, v)].Count++
	}
	return out
}

func binIndex(bins []Bin, v float64) int {
	last := len(bins) - 1
	if v >= bins[last].Low {
		return last
	}
	for k := 0; k < last; k++ {
		if v < bins[k].High {
			return k
		}
	}
	return last
}
