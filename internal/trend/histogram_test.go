package trend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sumCounts(bins []Bin) int {
	total := 0
	for _, b := range bins {
		total += b.Count
	}
	return total
}

func TestHistogramCountsSumToLen(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	bins := Histogram(values, 10)
	require.Len(t, bins, 10)
	assert.Equal(t, len(values), sumCounts(bins))
}

func TestHistogramLastBinIncludesMaximum(t *testing.T) {
	values := []float64{20, 40, 60, 80, 100}
	bins := Histogram(values, 4)
	require.Len(t, bins, 4)
	last := bins[len(bins)-1]
	assert.Equal(t, 80.0, last.Low)
	assert.Equal(t, 100.0, last.High)
	// 80 and the maximum 100 both land in the closed last bin.
	assert.Equal(t, 2, last.Count)
	assert.Equal(t, len(values), sumCounts(bins))
}

func TestHistogramRoundedBoundsKeepExtremes(t *testing.T) {
	// Rounded bounds sit inside [min, max]; min and max must still be counted.
	values := []float64{10.6, 11, 12, 13, 14.4}
	bins := Histogram(values, 3)
	require.Len(t, bins, 3)
	assert.Equal(t, 11.0, bins[0].Low)
	assert.Equal(t, 14.0, bins[2].High)
	assert.Equal(t, len(values), sumCounts(bins))
	assert.GreaterOrEqual(t, bins[0].Count, 1)
	assert.GreaterOrEqual(t, bins[2].Count, 1)
}

func TestHistogramConstantAndEmpty(t *testing.T) {
	bins := Histogram([]float64{50, 50, 50}, 5)
	require.Len(t, bins, 5)
	assert.Equal(t, 3, bins[0].Count)
	assert.Equal(t, 3, sumCounts(bins))

	assert.Nil(t, Histogram(nil, 10))
	assert.Nil(t, Histogram([]float64{1, 2}, 0))
}
