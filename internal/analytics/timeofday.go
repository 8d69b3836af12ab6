package analytics

import (
	"time"

	"github.com/verte-zerg/typetrack/internal/model"
)

// HourBucket accumulates sessions completed within one hour of the day.
type HourBucket struct {
	Hour       int
	Count      int
	AverageWPM float64
}

// HourlyPattern buckets sessions by local hour of day (0-23).
func HourlyPattern(history []model.SessionRecord, loc *time.Location) [24]HourBucket {
	if loc == nil {
		loc = time.Local
	}
	var sums [24]float64
	var out [24]HourBucket
	for h := range out {
		out[h].Hour = h
	}
	for _, s := range history {
		h := s.Timestamp.In(loc).Hour()
		out[h].Count++
		sums[h] += s.WPM
	}
	for h := range out {
		if out[h].Count > 0 {
			out[h].AverageWPM = sums[h] / float64(out[h].Count)
		}
	}
	return out
}

// BestHour returns the bucket with the highest average WPM. Ties go to the earlier hour.
func BestHour(buckets [24]HourBucket) (HourBucket, bool) {
	best := -1
	for h, b := range buckets {
		if b.Count == 0 {
			continue
		}
		if best == -1 || b.AverageWPM > buckets[best].AverageWPM {
			best = h
		}
	}
	if best == -1 {
		return HourBucket{}, false
	}
	return buckets[best], true
}

// GridCell is one weekday/hour cell of the activity heatmap.
type GridCell struct {
	Count      int
	AverageWPM float64
	// Intensity is Count relative to the busiest cell, in [0, 1].
	Intensity float64
}

// WeekHourGrid accumulates sessions into a weekday (Sunday first) by hour grid.
func WeekHourGrid(history []model.SessionRecord, loc *time.Location) [7][24]GridCell {
	if loc == nil {
		loc = time.Local
	}
	var grid [7][24]GridCell
	var sums [7][24]float64
	for _, s := range history {
		ts := s.Timestamp.In(loc)
		d, h := int(ts.Weekday()), ts.Hour()
		grid[d][h].Count++
		sums[d][h] += s.WPM
	}
	maxCount := 0
	for d := range grid {
		for h := range grid[d] {
			maxCount = max(maxCount, grid[d][h].Count)
		}
	}
	for d := range grid {
		for h := range grid[d] {
			cell := &grid[d][h]
			if cell.Count == 0 {
				continue
			}
			cell.AverageWPM = sums[d][h] / float64(cell.Count)
			cell.Intensity = float64(cell.Count) / float64(maxCount)
		}
	}
	return grid
}
