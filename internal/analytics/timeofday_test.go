package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/typetrack/internal/model"
)

func at(day, hour int, wpm float64) model.SessionRecord {
	return model.SessionRecord{
		Timestamp: time.Date(2026, 3, day, hour, 15, 0, 0, time.UTC),
		WPM:       wpm,
	}
}

func TestHourlyPatternAndBestHour(t *testing.T) {
	history := []model.SessionRecord{
		at(2, 9, 40),
		at(3, 9, 60),
		at(2, 14, 50),
		at(4, 22, 50),
	}
	hours := HourlyPattern(history, time.UTC)
	assert.Equal(t, 2, hours[9].Count)
	assert.Equal(t, 50.0, hours[9].AverageWPM)
	assert.Equal(t, 1, hours[14].Count)
	assert.Equal(t, 0, hours[0].Count)

	best, ok := BestHour(hours)
	require.True(t, ok)
	assert.Equal(t, 9, best.Hour, "ties resolve to the earliest hour")

	_, ok = BestHour(HourlyPattern(nil, time.UTC))
	assert.False(t, ok)
}

func TestHourlyPatternUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	hours := HourlyPattern([]model.SessionRecord{at(2, 22, 70)}, loc)
	assert.Equal(t, 1, hours[1].Count)
	assert.Equal(t, 0, hours[22].Count)
}

func TestWeekHourGridIntensity(t *testing.T) {
	// 2026-03-01 is a Sunday.
	history := []model.SessionRecord{
		at(1, 8, 30),
		at(1, 8, 50),
		at(1, 8, 70),
		at(2, 20, 60),
	}
	grid := WeekHourGrid(history, time.UTC)
	sunday := grid[time.Sunday][8]
	assert.Equal(t, 3, sunday.Count)
	assert.Equal(t, 50.0, sunday.AverageWPM)
	assert.Equal(t, 1.0, sunday.Intensity)

	monday := grid[time.Monday][20]
	assert.Equal(t, 1, monday.Count)
	assert.InDelta(t, 1.0/3.0, monday.Intensity, 1e-9)

	assert.Zero(t, grid[time.Friday][12].Intensity)
}
