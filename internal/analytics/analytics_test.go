package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/typetrack/internal/model"
)

var base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) // a Monday

// historyOf builds most-recent-first history from WPM values.
func historyOf(wpms ...float64) []model.SessionRecord {
	out := make([]model.SessionRecord, len(wpms))
	for i, w := range wpms {
		out[i] = model.SessionRecord{
			ID:               string(rune('a' + i)),
			Timestamp:        base.Add(-time.Duration(i) * time.Hour),
			WPM:              w,
			Accuracy:         95,
			Difficulty:       model.Medium,
			TimeTakenSeconds: 60,
		}
	}
	return out
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestChangePercentNeedsTenSessions(t *testing.T) {
	for n := 0; n < 10; n++ {
		assert.Equal(t, 0, ChangePercent(historyOf(repeat(50, n)...), WPM))
	}
}

func TestChangePercentRecentVersusOlder(t *testing.T) {
	wpms := append(repeat(60, 5), repeat(50, 5)...)
	assert.Equal(t, 20, ChangePercent(historyOf(wpms...), WPM))

	// Middle sessions are ignored when history is longer than ten.
	wpms = append(append(repeat(45, 5), repeat(999, 3)...), repeat(50, 5)...)
	assert.Equal(t, -10, ChangePercent(historyOf(wpms...), WPM))

	zeros := historyOf(append(repeat(10, 5), repeat(0, 5)...)...)
	assert.Equal(t, 0, ChangePercent(zeros, WPM))
}

func TestConsistency(t *testing.T) {
	constant := historyOf(repeat(55, 8)...)
	assert.Equal(t, 0.0, Variance(constant))
	assert.Equal(t, 100.0, ConsistencyScore(constant))

	spread := historyOf(40, 60)
	assert.InDelta(t, 100.0, Variance(spread), 1e-9)
	assert.InDelta(t, 90.0, ConsistencyScore(spread), 1e-9)

	wild := historyOf(0, 200)
	assert.Equal(t, 0.0, ConsistencyScore(wild))
	assert.Equal(t, 100.0, ConsistencyScore(nil))
}

func TestDifficultyBreakdownDefaultsUnknownToMedium(t *testing.T) {
	history := historyOf(30, 50, 70, 90)
	history[0].Difficulty = model.Easy
	history[1].Difficulty = ""
	history[2].Difficulty = "nightmare"
	history[3].Difficulty = model.Hard

	got := DifficultyBreakdown(history)
	require.Len(t, got, 3)
	assert.Equal(t, model.Easy, got[0].Difficulty)
	assert.Equal(t, 1, got[0].Count)
	assert.Equal(t, 30.0, got[0].AverageWPM)
	assert.Equal(t, 2, got[1].Count)
	assert.Equal(t, 60.0, got[1].AverageWPM)
	assert.Equal(t, 95.0, got[1].AverageAccuracy)
	assert.Equal(t, 1, got[2].Count)
	assert.Equal(t, 90.0, got[2].AverageWPM)
}

func TestPeaks(t *testing.T) {
	history := historyOf(40, 80, 60)
	history[2].Accuracy = 99.5
	p := Peaks(history)
	assert.Equal(t, 80.0, p.BestWPM)
	assert.Equal(t, 99.5, p.BestAccuracy)
	assert.Equal(t, PeakStats{}, Peaks(nil))
}

func TestEnduranceScore(t *testing.T) {
	history := historyOf(40, 60)
	assert.Equal(t, 50.0, EnduranceScore(history), "no long sessions is neutral")

	history[0].TimeTakenSeconds = 180
	assert.InDelta(t, 80.0, EnduranceScore(history), 1e-9)

	history[0].TimeTakenSeconds = 60
	history[1].TimeTakenSeconds = 121
	assert.Equal(t, 100.0, EnduranceScore(history), "capped at 100")
}

func TestRadarClamps(t *testing.T) {
	fast := historyOf(140, 140)
	r := Radar(fast, -80)
	assert.Equal(t, 100.0, r.Speed)
	assert.Equal(t, 95.0, r.Accuracy)
	assert.Equal(t, 100.0, r.Consistency)
	assert.Equal(t, 50.0, r.Endurance)
	assert.Equal(t, 0.0, r.Improvement)

	r = Radar(historyOf(35), 75)
	assert.Equal(t, 50.0, r.Speed)
	assert.Equal(t, 100.0, r.Improvement)

	empty := Radar(nil, 0)
	for _, v := range []float64{empty.Speed, empty.Accuracy, empty.Consistency, empty.Endurance, empty.Improvement} {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
	}
}

func TestLearningRate(t *testing.T) {
	_, ok := LearningRate(historyOf(repeat(50, 4)...))
	assert.False(t, ok)

	rate, ok := LearningRate(historyOf(append(repeat(55, 10), repeat(50, 10)...)...))
	require.True(t, ok)
	assert.InDelta(t, 10.0, rate, 1e-9)
}

func TestSummarize(t *testing.T) {
	empty := Summarize(nil)
	assert.Equal(t, 0, empty.TotalSessions)
	assert.NotNil(t, empty.History)

	history := historyOf(append(repeat(66, 5), repeat(60, 5)...)...)
	s := Summarize(history)
	assert.Equal(t, 10, s.TotalSessions)
	assert.Equal(t, 63.0, s.AverageWPM)
	assert.Equal(t, 66.0, s.BestWPM)
	assert.Equal(t, 95.0, s.AverageAccuracy)
	assert.Equal(t, 10.0, s.ImprovementRate)
}
