// Package analytics derives statistics from a user's session history.
//
// Every function takes history ordered most-recent-first and is a pure function of it.
// Insufficient data resolves to a neutral default instead of an error.
package analytics

import (
	"math"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"

	"github.com/verte-zerg/typetrack/internal/metrics"
	"github.com/verte-zerg/typetrack/internal/model"
)

const (
	changeWindow        = 5
	changeMinSessions   = 10
	learningWindow      = 10
	learningMinSessions = 5
	enduranceMinSeconds = 120
	neutralEndurance    = 50
	speedReferenceWPM   = 70
)

// Field extracts a numeric metric from a session.
type Field func(model.SessionRecord) float64

// Common fields.
var (
	WPM      Field = func(s model.SessionRecord) float64 { return s.WPM }
	Accuracy Field = func(s model.SessionRecord) float64 { return s.Accuracy }
	Errors   Field = func(s model.SessionRecord) float64 { return float64(s.Errors) }
)

// Values extracts field from every session, preserving order.
func Values(history []model.SessionRecord, field Field) []float64 {
	return lo.Map(history, func(s model.SessionRecord, _ int) float64 { return field(s) })
}

// Mean averages field over history; an empty history yields 0.
func Mean(history []model.SessionRecord, field Field) float64 {
	if len(history) == 0 {
		return 0
	}
	return stat.Mean(Values(history, field), nil)
}

// ChangePercent compares the most recent five sessions against the oldest five and returns the
// rounded percentage change. Fewer than ten sessions yields 0.
func ChangePercent(history []model.SessionRecord, field Field) int {
	if len(history) < changeMinSessions {
		return 0
	}
	return int(math.Round(percentChange(history, field, changeWindow)))
}

// Variance is the population variance of WPM across history.
func Variance(history []model.SessionRecord) float64 {
	if len(history) == 0 {
		return 0
	}
	return stat.PopVariance(Values(history, WPM), nil)
}

// ConsistencyScore maps WPM variance to a 0-100 stability score.
func ConsistencyScore(history []model.SessionRecord) float64 {
	return math.Max(0, 100-Variance(history)/10)
}

// DifficultyStats aggregates sessions of one difficulty.
type DifficultyStats struct {
	Difficulty      model.Difficulty
	Count           int
	AverageWPM      float64
	AverageAccuracy float64
}

// DifficultyBreakdown groups sessions by difficulty. Unknown difficulties count as medium.
// The result always lists easy, medium and hard in that order.
func DifficultyBreakdown(history []model.SessionRecord) []DifficultyStats {
	groups := lo.GroupBy(history, func(s model.SessionRecord) model.Difficulty {
		return model.ParseDifficulty(string(s.Difficulty))
	})
	out := make([]DifficultyStats, 0, len(model.Difficulties))
	for _, d := range model.Difficulties {
		group := groups[d]
		out = append(out, DifficultyStats{
			Difficulty:      d,
			Count:           len(group),
			AverageWPM:      Mean(group, WPM),
			AverageAccuracy: Mean(group, Accuracy),
		})
	}
	return out
}

// PeakStats holds the best values seen.
type PeakStats struct {
	BestWPM      float64
	BestAccuracy float64
}

// Peaks returns the maximum WPM and accuracy across history.
func Peaks(history []model.SessionRecord) PeakStats {
	if len(history) == 0 {
		return PeakStats{}
	}
	return PeakStats{
		BestWPM:      lo.Max(Values(history, WPM)),
		BestAccuracy: lo.Max(Values(history, Accuracy)),
	}
}

// EnduranceScore compares WPM on long sessions (over two minutes) with the overall average.
// Without long sessions the score is a neutral 50.
func EnduranceScore(history []model.SessionRecord) float64 {
	long := lo.Filter(history, func(s model.SessionRecord, _ int) bool {
		return s.TimeTakenSeconds > enduranceMinSeconds
	})
	overall := Mean(history, WPM)
	if len(long) == 0 || overall == 0 {
		return neutralEndurance
	}
	return math.Min(100, 100*Mean(long, WPM)/overall)
}

// RadarScores are five composite dimensions, each in [0, 100].
type RadarScores struct {
	Speed       float64
	Accuracy    float64
	Consistency float64
	Endurance   float64
	Improvement float64
}

// Radar computes composite scores. improvementRate is the summary improvement percentage.
func Radar(history []model.SessionRecord, improvementRate float64) RadarScores {
	return RadarScores{
		Speed:       clampScore(100 * Mean(history, WPM) / speedReferenceWPM),
		Accuracy:    clampScore(Mean(history, Accuracy)),
		Consistency: clampScore(ConsistencyScore(history)),
		Endurance:   clampScore(EnduranceScore(history)),
		Improvement: clampScore(improvementRate + 50),
	}
}

// LearningRate compares mean WPM of the most recent ten sessions with the oldest ten, as a
// percentage. It is undefined (ok is false) with fewer than five sessions.
func LearningRate(history []model.SessionRecord) (rate float64, ok bool) {
	if len(history) < learningMinSessions {
		return 0, false
	}
	return percentChange(history, WPM, learningWindow), true
}

// Summarize computes the scalar analytics for history.
func Summarize(history []model.SessionRecord) model.Analytics {
	if len(history) == 0 {
		return model.Analytics{History: []model.SessionRecord{}}
	}
	peaks := Peaks(history)
	improvement := 0.0
	if len(history) >= changeMinSessions {
		improvement = percentChange(history, WPM, changeWindow)
	}
	return model.Analytics{
		AverageWPM:      metrics.Round2(Mean(history, WPM)),
		BestWPM:         metrics.Round2(peaks.BestWPM),
		AverageAccuracy: metrics.Round2(Mean(history, Accuracy)),
		BestAccuracy:    metrics.Round2(peaks.BestAccuracy),
		TotalSessions:   len(history),
		ImprovementRate: metrics.Round2(improvement),
		History:         history,
	}
}

// percentChange compares the first window sessions with the last window sessions.
func percentChange(history []model.SessionRecord, field Field, window int) float64 {
	window = min(window, len(history))
	recent := Mean(history[:window], field)
	older := Mean(history[len(history)-window:], field)
	if older == 0 {
		return 0
	}
	return 100 * (recent - older) / older
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return lo.Clamp(v, 0, 100)
}
