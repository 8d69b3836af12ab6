package analytics

import (
	"time"

	"github.com/verte-zerg/typetrack/internal/model"
	"github.com/verte-zerg/typetrack/internal/trend"
)

// DefaultHistogramBins is the bin count used for the WPM distribution.
const DefaultHistogramBins = 10

// Report bundles every derived statistic for display.
type Report struct {
	Summary         model.Analytics
	WPMChange       int
	AccuracyChange  int
	Variance        float64
	Consistency     float64
	Peaks           PeakStats
	Endurance       float64
	Radar           RadarScores
	Difficulty      []DifficultyStats
	Hours           [24]HourBucket
	BestHour        HourBucket
	HasBestHour     bool
	Grid            [7][24]GridCell
	LearningRate    float64
	HasLearningRate bool

	// Chronological series (oldest first) for trend display.
	WPMSeries        []float64
	AccuracySeries   []float64
	WPMMovingAverage []float64
	WPMFit           trend.Fit
	WPMHistogram     []trend.Bin
}

// Options tunes report construction.
type Options struct {
	Location      *time.Location
	HistogramBins int
	Window        int
}

// Build derives a Report from analytics whose history is most-recent-first.
func Build(a model.Analytics, opts Options) Report {
	if opts.HistogramBins <= 0 {
		opts.HistogramBins = DefaultHistogramBins
	}
	if opts.Window <= 0 {
		opts.Window = trend.DefaultWindow
	}
	history := a.History
	r := Report{
		Summary:        a,
		WPMChange:      ChangePercent(history, WPM),
		AccuracyChange: ChangePercent(history, Accuracy),
		Variance:       Variance(history),
		Consistency:    ConsistencyScore(history),
		Peaks:          Peaks(history),
		Endurance:      EnduranceScore(history),
		Radar:          Radar(history, a.ImprovementRate),
		Difficulty:     DifficultyBreakdown(history),
		Hours:          HourlyPattern(history, opts.Location),
		Grid:           WeekHourGrid(history, opts.Location),
	}
	r.BestHour, r.HasBestHour = BestHour(r.Hours)
	r.LearningRate, r.HasLearningRate = LearningRate(history)

	chrono := Chronological(history)
	r.WPMSeries = Values(chrono, WPM)
	r.AccuracySeries = Values(chrono, Accuracy)
	r.WPMMovingAverage = trend.MovingAverage(r.WPMSeries, opts.Window)
	r.WPMFit = trend.LinearFit(r.WPMSeries)
	r.WPMHistogram = trend.Histogram(r.WPMSeries, opts.HistogramBins)
	return r
}

// Chronological returns a copy of history ordered oldest first.
func Chronological(history []model.SessionRecord) []model.SessionRecord {
	out := make([]model.SessionRecord, len(history))
	for i, s := range history {
		out[len(history)-1-i] = s
	}
	return out
}
