// Package stats loads analytics for display and renders them as a text report.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/verte-zerg/typetrack/internal/analytics"
	"github.com/verte-zerg/typetrack/internal/model"
)

// AnalyticsProvider returns a summary of the current user's history.
type AnalyticsProvider interface {
	Analytics(ctx context.Context, q model.AnalyticsQuery) (model.Analytics, error)
}

// LeaderboardProvider ranks users.
type LeaderboardProvider interface {
	Leaderboard(ctx context.Context, q model.LeaderboardQuery) ([]model.LeaderboardEntry, error)
}

// Config selects what a report covers.
type Config struct {
	Query model.AnalyticsQuery
	// Leaderboard is loaded alongside analytics when set.
	Leaderboard   *model.LeaderboardQuery
	HistogramBins int
	Window        int
	Location      *time.Location
}

// Data is everything a report renders.
type Data struct {
	Report      analytics.Report
	Leaderboard []model.LeaderboardEntry
}

// Load fetches analytics and, when configured, the leaderboard concurrently, then derives the
// report. The first failure cancels the other fetch.
func Load(ctx context.Context, ap AnalyticsProvider, lp LeaderboardProvider, cfg Config) (Data, error) {
	var (
		summary model.Analytics
		board   []model.LeaderboardEntry
	)
	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		a, err := ap.Analytics(ctx, cfg.Query)
		if err != nil {
			return fmt.Errorf("failed to load analytics: %w", err)
		}
		summary = a
		return nil
	})
	if cfg.Leaderboard != nil && lp != nil {
		q := *cfg.Leaderboard
		p.Go(func(ctx context.Context) error {
			entries, err := lp.Leaderboard(ctx, q)
			if err != nil {
				return fmt.Errorf("failed to load leaderboard: %w", err)
			}
			board = entries
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return Data{}, err
	}

	return Data{
		Report: analytics.Build(summary, analytics.Options{
			Location:      cfg.Location,
			HistogramBins: cfg.HistogramBins,
			Window:        cfg.Window,
		}),
		Leaderboard: board,
	}, nil
}
