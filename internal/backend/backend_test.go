package backend

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/typetrack/internal/feed"
	"github.com/verte-zerg/typetrack/internal/generator"
	"github.com/verte-zerg/typetrack/internal/model"
	"github.com/verte-zerg/typetrack/internal/store"
)

var fixedNow = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

func newTestService(t *testing.T, hub *feed.Hub) *Service {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "typetrack.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	opts := Options{Now: func() time.Time { return fixedNow }}
	if hub != nil {
		opts.Feed = hub
	}
	return New(st, opts)
}

func submission(wpm, accuracy float64, d model.Difficulty) model.Submission {
	return model.Submission{
		WPM:              wpm,
		Accuracy:         accuracy,
		Difficulty:       d,
		Errors:           2,
		CharactersTyped:  50,
		TimeTakenSeconds: 20,
	}
}

func TestSubmitStoresAndPublishes(t *testing.T) {
	hub := feed.NewHub()
	svc := newTestService(t, hub)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, err := svc.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	rec, err := svc.Submit(ctx, "alice", submission(62.5, 97, model.Hard))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if rec.ID == "" || !rec.Timestamp.Equal(fixedNow) {
		t.Fatalf("unexpected record: %+v", rec)
	}

	select {
	case u := <-updates:
		if u.User != "alice" || u.WPM != 62.5 || u.Accuracy != 97 {
			t.Fatalf("unexpected update: %+v", u)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected a live update")
	}

	got, err := svc.Session(ctx, "alice", rec.ID)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if got.ID != rec.ID || got.Difficulty != model.Hard {
		t.Fatalf("unexpected session: %+v", got)
	}
	if _, err := svc.Session(ctx, "bob", rec.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another user, got %v", err)
	}
}

func TestSubmitRejectsInvalid(t *testing.T) {
	svc := newTestService(t, nil)
	bad := submission(50, 120, model.Easy)
	if _, err := svc.Submit(context.Background(), "alice", bad); !errors.Is(err, model.ErrInvalidSubmission) {
		t.Fatalf("expected ErrInvalidSubmission, got %v", err)
	}
	if _, err := svc.Submit(context.Background(), "x", submission(50, 90, model.Easy)); !errors.Is(err, model.ErrInvalidUsername) {
		t.Fatalf("expected ErrInvalidUsername, got %v", err)
	}
}

func TestAnalyticsSummarizesHistory(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	for _, wpm := range []float64{40, 50, 60} {
		if _, err := svc.Submit(ctx, "alice", submission(wpm, 90, model.Medium)); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	if _, err := svc.Submit(ctx, "alice", submission(80, 100, model.Easy)); err != nil {
		t.Fatalf("submit: %v", err)
	}

	all, err := svc.Analytics(ctx, "alice", model.AnalyticsQuery{})
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if all.TotalSessions != 4 || all.BestWPM != 80 || all.AverageWPM != 57.5 {
		t.Fatalf("unexpected analytics: %+v", all)
	}

	medium, err := svc.Analytics(ctx, "alice", model.AnalyticsQuery{Difficulty: model.Medium})
	if err != nil {
		t.Fatalf("medium analytics: %v", err)
	}
	if medium.TotalSessions != 3 || medium.BestWPM != 60 {
		t.Fatalf("unexpected medium analytics: %+v", medium)
	}

	empty, err := svc.Analytics(ctx, "newcomer", model.AnalyticsQuery{})
	if err != nil {
		t.Fatalf("empty analytics: %v", err)
	}
	if empty.TotalSessions != 0 || empty.History == nil {
		t.Fatalf("unexpected empty analytics: %+v", empty)
	}
}

func TestLeaderboardDefaultsAndRanking(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	for name, wpm := range map[string]float64{"alice": 70, "bob": 85, "carol": 55} {
		if _, err := svc.Submit(ctx, name, submission(wpm, 95, model.Medium)); err != nil {
			t.Fatalf("submit %s: %v", name, err)
		}
	}
	entries, err := svc.Leaderboard(ctx, model.LeaderboardQuery{Timeframe: "bogus", Difficulty: "extreme"})
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Username != "bob" || entries[2].Username != "carol" || entries[2].Rank != 3 {
		t.Fatalf("unexpected ranking: %+v", entries)
	}
}

func TestNormalizeLeaderboardQuery(t *testing.T) {
	q := NormalizeLeaderboardQuery(model.LeaderboardQuery{Timeframe: "WEEK", Difficulty: "nope"})
	if q.Timeframe != model.LastWeek || q.Difficulty != "" || q.Limit != DefaultLeaderboardLimit {
		t.Fatalf("unexpected query: %+v", q)
	}
}

func TestPromptCategories(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	p, err := svc.Prompt(ctx, "", "")
	if err != nil {
		t.Fatalf("prompt: %v", err)
	}
	if p.Category != store.DefaultCategory || p.Difficulty != model.Medium || p.Text == "" {
		t.Fatalf("unexpected catalog prompt: %+v", p)
	}

	words, err := svc.Prompt(ctx, model.Easy, generator.WordsCategory)
	if err != nil {
		t.Fatalf("words prompt: %v", err)
	}
	if words.Category != generator.WordsCategory || words.WordCount != 10 {
		t.Fatalf("unexpected words prompt: %+v", words)
	}

	if err := svc.AddPrompt(ctx, "custom text", model.Hard, generator.WordsCategory); err == nil {
		t.Fatalf("expected words category to reject custom prompts")
	}
	if err := svc.AddPrompt(ctx, "pack my box with five dozen liquor jugs", model.Hard, "pangrams"); err != nil {
		t.Fatalf("add prompt: %v", err)
	}
	custom, err := svc.Prompt(ctx, model.Hard, "pangrams")
	if err != nil {
		t.Fatalf("custom prompt: %v", err)
	}
	if !strings.HasPrefix(custom.Text, "pack my box") {
		t.Fatalf("unexpected custom prompt: %+v", custom)
	}
}

func TestUserServiceBindsName(t *testing.T) {
	svc := newTestService(t, nil)
	if _, err := svc.For("a"); !errors.Is(err, model.ErrInvalidUsername) {
		t.Fatalf("expected ErrInvalidUsername, got %v", err)
	}
	us, err := svc.For("dave")
	if err != nil {
		t.Fatalf("for: %v", err)
	}
	rec, err := us.Submit(context.Background(), submission(45, 88, model.Easy))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	got, err := us.Session(context.Background(), rec.ID)
	if err != nil || got.WPM != 45 {
		t.Fatalf("unexpected session %+v, err %v", got, err)
	}
}
