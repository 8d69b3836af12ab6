// Package backend serves prompts, submissions, analytics and leaderboards from the local store,
// with an optional Redis cache and a live update feed.
package backend

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/verte-zerg/typetrack/internal/analytics"
	"github.com/verte-zerg/typetrack/internal/cache"
	"github.com/verte-zerg/typetrack/internal/feed"
	"github.com/verte-zerg/typetrack/internal/generator"
	"github.com/verte-zerg/typetrack/internal/model"
	"github.com/verte-zerg/typetrack/internal/refresh"
	"github.com/verte-zerg/typetrack/internal/store"
	"github.com/verte-zerg/typetrack/internal/wordlist"
)

// DefaultLeaderboardLimit is used when a leaderboard query carries no limit.
const DefaultLeaderboardLimit = 10

// Options configures optional collaborators. Zero values are usable.
type Options struct {
	// Cache may be nil to disable caching.
	Cache *cache.Cache
	// Feed defaults to an in-process hub.
	Feed feed.Feed
	// Words backs the words category; defaults to the embedded list.
	Words []string
	Now   func() time.Time
}

// Service is shared by every user of one store.
type Service struct {
	store *store.Store
	cache *cache.Cache
	feed  feed.Feed
	now   func() time.Time

	genMu sync.Mutex
	gen   *generator.Generator

	leaderboards refresh.Coalescer[[]model.LeaderboardEntry]
	// submits advances before each invalidation so reads that began earlier are never shared with
	// reads that begin later.
	submits         atomic.Uint64
	readLeaderboard func(context.Context, model.LeaderboardQuery, time.Time) ([]model.LeaderboardEntry, error)
}

func New(st *store.Store, opts Options) *Service {
	if opts.Feed == nil {
		opts.Feed = feed.NewHub()
	}
	if len(opts.Words) == 0 {
		opts.Words = wordlist.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store: st,
		cache: opts.Cache,
		feed:  opts.Feed,
		now:   opts.Now,
		gen:   generator.New(opts.Words),

		readLeaderboard: st.Leaderboard,
	}
}

// Prompt returns a prompt of the given difficulty. The words category is generated, every other
// category comes from the prompt catalog through the cache.
func (s *Service) Prompt(ctx context.Context, difficulty model.Difficulty, category string) (model.Prompt, error) {
	d := model.ParseDifficulty(string(difficulty))
	category = strings.TrimSpace(category)
	if category == "" {
		category = store.DefaultCategory
	}
	if category == generator.WordsCategory {
		s.genMu.Lock()
		defer s.genMu.Unlock()
		return s.gen.Prompt(d), nil
	}

	key := cache.PromptKey(d, category)
	var cached model.Prompt
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		logWarn("Prompt cache read failed: %v", err)
	}
	if found {
		return cached, nil
	}

	p, err := s.store.RandomPrompt(ctx, d, category)
	if err != nil {
		return model.Prompt{}, err
	}
	if err := s.cache.Set(ctx, key, p, cache.PromptTTL); err != nil {
		logWarn("Prompt cache write failed: %v", err)
	}
	return p, nil
}

// Submit validates and stores a finished test, then invalidates cached leaderboards and
// publishes a live update.
func (s *Service) Submit(ctx context.Context, username string, sub model.Submission) (model.SessionRecord, error) {
	if err := sub.Validate(); err != nil {
		return model.SessionRecord{}, err
	}
	u, err := s.store.EnsureUser(ctx, username)
	if err != nil {
		return model.SessionRecord{}, err
	}
	rec, err := s.store.InsertSession(ctx, u.ID, sub, s.now())
	if err != nil {
		return model.SessionRecord{}, err
	}

	s.submits.Add(1)
	if err := s.cache.InvalidateLeaderboards(ctx); err != nil {
		logWarn("Leaderboard cache invalidation failed: %v", err)
	}
	update := model.Update{
		User:      u.Username,
		WPM:       rec.WPM,
		Accuracy:  rec.Accuracy,
		Timestamp: rec.Timestamp,
	}
	if err := s.feed.Publish(ctx, update); err != nil {
		logWarn("Leaderboard update publish failed: %v", err)
	}
	logInfo("Session %s stored for %s: %.2f wpm, %.2f%% accuracy", rec.ID, u.Username, rec.WPM, rec.Accuracy)
	return rec, nil
}

// Analytics summarizes the user's history matching q.
func (s *Service) Analytics(ctx context.Context, username string, q model.AnalyticsQuery) (model.Analytics, error) {
	u, err := s.store.EnsureUser(ctx, username)
	if err != nil {
		return model.Analytics{}, err
	}
	if q.Difficulty != "" && !model.ValidDifficulty(string(q.Difficulty)) {
		q.Difficulty = ""
	}
	history, err := s.store.History(ctx, u.ID, q)
	if err != nil {
		return model.Analytics{}, err
	}
	return analytics.Summarize(history), nil
}

// Leaderboard ranks users. Identical concurrent queries share one store read, and results are
// cached until the next submission. A read issued after a submission returns never joins or
// reuses a read that began before it.
func (s *Service) Leaderboard(ctx context.Context, q model.LeaderboardQuery) ([]model.LeaderboardEntry, error) {
	q = NormalizeLeaderboardQuery(q)
	submits := s.submits.Load()

	cacheable := true
	epoch, err := s.cache.LeaderboardEpoch(ctx)
	if err != nil {
		logWarn("Leaderboard cache epoch read failed: %v", err)
		cacheable = false
	}
	key := cache.LeaderboardKey(q, epoch)

	if cacheable {
		var cached []model.LeaderboardEntry
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			logWarn("Leaderboard cache read failed: %v", err)
		}
		if found {
			return cached, nil
		}
	}

	flight := fmt.Sprintf("%d/%s", submits, key)
	entries, _, err := s.leaderboards.Do(ctx, flight, func(ctx context.Context) ([]model.LeaderboardEntry, error) {
		entries, err := s.readLeaderboard(ctx, q, s.now())
		if err != nil {
			return nil, err
		}
		if !cacheable {
			return entries, nil
		}
		if err := s.cache.Set(ctx, key, entries, cache.LeaderboardTTL); err != nil {
			logWarn("Leaderboard cache write failed: %v", err)
		}
		return entries, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}
	return entries, nil
}

// NormalizeLeaderboardQuery applies the default timeframe and limit and drops unknown difficulties.
func NormalizeLeaderboardQuery(q model.LeaderboardQuery) model.LeaderboardQuery {
	q.Timeframe = model.ParseTimeframe(string(q.Timeframe))
	if q.Difficulty != "" && !model.ValidDifficulty(string(q.Difficulty)) {
		q.Difficulty = ""
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLeaderboardLimit
	}
	return q
}

// Session looks up one of the user's sessions by ID.
func (s *Service) Session(ctx context.Context, username, id string) (model.SessionRecord, error) {
	u, err := s.store.EnsureUser(ctx, username)
	if err != nil {
		return model.SessionRecord{}, err
	}
	return s.store.Session(ctx, u.ID, id)
}

// Subscribe streams leaderboard updates until ctx is done.
func (s *Service) Subscribe(ctx context.Context) (<-chan model.Update, error) {
	return s.feed.Subscribe(ctx)
}

// AddPrompt stores a custom catalog prompt.
func (s *Service) AddPrompt(ctx context.Context, text string, difficulty model.Difficulty, category string) error {
	if category == generator.WordsCategory {
		return fmt.Errorf("category %q is generated and cannot hold custom prompts", category)
	}
	if err := s.store.AddPrompt(ctx, text, model.ParseDifficulty(string(difficulty)), category); err != nil {
		return fmt.Errorf("failed to add prompt: %w", err)
	}
	return nil
}

// For binds the service to one user.
func (s *Service) For(username string) (*UserService, error) {
	if err := model.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("%w: %q", err, username)
	}
	return &UserService{svc: s, username: username}, nil
}

// UserService is the per-user view of a Service used by the typing screen, reports and the
// leaderboard screen.
type UserService struct {
	svc      *Service
	username string
}

func (u *UserService) Username() string {
	return u.username
}

func (u *UserService) FetchPrompt(ctx context.Context, difficulty model.Difficulty, category string) (model.Prompt, error) {
	return u.svc.Prompt(ctx, difficulty, category)
}

func (u *UserService) Submit(ctx context.Context, sub model.Submission) (model.SessionRecord, error) {
	return u.svc.Submit(ctx, u.username, sub)
}

func (u *UserService) Analytics(ctx context.Context, q model.AnalyticsQuery) (model.Analytics, error) {
	return u.svc.Analytics(ctx, u.username, q)
}

func (u *UserService) Leaderboard(ctx context.Context, q model.LeaderboardQuery) ([]model.LeaderboardEntry, error) {
	return u.svc.Leaderboard(ctx, q)
}

func (u *UserService) Session(ctx context.Context, id string) (model.SessionRecord, error) {
	return u.svc.Session(ctx, u.username, id)
}

func (u *UserService) Subscribe(ctx context.Context) (<-chan model.Update, error) {
	return u.svc.Subscribe(ctx)
}
