// Package model defines shared data structures.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidUsername is returned when a username fails validation.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrInvalidSubmission is returned when submitted metrics are out of range.
	ErrInvalidSubmission = errors.New("invalid submission")
)

// Difficulty is the prompt difficulty level.
type Difficulty string

// Supported difficulties.
const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Difficulties lists the supported levels in ascending order.
var Difficulties = []Difficulty{Easy, Medium, Hard}

// ParseDifficulty normalizes s, defaulting missing or unknown values to Medium.
func ParseDifficulty(s string) Difficulty {
	switch Difficulty(strings.ToLower(strings.TrimSpace(s))) {
	case Easy:
		return Easy
	case Hard:
		return Hard
	default:
		return Medium
	}
}

// ValidDifficulty reports whether s names a supported difficulty exactly.
func ValidDifficulty(s string) bool {
	switch Difficulty(s) {
	case Easy, Medium, Hard:
		return true
	}
	return false
}

// SessionRecord is one completed typing attempt. Records are immutable once created.
type SessionRecord struct {
	ID               string     `json:"id"`
	Timestamp        time.Time  `json:"timestamp"`
	WPM              float64    `json:"wpm"`
	Accuracy         float64    `json:"accuracy"`
	Difficulty       Difficulty `json:"difficulty"`
	Errors           int        `json:"errors"`
	TimeTakenSeconds float64    `json:"time_taken"`
	CharactersTyped  int        `json:"characters_typed"`
}

// Prompt is the target text for one attempt.
type Prompt struct {
	Text       string     `json:"prompt"`
	WordCount  int        `json:"word_count"`
	Length     int        `json:"length"`
	Difficulty Difficulty `json:"difficulty"`
	Category   string     `json:"category"`
}

// NewPrompt builds a Prompt, counting words and runes of text.
func NewPrompt(text string, difficulty Difficulty, category string) Prompt {
	return Prompt{
		Text:       text,
		WordCount:  len(strings.Fields(text)),
		Length:     utf8.RuneCountInString(text),
		Difficulty: difficulty,
		Category:   category,
	}
}

// Submission is the payload handed to a submission sink when a test finishes.
type Submission struct {
	WPM              float64    `json:"wpm"`
	Accuracy         float64    `json:"accuracy"`
	Difficulty       Difficulty `json:"difficulty"`
	Errors           int        `json:"errors"`
	CharactersTyped  int        `json:"characters_typed"`
	TimeTakenSeconds float64    `json:"time_taken"`
}

// Validate checks the ranges and the errors-versus-characters invariant.
func (s Submission) Validate() error {
	switch {
	case s.WPM < 0 || s.TimeTakenSeconds < 0:
		return fmt.Errorf("%w: negative wpm or time", ErrInvalidSubmission)
	case s.Accuracy < 0 || s.Accuracy > 100:
		return fmt.Errorf("%w: accuracy %.2f outside [0, 100]", ErrInvalidSubmission, s.Accuracy)
	case s.Errors < 0 || s.CharactersTyped < 0 || s.Errors > s.CharactersTyped:
		return fmt.Errorf("%w: %d errors for %d characters", ErrInvalidSubmission, s.Errors, s.CharactersTyped)
	}
	return nil
}

// LiveSession is the mutable state of one active test.
type LiveSession struct {
	Prompt     Prompt
	Difficulty Difficulty
	Category   string
	// StartedAt is nil while the test is armed but no key has been typed.
	StartedAt *time.Time
	Input     string
}

// Analytics summarizes a window of session history.
type Analytics struct {
	AverageWPM      float64         `json:"average_wpm"`
	BestWPM         float64         `json:"best_wpm"`
	AverageAccuracy float64         `json:"average_accuracy"`
	BestAccuracy    float64         `json:"best_accuracy"`
	TotalSessions   int             `json:"total_sessions"`
	ImprovementRate float64         `json:"improvement_rate"`
	History         []SessionRecord `json:"history"`
}

// LeaderboardEntry is one ranked user.
type LeaderboardEntry struct {
	Username     string    `json:"username"`
	Rank         int       `json:"rank"`
	BestWPM      float64   `json:"best_wpm"`
	BestAccuracy float64   `json:"best_accuracy"`
	TotalTests   int       `json:"total_tests"`
	CreatedAt    time.Time `json:"created_at"`
}

// Update is a real-time event published after every submission.
type Update struct {
	User      string    `json:"user"`
	WPM       float64   `json:"wpm"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

// User identifies a trainee.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// AnalyticsQuery filters the history used for analytics.
type AnalyticsQuery struct {
	Difficulty Difficulty
	Since      *time.Time
	Limit      int
}

// Timeframe restricts leaderboard results to recent sessions.
type Timeframe string

// Supported timeframes.
const (
	AllTime   Timeframe = "all"
	LastDay   Timeframe = "day"
	LastWeek  Timeframe = "week"
	LastMonth Timeframe = "month"
)

// ParseTimeframe normalizes s, defaulting unknown values to AllTime.
func ParseTimeframe(s string) Timeframe {
	switch Timeframe(strings.ToLower(strings.TrimSpace(s))) {
	case LastDay:
		return LastDay
	case LastWeek:
		return LastWeek
	case LastMonth:
		return LastMonth
	default:
		return AllTime
	}
}

// Since returns the earliest timestamp included by the timeframe, or nil for AllTime.
func (t Timeframe) Since(now time.Time) *time.Time {
	var d time.Duration
	switch t {
	case LastDay:
		d = 24 * time.Hour
	case LastWeek:
		d = 7 * 24 * time.Hour
	case LastMonth:
		d = 30 * 24 * time.Hour
	default:
		return nil
	}
	since := now.Add(-d)
	return &since
}

// LeaderboardQuery filters leaderboard results.
type LeaderboardQuery struct {
	Timeframe  Timeframe
	Difficulty Difficulty
	Limit      int
}

// ValidateUsername rejects missing, short or malformed usernames.
func ValidateUsername(name string) error {
	if len(name) < 3 || len(name) > 32 {
		return ErrInvalidUsername
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == '-', r == '.':
		default:
			return ErrInvalidUsername
		}
	}
	return nil
}
