package model

import (
	"errors"
	"testing"
	"time"
)

func TestParseDifficultyDefaultsToMedium(t *testing.T) {
	cases := map[string]Difficulty{
		"easy":    Easy,
		" HARD ":  Hard,
		"medium":  Medium,
		"":        Medium,
		"extreme": Medium,
	}
	for in, want := range cases {
		if got := ParseDifficulty(in); got != want {
			t.Fatalf("ParseDifficulty(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidateUsername(t *testing.T) {
	for _, name := range []string{"bob", "alice_01", "j.doe-x"} {
		if err := ValidateUsername(name); err != nil {
			t.Fatalf("expected %q to be valid, got %v", name, err)
		}
	}
	for _, name := range []string{"", "ab", "has space", "émile", "abcdefghijklmnopqrstuvwxyz0123456789"} {
		if err := ValidateUsername(name); !errors.Is(err, ErrInvalidUsername) {
			t.Fatalf("expected %q to be rejected, got %v", name, err)
		}
	}
}

func TestTimeframeSince(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	if AllTime.Since(now) != nil {
		t.Fatalf("expected nil since for all-time")
	}
	since := ParseTimeframe("week").Since(now)
	if since == nil || !since.Equal(now.Add(-7*24*time.Hour)) {
		t.Fatalf("unexpected week since: %v", since)
	}
	if ParseTimeframe("bogus") != AllTime {
		t.Fatalf("expected unknown timeframe to default to all")
	}
}

func TestSubmissionValidate(t *testing.T) {
	ok := Submission{WPM: 40, Accuracy: 95, Errors: 2, CharactersTyped: 40, TimeTakenSeconds: 30}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected valid submission, got %v", err)
	}
	bad := []Submission{
		{WPM: -1},
		{Accuracy: 101},
		{Errors: 3, CharactersTyped: 2},
		{TimeTakenSeconds: -5},
	}
	for _, s := range bad {
		if err := s.Validate(); !errors.Is(err, ErrInvalidSubmission) {
			t.Fatalf("expected ErrInvalidSubmission for %+v, got %v", s, err)
		}
	}
}

func TestNewPromptCountsRunes(t *testing.T) {
	p := NewPrompt("café au lait", Easy, "general")
	if p.WordCount != 3 || p.Length != 12 {
		t.Fatalf("unexpected prompt counts: %+v", p)
	}
}
