package generator

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/verte-zerg/typetrack/internal/model"
)

var testWords = []string{"a", "cat", "dog", "house", "elephant", "keyboard", "extraordinary"}

func TestPromptRespectsEasyProfile(t *testing.T) {
	g := NewSeeded(testWords, 7)
	p := g.Prompt(model.Easy)
	if p.Category != WordsCategory || p.Difficulty != model.Easy {
		t.Fatalf("unexpected prompt metadata: %+v", p)
	}
	words := strings.Fields(p.Text)
	if len(words) != Profiles[model.Easy].Words || p.WordCount != len(words) {
		t.Fatalf("expected %d words, got %d (%q)", Profiles[model.Easy].Words, len(words), p.Text)
	}
	for _, w := range words {
		if utf8.RuneCountInString(w) > 5 {
			t.Fatalf("easy prompt contains long word %q", w)
		}
		if strings.ToLower(w) != w {
			t.Fatalf("easy prompt contains capitals: %q", w)
		}
	}
	if p.Length != utf8.RuneCountInString(p.Text) {
		t.Fatalf("length mismatch: %d", p.Length)
	}
}

func TestPromptIsDeterministicForSeed(t *testing.T) {
	a := NewSeeded(testWords, 42).Prompt(model.Hard)
	b := NewSeeded(testWords, 42).Prompt(model.Hard)
	if a.Text != b.Text {
		t.Fatalf("expected identical prompts, got %q and %q", a.Text, b.Text)
	}
}

func TestPromptFallsBackWhenFilterEmpties(t *testing.T) {
	g := NewSeeded([]string{"extraordinary"}, 1)
	p := g.Prompt(model.Easy)
	if !strings.HasPrefix(p.Text, "extraordinary") {
		t.Fatalf("expected fallback to full list, got %q", p.Text)
	}
}

func TestGenerateAppliesCapsAndPunct(t *testing.T) {
	g := NewSeeded([]string{"word"}, 3)
	out := g.Generate([]string{"word"}, 5, 1, 1, []rune{'!'})
	for _, w := range out {
		if w != "Word!" {
			t.Fatalf("expected Word!, got %q", w)
		}
	}
	if got := g.Generate(nil, 3, 0, 0, nil); len(got) != 0 {
		t.Fatalf("expected no words from empty list, got %v", got)
	}
}
