// Package generator builds random word prompts.
package generator

import (
	"math/rand/v2"
	"strings"
	"time"
	"unicode"

	"github.com/verte-zerg/typetrack/internal/model"
	"github.com/verte-zerg/typetrack/internal/wordlist"
)

// WordsCategory is the prompt category served by the generator.
const WordsCategory = "words"

// Profile controls how hard a generated prompt is.
type Profile struct {
	Words    int
	MaxLen   int // 0 means unbounded
	CapsPct  float64
	PunctPct float64
	PunctSet []rune
}

// Profiles maps each difficulty to its generation profile.
var Profiles = map[model.Difficulty]Profile{
	model.Easy:   {Words: 10, MaxLen: 5},
	model.Medium: {Words: 15, MaxLen: 8, CapsPct: 0.1, PunctPct: 0.1, PunctSet: []rune(".,")},
	model.Hard:   {Words: 20, CapsPct: 0.3, PunctPct: 0.3, PunctSet: []rune(".,;:!?")},
}

// Generator produces randomized typing text.
type Generator struct {
	rnd   *rand.Rand
	words []string
}

// New returns a Generator over words seeded with the current time.
func New(words []string) *Generator {
	return NewSeeded(words, uint64(time.Now().UnixNano()))
}

// NewSeeded returns a deterministic Generator.
func NewSeeded(words []string, seed uint64) *Generator {
	return &Generator{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), words: words}
}

// Generate selects count words uniformly and applies caps/punctuation rules.
func (g *Generator) Generate(words []string, count int, capsPct, punctPct float64, punctSet []rune) []string {
	result := make([]string, 0, count)
	if len(words) == 0 {
		return result
	}
	for i := 0; i < count; i++ {
		word := words[g.rnd.IntN(len(words))]
		word = applyCaps(g.rnd, word, capsPct)
		word = applyPunct(g.rnd, word, punctPct, punctSet)
		result = append(result, word)
	}
	return result
}

// Prompt builds a words-category prompt for difficulty. When the length filter leaves nothing,
// the full word list is used.
func (g *Generator) Prompt(difficulty model.Difficulty) model.Prompt {
	d := model.ParseDifficulty(string(difficulty))
	p := Profiles[d]
	pool := g.words
	if p.MaxLen > 0 {
		if short := wordlist.Filter(g.words, wordlist.MaxLength(p.MaxLen)); len(short) > 0 {
			pool = short
		}
	}
	text := strings.Join(g.Generate(pool, p.Words, p.CapsPct, p.PunctPct, p.PunctSet), " ")
	return model.NewPrompt(text, d, WordsCategory)
}

func applyCaps(rnd *rand.Rand, word string, capsPct float64) string {
	if capsPct <= 0 {
		return word
	}
	if rnd.Float64() > capsPct {
		return word
	}
	runes := []rune(word)
	if len(runes) == 0 {
		return word
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func applyPunct(rnd *rand.Rand, word string, punctPct float64, punctSet []rune) string {
	if punctPct <= 0 || len(punctSet) == 0 {
		return word
	}
	if rnd.Float64() > punctPct {
		return word
	}
	punct := punctSet[rnd.IntN(len(punctSet))]
	return word + string(punct)
}
