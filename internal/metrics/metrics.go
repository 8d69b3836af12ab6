// Package metrics converts prompt text, typed text and elapsed time into typing measurements.
package metrics

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Snapshot is the live measurement of a typing attempt.
type Snapshot struct {
	WPM      float64
	Accuracy float64
	Progress float64
	Errors   int
	Elapsed  time.Duration
}

// Initial is the snapshot of an armed test before any input.
func Initial() Snapshot {
	return Snapshot{Accuracy: 100}
}

// Compute measures typed against prompt after elapsed time.
func Compute(prompt, typed string, elapsed time.Duration) Snapshot {
	p := []rune(prompt)
	in := []rune(typed)
	correct := correctRunes(p, in)
	return Snapshot{
		WPM:      WPM(typed, elapsed),
		Accuracy: accuracy(correct, len(p)),
		Progress: progress(len(in), len(p)),
		Errors:   len(in) - correct,
		Elapsed:  elapsed,
	}
}

// Display rounds WPM and accuracy to whole numbers for live display.
func (s Snapshot) Display() Snapshot {
	s.WPM = math.Round(s.WPM)
	s.Accuracy = math.Round(s.Accuracy)
	s.Progress = math.Round(s.Progress)
	return s
}

// Final rounds WPM and accuracy to two decimals for submission.
func (s Snapshot) Final() Snapshot {
	s.WPM = Round2(s.WPM)
	s.Accuracy = Round2(s.Accuracy)
	s.Progress = Round2(s.Progress)
	return s
}

// WordCount counts non-empty whitespace-separated tokens.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// WPM returns words per minute. Zero elapsed time yields 0.
func WPM(typed string, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(WordCount(typed)) / elapsed.Minutes()
}

// CorrectChars counts positions where typed matches prompt.
func CorrectChars(prompt, typed string) int {
	return correctRunes([]rune(prompt), []rune(typed))
}

// Accuracy returns the percentage of prompt characters matched positionally.
func Accuracy(prompt, typed string) float64 {
	p := []rune(prompt)
	return accuracy(correctRunes(p, []rune(typed)), len(p))
}

// Errors counts typed characters that do not match, including overflow past the prompt.
func Errors(prompt, typed string) int {
	in := []rune(typed)
	return len(in) - correctRunes([]rune(prompt), in)
}

// Progress returns completion percentage, capped at 100.
func Progress(prompt, typed string) float64 {
	return progress(len([]rune(typed)), len([]rune(prompt)))
}

// FormatTime renders seconds as m:ss with unbounded minutes.
func FormatTime(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func correctRunes(prompt, typed []rune) int {
	n := min(len(prompt), len(typed))
	correct := 0
	for i := 0; i < n; i++ {
		if typed[i] == prompt[i] {
			correct++
		}
	}
	return correct
}

func accuracy(correct, promptLen int) float64 {
	if promptLen == 0 {
		return 100
	}
	return 100 * float64(correct) / float64(promptLen)
}

func progress(typedLen, promptLen int) float64 {
	if promptLen == 0 {
		return 100
	}
	return math.Min(100, 100*float64(typedLen)/float64(promptLen))
}
