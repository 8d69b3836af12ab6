package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// charState classifies one prompt character against the input typed so far.
type charState int

const (
	charPending charState = iota
	charCurrentWord
	charCorrect
	charIncorrect
	// charMissedSpace is a prompt space where something else was typed; a bare space would hide it.
	charMissedSpace
)

const missedSpaceMark = '•'

type span struct {
	start int
	end   int
}

// classify compares target and input position by position. Untyped characters of the word under
// the cursor are marked charCurrentWord; cursor < 0 means no cursor.
func classify(target, input []rune, cursor int) []charState {
	states := make([]charState, len(target))
	word := currentWord(target, cursor)
	for i, want := range target {
		switch {
		case i < len(input) && input[i] == want:
			states[i] = charCorrect
		case i < len(input) && want == ' ':
			states[i] = charMissedSpace
		case i < len(input):
			states[i] = charIncorrect
		case want != ' ' && i >= word.start && i < word.end:
			states[i] = charCurrentWord
		}
	}
	return states
}

// currentWord returns the word containing the cursor, or the next one when the cursor sits on a
// space. An empty span means there is no such word.
func currentWord(target []rune, cursor int) span {
	if cursor < 0 || cursor >= len(target) {
		return span{}
	}
	start := cursor
	if target[start] == ' ' {
		for start < len(target) && target[start] == ' ' {
			start++
		}
	} else {
		for start > 0 && target[start-1] != ' ' {
			start--
		}
	}
	end := start
	for end < len(target) && target[end] != ' ' {
		end++
	}
	return span{start: start, end: end}
}

// lineBreaks splits target into display lines at most width cells wide, not counting a trailing
// space. Lines break after a space when possible; a word wider than the line is split where it
// overflows.
func lineBreaks(target []rune, width int) []span {
	if width <= 0 || len(target) == 0 {
		return []span{{start: 0, end: len(target)}}
	}
	var lines []span
	start, lineWidth, lastBreak := 0, 0, -1
	for i, r := range target {
		w := runewidth.RuneWidth(r)
		for lineWidth+w > width && i > start && r != ' ' {
			end := i
			if lastBreak > start {
				end = lastBreak
			}
			lines = append(lines, span{start: start, end: end})
			start = end
			lineWidth = runewidth.StringWidth(string(target[start:i]))
			lastBreak = -1
		}
		lineWidth += w
		if r == ' ' {
			lastBreak = i + 1
		}
	}
	return append(lines, span{start: start, end: len(target)})
}

func styleFor(state charState) lipgloss.Style {
	switch state {
	case charCorrect:
		return correctStyle
	case charIncorrect, charMissedSpace:
		return incorrectStyle
	case charCurrentWord:
		return currentWordStyle
	default:
		return pendingStyle
	}
}

// renderPrompt styles every prompt character and wraps the result to width.
func renderPrompt(target, input []rune, cursor, width int) string {
	states := classify(target, input, cursor)
	var b strings.Builder
	for n, line := range lineBreaks(target, width) {
		if n > 0 {
			b.WriteByte('\n')
		}
		for i := line.start; i < line.end; i++ {
			r := target[i]
			if states[i] == charMissedSpace {
				r = missedSpaceMark
			}
			style := styleFor(states[i])
			if i == cursor {
				style = style.Underline(true)
			}
			b.WriteString(style.Render(string(r)))
		}
	}
	return b.String()
}
