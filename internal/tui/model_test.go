package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/typetrack/internal/metrics"
	"github.com/verte-zerg/typetrack/internal/model"
	"github.com/verte-zerg/typetrack/internal/session"
)

type stubProvider struct {
	text      string
	submitted []model.Submission
	submitErr error
}

func (s *stubProvider) FetchPrompt(_ context.Context, d model.Difficulty, _ string) (model.Prompt, error) {
	return model.NewPrompt(s.text, d, "general"), nil
}

func (s *stubProvider) Submit(_ context.Context, sub model.Submission) (model.SessionRecord, error) {
	if s.submitErr != nil {
		return model.SessionRecord{}, s.submitErr
	}
	s.submitted = append(s.submitted, sub)
	return model.SessionRecord{ID: "rec-1", WPM: sub.WPM, Accuracy: sub.Accuracy}, nil
}

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

func newTestModel(t *testing.T, text string) (*Model, *stubProvider, *clock) {
	t.Helper()
	sp := &stubProvider{text: text}
	clk := &clock{t: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	machine := session.New(sp, sp, session.Options{Difficulty: model.Easy})
	m := NewModel(context.Background(), machine, Options{Username: "alice", Now: clk.now})
	if err := machine.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	drain(m)
	return m, sp, clk
}

// drain applies every queued machine event and returns the commands they produced.
func drain(m *Model) []tea.Cmd {
	var cmds []tea.Cmd
	for {
		ev, ok := m.events.tryPop()
		if !ok {
			return cmds
		}
		cmds = append(cmds, m.applyEvent(ev))
	}
}

func typeText(m *Model, s string) {
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func TestArmedShowsPrompt(t *testing.T) {
	m, _, _ := newTestModel(t, "one two")
	if string(m.targetRunes) != "one two" {
		t.Fatalf("unexpected target: %q", string(m.targetRunes))
	}
	if m.state != session.Armed {
		t.Fatalf("expected armed, got %s", m.state)
	}
	if !strings.Contains(m.status, "easy") {
		t.Fatalf("expected difficulty in status, got %q", m.status)
	}
}

func TestFirstKeyStartsTimer(t *testing.T) {
	m, _, _ := newTestModel(t, "abc")
	typeText(m, "a")
	cmds := drain(m)
	if m.state != session.Running {
		t.Fatalf("expected running, got %s", m.state)
	}
	scheduled := false
	for _, cmd := range cmds {
		if cmd != nil {
			scheduled = true
		}
	}
	if !scheduled {
		t.Fatalf("expected a tick to be scheduled")
	}
}

func TestTypingStopsAtPromptLength(t *testing.T) {
	m, _, _ := newTestModel(t, "ab")
	typeText(m, "abcd")
	drain(m)
	if string(m.inputRunes) != "ab" {
		t.Fatalf("expected input capped at prompt length, got %q", string(m.inputRunes))
	}
	m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	drain(m)
	if string(m.inputRunes) != "a" {
		t.Fatalf("expected backspace to remove a rune, got %q", string(m.inputRunes))
	}
	live, _ := m.machine.Live()
	if live.Input != "a" {
		t.Fatalf("machine input out of sync: %q", live.Input)
	}
}

func TestStaleTickIsDropped(t *testing.T) {
	m, _, clk := newTestModel(t, "abc")
	typeText(m, "a")
	drain(m)
	gen := m.machine.Generation()

	if cmd := m.handleTick(tickMsg{gen: gen - 1, at: clk.t.Add(time.Second)}); cmd != nil {
		t.Fatalf("expected stale tick to be dropped")
	}
	if cmd := m.handleTick(tickMsg{gen: gen, at: clk.t.Add(time.Second)}); cmd == nil {
		t.Fatalf("expected current tick to run")
	}
}

func TestTickCompletesAndSubmits(t *testing.T) {
	m, sp, clk := newTestModel(t, "abc")
	typeText(m, "abc")
	drain(m)
	gen := m.machine.Generation()

	cmd := m.handleTick(tickMsg{gen: gen, at: clk.t.Add(time.Second)})
	if cmd == nil {
		t.Fatalf("expected tick command")
	}
	msg := cmd()
	if done, ok := msg.(tickDoneMsg); !ok || done.gen != gen {
		t.Fatalf("unexpected tick result: %#v", msg)
	}
	drain(m)
	if m.state != session.Finished || m.last == nil {
		t.Fatalf("expected finished with record, got %s %+v", m.state, m.last)
	}
	if len(sp.submitted) != 1 || sp.submitted[0].WPM != 60 {
		t.Fatalf("unexpected submissions: %+v", sp.submitted)
	}
	if _, next := m.Update(tickDoneMsg{gen: gen}); next != nil {
		t.Fatalf("expected no further ticks once finished")
	}
	if !strings.Contains(m.status, "Saved 60.00 WPM") {
		t.Fatalf("unexpected status: %q", m.status)
	}
}

func TestFailedSubmitOffersRetry(t *testing.T) {
	m, sp, clk := newTestModel(t, "ab")
	sp.submitErr = errors.New("offline")
	typeText(m, "ab")
	drain(m)
	if err := m.machine.Submit(context.Background(), clk.t.Add(2*time.Second)); err == nil {
		t.Fatalf("expected submit error")
	}
	drain(m)
	if !m.failed || !strings.Contains(m.status, "ctrl+r") {
		t.Fatalf("expected retry hint, got %q", m.status)
	}

	sp.submitErr = nil
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	if cmd == nil {
		t.Fatalf("expected retry command")
	}
	if done := cmd().(opDoneMsg); done.err != nil {
		t.Fatalf("retry failed: %v", done.err)
	}
	drain(m)
	if m.failed || m.last == nil {
		t.Fatalf("expected successful retry")
	}
}

func TestNextDifficultyCycles(t *testing.T) {
	if nextDifficulty(model.Easy) != model.Medium || nextDifficulty(model.Hard) != model.Easy {
		t.Fatalf("unexpected difficulty cycle")
	}
}

func TestRenderFooterFormats(t *testing.T) {
	m := &Model{
		state: session.Running,
		snapshot: metrics.Snapshot{
			WPM:      72.4,
			Accuracy: 97.8,
			Progress: 50,
			Errors:   2,
			Elapsed:  83 * time.Second,
		},
		last:     &model.SessionRecord{WPM: 68.1, Accuracy: 96.9},
		username: "alice",
	}
	out := m.renderFooter()
	if !containsAll(out, []string{"WPM 72", "Acc 98%", "Progress 50%", "Errors 2", "1:23", "Last 68.1 WPM", "96.9%", "alice"}) {
		t.Fatalf("footer missing expected segments: %s", out)
	}

	m.state = session.Finished
	if out := m.renderFooter(); !strings.Contains(out, "WPM 72.40") {
		t.Fatalf("expected unrounded final wpm, got %s", out)
	}
}

func containsAll(haystack string, needles []string) bool {
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}
