// Package tui provides the Bubble Tea typing interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/typetrack/internal/metrics"
	"github.com/verte-zerg/typetrack/internal/model"
	"github.com/verte-zerg/typetrack/internal/session"
)

// Options configures the typing screen.
type Options struct {
	Username string
	Now      func() time.Time
}

// Model implements the Bubble Tea typing UI on top of a session.Machine.
type Model struct {
	ctx      context.Context
	machine  *session.Machine
	events   *eventQueue
	now      func() time.Time
	username string

	width  int
	height int

	targetRunes []rune
	inputRunes  []rune

	state    session.State
	snapshot metrics.Snapshot
	status   string
	last     *model.SessionRecord
	failed   bool
}

type eventMsg session.Event

// tickMsg is tagged with the machine generation that scheduled it.
type tickMsg struct {
	gen uint64
	at  time.Time
}

type tickDoneMsg struct {
	gen uint64
}

type opDoneMsg struct {
	err error
}

var (
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	statusStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
)

// NewModel wires the screen to machine.
func NewModel(ctx context.Context, machine *session.Machine, opts Options) *Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	m := &Model{
		ctx:      ctx,
		machine:  machine,
		events:   newEventQueue(),
		now:      opts.Now,
		username: opts.Username,
		snapshot: metrics.Initial(),
		status:   "Loading prompt...",
	}
	machine.Subscribe(m.events.push)
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitEvent(), m.startCmd())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case eventMsg:
		return m, tea.Batch(m.applyEvent(session.Event(msg)), m.waitEvent())
	case tickMsg:
		return m, m.handleTick(msg)
	case tickDoneMsg:
		if msg.gen == m.machine.Generation() && m.machine.TimerActive() {
			return m, scheduleTick(msg.gen)
		}
		return m, nil
	case opDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, session.ErrStale) {
			m.status = msg.err.Error()
		}
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return tea.Quit
	case tea.KeyTab:
		return m.startCmd()
	case tea.KeyCtrlD:
		m.machine.SetDifficulty(nextDifficulty(m.machine.Difficulty()))
		return m.startCmd()
	case tea.KeyEnter:
		switch m.state {
		case session.Running:
			return m.opCmd(func(ctx context.Context) error { return m.machine.Submit(ctx, m.now()) })
		case session.Finished, session.Idle:
			return m.startCmd()
		}
		return nil
	case tea.KeyCtrlR:
		if m.failed {
			m.status = "Retrying submission..."
			return m.opCmd(m.machine.Retry)
		}
		return nil
	case tea.KeyBackspace, tea.KeyDelete:
		if len(m.inputRunes) == 0 || !m.typing() {
			return nil
		}
		m.inputRunes = m.inputRunes[:len(m.inputRunes)-1]
		m.machine.Input(string(m.inputRunes), m.now())
		return nil
	case tea.KeySpace:
		m.handleRunes([]rune{' '})
		return nil
	case tea.KeyRunes:
		m.handleRunes(msg.Runes)
		return nil
	default:
		return nil
	}
}

func (m *Model) typing() bool {
	return m.state == session.Armed || m.state == session.Running
}

func (m *Model) handleRunes(runes []rune) {
	if !m.typing() {
		return
	}
	changed := false
	for _, r := range runes {
		if len(m.inputRunes) >= len(m.targetRunes) {
			break
		}
		m.inputRunes = append(m.inputRunes, r)
		changed = true
	}
	if changed {
		m.machine.Input(string(m.inputRunes), m.now())
	}
}

func (m *Model) applyEvent(ev session.Event) tea.Cmd {
	if ev.Generation != m.machine.Generation() {
		return nil
	}
	m.state = ev.State
	m.snapshot = ev.Snapshot
	switch ev.Kind {
	case session.EventArmed:
		m.inputRunes = nil
		m.failed = false
		if live, ok := m.machine.Live(); ok {
			m.targetRunes = []rune(live.Prompt.Text)
			m.status = fmt.Sprintf("%s · start typing", live.Difficulty)
		}
	case session.EventRunning:
		m.status = ""
		return scheduleTick(ev.Generation)
	case session.EventFinished:
		m.status = "Submitting..."
	case session.EventSubmitted:
		m.last = ev.Record
		m.failed = false
		m.status = fmt.Sprintf("Saved %.2f WPM · %.2f%% · enter for the next test", ev.Snapshot.WPM, ev.Snapshot.Accuracy)
	case session.EventSubmitFailed:
		m.failed = true
		m.status = fmt.Sprintf("%v · ctrl+r to retry", ev.Err)
	case session.EventError:
		m.status = fmt.Sprintf("%v · enter to try again", ev.Err)
	case session.EventIdle:
		if m.status == "" {
			m.status = "Press enter to start"
		}
	}
	return nil
}

func (m *Model) handleTick(msg tickMsg) tea.Cmd {
	if msg.gen != m.machine.Generation() || !m.machine.TimerActive() {
		return nil
	}
	ctx, machine := m.ctx, m.machine
	return func() tea.Msg {
		if err := machine.Tick(ctx, msg.at); err != nil && !errors.Is(err, session.ErrStale) {
			return opDoneMsg{err: err}
		}
		return tickDoneMsg{gen: msg.gen}
	}
}

func scheduleTick(gen uint64) tea.Cmd {
	return tea.Tick(session.TickInterval, func(t time.Time) tea.Msg {
		return tickMsg{gen: gen, at: t}
	})
}

func (m *Model) waitEvent() tea.Cmd {
	ctx, events := m.ctx, m.events
	return func() tea.Msg {
		ev, ok := events.wait(ctx)
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}

func (m *Model) startCmd() tea.Cmd {
	m.status = "Loading prompt..."
	return m.opCmd(m.machine.Start)
}

func (m *Model) opCmd(op func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{err: op(ctx)}
	}
}

func nextDifficulty(d model.Difficulty) model.Difficulty {
	for i, candidate := range model.Difficulties {
		if candidate == d {
			return model.Difficulties[(i+1)%len(model.Difficulties)]
		}
	}
	return model.Medium
}

// View implements tea.Model.
func (m *Model) View() string {
	if len(m.targetRunes) == 0 {
		return statusStyle.Render(m.status)
	}
	cursorIndex := -1
	if m.typing() && len(m.inputRunes) < len(m.targetRunes) {
		cursorIndex = len(m.inputRunes)
	}
	if m.width == 0 || m.height == 0 {
		return renderPrompt(m.targetRunes, m.inputRunes, cursorIndex, 0) + "\n" + m.renderFooter()
	}
	contentWidth := max(1, int(float64(m.width)*0.70))
	content := lipgloss.NewStyle().Width(contentWidth).Render(
		renderPrompt(m.targetRunes, m.inputRunes, cursorIndex, max(1, contentWidth-1)))
	if m.status != "" {
		content += "\n\n" + statusStyle.Render(m.status)
	}
	footer := m.renderFooter()
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) renderFooter() string {
	live := m.snapshot.Display()
	if m.state == session.Finished {
		live = m.snapshot
	}
	segments := []string{
		fmt.Sprintf("WPM %s", formatNumber(live.WPM)),
		fmt.Sprintf("Acc %s%%", formatNumber(live.Accuracy)),
		fmt.Sprintf("Progress %.0f%%", live.Progress),
		fmt.Sprintf("Errors %d", live.Errors),
		metrics.FormatTime(int(live.Elapsed / time.Second)),
	}
	if m.last != nil {
		segments = append(segments, fmt.Sprintf("Last %.1f WPM · %.1f%%", m.last.WPM, m.last.Accuracy))
	}
	if m.username != "" {
		segments = append(segments, m.username)
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
