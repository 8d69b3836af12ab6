// Package boardui provides the Bubble Tea live leaderboard interface.
package boardui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/typetrack/internal/model"
	"github.com/verte-zerg/typetrack/internal/refresh"
)

// DefaultRefresh is the polling interval used when Options.Refresh is unset.
const DefaultRefresh = 30 * time.Second

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	liveStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
)

var timeframes = []model.Timeframe{model.AllTime, model.LastDay, model.LastWeek, model.LastMonth}

var timeframeLabels = map[model.Timeframe]string{
	model.AllTime:   "All time",
	model.LastDay:   "Last day",
	model.LastWeek:  "Last week",
	model.LastMonth: "Last month",
}

// Source supplies rankings and the real-time submission feed.
type Source interface {
	Leaderboard(ctx context.Context, q model.LeaderboardQuery) ([]model.LeaderboardEntry, error)
	Subscribe(ctx context.Context) (<-chan model.Update, error)
}

// Options configures the leaderboard screen.
type Options struct {
	Username string
	Query    model.LeaderboardQuery
	Refresh  time.Duration
	Now      func() time.Time
}

type loadedMsg struct {
	tok     refresh.Token
	entries []model.LeaderboardEntry
	err     error
	at      time.Time
}

type tickMsg struct {
	gen int
}

type subscribedMsg struct {
	ch  <-chan model.Update
	err error
}

type updateMsg struct {
	update model.Update
}

type feedClosedMsg struct{}

// Model implements the Bubble Tea leaderboard UI.
type Model struct {
	ctx  context.Context
	src  Source
	opts Options

	query   model.LeaderboardQuery
	seq     refresh.Sequencer
	tickGen int

	entries   []model.LeaderboardEntry
	table     table.Model
	loading   bool
	loadedAt  time.Time
	errMsg    string
	feedErr   string
	updates   <-chan model.Update
	lastEvent *model.Update

	width  int
	height int
}

// NewModel constructs a leaderboard UI model. Fetches and the feed subscription are bound to ctx.
func NewModel(ctx context.Context, src Source, opts Options) *Model {
	if opts.Refresh <= 0 {
		opts.Refresh = DefaultRefresh
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	q := opts.Query
	q.Timeframe = model.ParseTimeframe(string(q.Timeframe))
	if !model.ValidDifficulty(string(q.Difficulty)) {
		q.Difficulty = ""
	}
	m := &Model{
		ctx:   ctx,
		src:   src,
		opts:  opts,
		query: q,
	}
	m.table = newTable()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.fetch(), m.subscribe(), m.scheduleTick())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil
	case loadedMsg:
		if !m.seq.IsLatest(msg.tok) {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.errMsg = fmt.Sprintf("Failed to load leaderboard: %v", msg.err)
			return m, nil
		}
		m.errMsg = ""
		m.entries = msg.entries
		m.loadedAt = msg.at
		m.table.SetRows(buildRows(m.entries, m.opts.Username))
		m.updateLayout()
		return m, nil
	case tickMsg:
		if msg.gen != m.tickGen {
			return m, nil
		}
		return m, tea.Batch(m.fetch(), m.scheduleTick())
	case subscribedMsg:
		if msg.err != nil {
			m.feedErr = fmt.Sprintf("Live updates unavailable: %v", msg.err)
			return m, nil
		}
		m.updates = msg.ch
		return m, waitForUpdate(m.updates)
	case updateMsg:
		u := msg.update
		m.lastEvent = &u
		return m, tea.Batch(m.fetch(), waitForUpdate(m.updates))
	case feedClosedMsg:
		m.updates = nil
		if m.ctx.Err() == nil {
			m.feedErr = "Live updates disconnected."
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" || msg.Type == tea.KeyEsc {
			m.seq.Invalidate()
			return m, tea.Quit
		}
		switch msg.String() {
		case "left", "h":
			m.moveTimeframe(-1)
			return m, m.restart()
		case "right", "l", "tab":
			m.moveTimeframe(1)
			return m, m.restart()
		case "d":
			m.query.Difficulty = nextDifficulty(m.query.Difficulty)
			return m, m.restart()
		case "r":
			return m, m.restart()
		case "g", "home":
			m.table.GotoTop()
			return m, nil
		case "G", "end":
			m.table.GotoBottom()
			return m, nil
		default:
			var cmd tea.Cmd
			m.table, cmd = m.table.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

// Query returns the active filters.
func (m *Model) Query() model.LeaderboardQuery {
	return m.query
}

// Entries returns the rows currently displayed.
func (m *Model) Entries() []model.LeaderboardEntry {
	return m.entries
}

// fetch issues a request tagged with a fresh token; any older response still in flight is
// discarded when it arrives.
func (m *Model) fetch() tea.Cmd {
	tok := m.seq.Next()
	m.loading = true
	ctx, src, q, now := m.ctx, m.src, m.query, m.opts.Now
	return func() tea.Msg {
		entries, err := src.Leaderboard(ctx, q)
		return loadedMsg{tok: tok, entries: entries, err: err, at: now()}
	}
}

// restart refetches and resets the polling timer so the next tick is a full interval away.
func (m *Model) restart() tea.Cmd {
	m.tickGen++
	return tea.Batch(m.fetch(), m.scheduleTick())
}

func (m *Model) scheduleTick() tea.Cmd {
	gen := m.tickGen
	return tea.Tick(m.opts.Refresh, func(time.Time) tea.Msg {
		return tickMsg{gen: gen}
	})
}

func (m *Model) subscribe() tea.Cmd {
	ctx, src := m.ctx, m.src
	return func() tea.Msg {
		ch, err := src.Subscribe(ctx)
		return subscribedMsg{ch: ch, err: err}
	}
}

func waitForUpdate(ch <-chan model.Update) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return feedClosedMsg{}
		}
		return updateMsg{update: u}
	}
}

func (m *Model) moveTimeframe(delta int) {
	idx := 0
	for i, tf := range timeframes {
		if tf == m.query.Timeframe {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(timeframes)) % len(timeframes)
	m.query.Timeframe = timeframes[idx]
}

// nextDifficulty cycles any -> easy -> medium -> hard -> any.
func nextDifficulty(d model.Difficulty) model.Difficulty {
	if d == "" {
		return model.Difficulties[0]
	}
	for i, candidate := range model.Difficulties {
		if candidate == d && i+1 < len(model.Difficulties) {
			return model.Difficulties[i+1]
		}
	}
	return ""
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if m.errMsg != "" || m.feedErr != "" {
		footerHeight++
	}
	if m.lastEvent != nil {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.table.SetWidth(m.width)
	m.table.SetHeight(maxInt(1, bodyHeight-1))
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(timeframes))
	for _, tf := range timeframes {
		label := timeframeLabels[tf]
		if tf == m.query.Timeframe {
			parts = append(parts, activeNavStyle.Render(label))
		} else {
			parts = append(parts, inactiveNavStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	return tabs + "\n" + padLines(m.renderFilterSummary(), m.width)
}

func (m *Model) renderFilterSummary() string {
	difficulty := "any"
	if m.query.Difficulty != "" {
		difficulty = string(m.query.Difficulty)
	}
	limit := "default"
	if m.query.Limit > 0 {
		limit = strconv.Itoa(m.query.Limit)
	}
	updated := "never"
	if !m.loadedAt.IsZero() {
		updated = m.loadedAt.Local().Format("15:04:05")
	}
	if m.loading {
		updated += " (refreshing)"
	}
	summary := fmt.Sprintf("Filters: difficulty=%s  limit=%s  updated=%s", difficulty, limit, updated)
	return headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderBody() string {
	if len(m.entries) == 0 {
		if m.loading && m.loadedAt.IsZero() {
			return "Loading leaderboard..."
		}
		return "No leaderboard entries."
	}
	return m.table.View()
}

func (m *Model) renderFooter() string {
	lines := []string{headerStyle.Render("Timeframe: left/right  Difficulty: d  Refresh: r  Scroll: up/down  Quit: q")}
	if m.lastEvent != nil {
		e := m.lastEvent
		lines = append(lines, liveStyle.Render(truncateLine(
			fmt.Sprintf("Live: %s scored %.2f WPM at %.2f%% (%s)",
				e.User, e.WPM, e.Accuracy, e.Timestamp.Local().Format("15:04:05")), m.width)))
	}
	switch {
	case m.errMsg != "":
		lines = append(lines, errorStyle.Render(m.errMsg))
	case m.feedErr != "":
		lines = append(lines, errorStyle.Render(m.feedErr))
	}
	return strings.Join(lines, "\n")
}

func newTable() table.Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Rank", Width: 5},
			{Title: "User", Width: 20},
			{Title: "Best WPM", Width: 9},
			{Title: "Best Accuracy", Width: 14},
			{Title: "Tests", Width: 6},
			{Title: "Joined", Width: 10},
		}),
		table.WithFocused(true),
		table.WithHeight(1),
	)
	t.SetStyles(tableStyles())
	return t
}

func buildRows(entries []model.LeaderboardEntry, username string) []table.Row {
	rows := make([]table.Row, 0, len(entries))
	for _, e := range entries {
		name := e.Username
		if name == username {
			name += " *"
		}
		rows = append(rows, table.Row{
			strconv.Itoa(e.Rank),
			truncateLine(name, 20),
			fmt.Sprintf("%.2f", e.BestWPM),
			fmt.Sprintf("%.2f%%", e.BestAccuracy),
			strconv.Itoa(e.TotalTests),
			e.CreatedAt.Local().Format("2006-01-02"),
		})
	}
	return rows
}

func tableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
