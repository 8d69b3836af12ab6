package stats

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/verte-zerg/typetrack/internal/analytics"
	"github.com/verte-zerg/typetrack/internal/model"
	"github.com/verte-zerg/typetrack/internal/trend"
)

const (
	heatChars   = " .:-=+*#%@"
	barWidth    = 30
	radarWidth  = 20
	shortIDSize = 8
)

var weekdays = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// RenderOptions controls report layout.
type RenderOptions struct {
	// Width is the total output width; zero uses the terminal width.
	Width int
	// Height is the plot height in rows.
	Height int
	Color  bool
	// Username highlights the current user on the leaderboard.
	Username string
}

// printer remembers the first write error so sections can print without checking every line.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) println(args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintln(p.w, args...)
}

func (p *printer) heading(title string, useColor bool) {
	if p.err != nil {
		return
	}
	c := color.New(color.FgCyan, color.Bold)
	if useColor {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	_, p.err = c.Fprintln(p.w, title)
}

// Render writes the full report.
func Render(w io.Writer, d Data, opts RenderOptions) error {
	r := d.Report
	if r.Summary.TotalSessions == 0 {
		p := &printer{w: w}
		p.println("No sessions found.")
		if p.err != nil {
			return p.err
		}
		if len(d.Leaderboard) > 0 {
			p.println()
			return renderLeaderboard(p, d.Leaderboard, opts)
		}
		return p.err
	}

	sections := []func(*printer, Data, RenderOptions) error{
		renderSummary,
		renderTrend,
		renderDistribution,
		renderDifficulty,
		renderTimeOfDay,
		renderRadar,
	}
	p := &printer{w: w}
	for i, section := range sections {
		if i > 0 {
			p.println()
		}
		if err := section(p, d, opts); err != nil {
			return err
		}
	}
	if len(d.Leaderboard) > 0 {
		p.println()
		return renderLeaderboard(p, d.Leaderboard, opts)
	}
	return p.err
}

func renderSummary(p *printer, d Data, opts RenderOptions) error {
	r := d.Report
	s := r.Summary
	p.heading("Summary", opts.Color)
	p.printf("Sessions:          %d\n", s.TotalSessions)
	p.printf("Average WPM:       %.2f (%+d%% vs previous)\n", s.AverageWPM, r.WPMChange)
	p.printf("Best WPM:          %.2f\n", s.BestWPM)
	p.printf("Average accuracy:  %.2f%% (%+d%% vs previous)\n", s.AverageAccuracy, r.AccuracyChange)
	p.printf("Best accuracy:     %.2f%%\n", s.BestAccuracy)
	p.printf("Improvement:       %+.2f%%\n", s.ImprovementRate)
	p.printf("Consistency:       %.1f/100 (variance %.2f)\n", r.Consistency, r.Variance)
	if r.HasLearningRate {
		p.printf("Learning rate:     %+.2f%%\n", r.LearningRate)
	} else {
		p.println("Learning rate:     n/a (needs 5 sessions)")
	}
	if r.HasBestHour {
		p.printf("Best hour:         %02d:00 (%.1f wpm over %d sessions)\n",
			r.BestHour.Hour, r.BestHour.AverageWPM, r.BestHour.Count)
	}
	return p.err
}

func renderTrend(p *printer, d Data, opts RenderOptions) error {
	r := d.Report
	p.heading("WPM Trend", opts.Color)
	if p.err != nil {
		return p.err
	}
	width := 0
	if opts.Width > 0 {
		width = PlotWidthFor(opts.Width)
	}
	series := []Series{
		{Name: "WPM", Values: r.WPMSeries},
		{Name: "Moving average", Values: r.WPMMovingAverage},
	}
	if len(r.WPMFit.Fitted) > 1 {
		series = append(series, Series{Name: "Trend", Values: r.WPMFit.Fitted})
	}
	if err := Plot(p.w, "", series, width, opts.Height, opts.Color); err != nil {
		return err
	}
	p.printf("Trend: %+.2f wpm per session (R² %.2f)\n", r.WPMFit.Slope, r.WPMFit.RSquared)
	p.printf("Accuracy: %s\n", trend.Sparkline(r.AccuracySeries))
	return p.err
}

func renderDistribution(p *printer, d Data, opts RenderOptions) error {
	bins := d.Report.WPMHistogram
	p.heading("WPM Distribution", opts.Color)
	most := 0
	for _, b := range bins {
		most = max(most, b.Count)
	}
	for _, b := range bins {
		n := 0
		if most > 0 {
			n = int(math.Round(float64(b.Count) / float64(most) * barWidth))
		}
		p.printf("%6.1f-%-6.1f │ %s %d\n", b.Low, b.High, strings.Repeat("█", n), b.Count)
	}
	return p.err
}

func renderDifficulty(p *printer, d Data, opts RenderOptions) error {
	p.heading("By Difficulty", opts.Color)
	if p.err != nil {
		return p.err
	}
	rows := make([][]string, 0, len(d.Report.Difficulty))
	for _, ds := range d.Report.Difficulty {
		rows = append(rows, []string{
			string(ds.Difficulty),
			strconv.Itoa(ds.Count),
			fmt.Sprintf("%.2f", ds.AverageWPM),
			fmt.Sprintf("%.2f%%", ds.AverageAccuracy),
		})
	}
	return renderTable(p.w, []string{"Difficulty", "Sessions", "Avg WPM", "Avg Accuracy"}, rows)
}

func renderTimeOfDay(p *printer, d Data, opts RenderOptions) error {
	r := d.Report
	p.heading("Time of Day", opts.Color)
	hourly := make([]float64, len(r.Hours))
	for i, h := range r.Hours {
		hourly[i] = h.AverageWPM
	}
	p.printf("    %s\n", hourAxis())
	p.printf("WPM %s\n", trend.Sparkline(hourly))
	for day, cells := range r.Grid {
		var row strings.Builder
		for _, cell := range cells {
			row.WriteByte(heatChar(cell))
		}
		p.printf("%s %s\n", weekdays[day], row.String())
	}
	return p.err
}

func hourAxis() string {
	var b strings.Builder
	for h := 0; h < 24; h += 6 {
		fmt.Fprintf(&b, "%-6s", fmt.Sprintf("%02d", h))
	}
	return b.String()
}

func heatChar(cell analytics.GridCell) byte {
	if cell.Count == 0 {
		return heatChars[0]
	}
	idx := int(math.Round(cell.Intensity * float64(len(heatChars)-1)))
	return heatChars[max(1, min(len(heatChars)-1, idx))]
}

func renderRadar(p *printer, d Data, opts RenderOptions) error {
	r := d.Report.Radar
	p.heading("Skill Profile", opts.Color)
	for _, axis := range []struct {
		name  string
		score float64
	}{
		{"Speed", r.Speed},
		{"Accuracy", r.Accuracy},
		{"Consistency", r.Consistency},
		{"Endurance", r.Endurance},
		{"Improvement", r.Improvement},
	} {
		filled := int(math.Round(axis.score / 100 * radarWidth))
		p.printf("%-12s %s%s %3.0f\n", axis.name,
			strings.Repeat("█", filled), strings.Repeat("░", radarWidth-filled), axis.score)
	}
	return p.err
}

func renderLeaderboard(p *printer, entries []model.LeaderboardEntry, opts RenderOptions) error {
	p.heading("Leaderboard", opts.Color)
	if p.err != nil {
		return p.err
	}
	return RenderLeaderboard(p.w, entries, opts.Username)
}

// RenderLeaderboard writes ranked entries as a table. The row of username is marked.
func RenderLeaderboard(w io.Writer, entries []model.LeaderboardEntry, username string) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No leaderboard entries.")
		return err
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		name := e.Username
		if name == username {
			name += " *"
		}
		rows = append(rows, []string{
			strconv.Itoa(e.Rank),
			name,
			fmt.Sprintf("%.2f", e.BestWPM),
			fmt.Sprintf("%.2f%%", e.BestAccuracy),
			strconv.Itoa(e.TotalTests),
			e.CreatedAt.Local().Format("2006-01-02"),
		})
	}
	return renderTable(w, []string{"Rank", "User", "Best WPM", "Best Accuracy", "Tests", "Joined"}, rows)
}

// RenderHistory writes sessions, most recent first, as a table.
func RenderHistory(w io.Writer, sessions []model.SessionRecord) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		id := s.ID
		if len(id) > shortIDSize {
			id = id[:shortIDSize]
		}
		rows = append(rows, []string{
			s.Timestamp.Local().Format("2006-01-02 15:04"),
			fmt.Sprintf("%.2f", s.WPM),
			fmt.Sprintf("%.2f%%", s.Accuracy),
			string(model.ParseDifficulty(string(s.Difficulty))),
			strconv.Itoa(s.Errors),
			fmt.Sprintf("%.1fs", s.TimeTakenSeconds),
			id,
		})
	}
	return renderTable(w, []string{"Date", "WPM", "Accuracy", "Difficulty", "Errors", "Time", "ID"}, rows)
}

func renderTable(w io.Writer, headers []string, rows [][]string) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
			Row: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.Border{
				Left:   tw.Off,
				Right:  tw.Off,
				Top:    tw.Off,
				Bottom: tw.Off,
			},
			Settings: tw.Settings{
				Separators: tw.Separators{
					BetweenColumns: tw.Off,
				},
			},
		}),
	)
	table.Header(headers)
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return fmt.Errorf("failed to append table row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}
