package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/typetrack/internal/analytics"
	"github.com/verte-zerg/typetrack/internal/backend"
	"github.com/verte-zerg/typetrack/internal/boardui"
	"github.com/verte-zerg/typetrack/internal/export"
	"github.com/verte-zerg/typetrack/internal/metrics"
	"github.com/verte-zerg/typetrack/internal/model"
	"github.com/verte-zerg/typetrack/internal/stats"
	"github.com/verte-zerg/typetrack/internal/trend"
)

const (
	defaultHistoryLimit = 20
	defaultPlotHeight   = 10
)

var (
	statsLimit      int
	statsDifficulty string
	statsSince      string
	statsBins       int
	statsWindow     int
	statsWidth      int
	statsColor      bool
	statsBoard      bool

	exportFormat     string
	exportOutput     string
	exportLimit      int
	exportDifficulty string

	historyLimit      int
	historyDifficulty string

	boardTimeframe  string
	boardDifficulty string
	boardLimit      int
	boardRefresh    string
	boardPlain      bool

	promptDifficulty string
	promptCategory   string
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show analytics for your sessions",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().IntVar(&statsLimit, "limit", 0, "limit to the last N sessions (0: all)")
	cmd.Flags().StringVar(&statsDifficulty, "difficulty", "", "difficulty filter")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsBins, "bins", analytics.DefaultHistogramBins, "WPM histogram bins")
	cmd.Flags().IntVar(&statsWindow, "window", trend.DefaultWindow, "moving average window")
	cmd.Flags().IntVar(&statsWidth, "width", 0, "output width (default: terminal width)")
	cmd.Flags().BoolVar(&statsColor, "color", false, "force colored output")
	cmd.Flags().BoolVar(&statsBoard, "leaderboard", true, "include the all-time leaderboard")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyIntConfig(cmd, "limit", &statsLimit, fileCfg.Stats.Limit)
	applyIntConfig(cmd, "bins", &statsBins, fileCfg.Stats.HistogramBins)
	applyIntConfig(cmd, "window", &statsWindow, fileCfg.Stats.Window)
	if statsBins <= 0 {
		return fmt.Errorf("--bins must be > 0")
	}
	if statsWindow <= 0 {
		return fmt.Errorf("--window must be > 0")
	}

	q, err := analyticsQuery(statsDifficulty, statsSince, statsLimit)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	e, err := openEnv(ctx, nil)
	if err != nil {
		return err
	}
	defer e.Close()

	cfg := stats.Config{
		Query:         q,
		HistogramBins: statsBins,
		Window:        statsWindow,
		Location:      time.Local,
	}
	if statsBoard {
		cfg.Leaderboard = &model.LeaderboardQuery{Timeframe: model.AllTime, Limit: backend.DefaultLeaderboardLimit}
	}
	data, err := stats.Load(ctx, e.provider, e.provider, cfg)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	return stats.Render(out, data, stats.RenderOptions{
		Width:    statsWidth,
		Height:   defaultPlotHeight,
		Color:    stats.ShouldUseColor(out, statsColor),
		Username: e.provider.Username(),
	})
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export session history as CSV, JSON or a text report",
		Args:  cobra.NoArgs,
		RunE:  runExportCmd,
	}
	cmd.Flags().StringVar(&exportFormat, "format", string(export.CSV), "csv, json or text")
	cmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file, - for stdout (default: typetrack-sessions-<date>.<ext>)")
	cmd.Flags().IntVar(&exportLimit, "limit", 0, "limit to the last N sessions (0: all)")
	cmd.Flags().StringVar(&exportDifficulty, "difficulty", "", "difficulty filter")
	return cmd
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	if _, err := loadConfig(cmd); err != nil {
		return err
	}
	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}
	q, err := analyticsQuery(exportDifficulty, "", exportLimit)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	e, err := openEnv(ctx, nil)
	if err != nil {
		return err
	}
	defer e.Close()

	a, err := e.provider.Analytics(ctx, q)
	if err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}
	now := time.Now()
	data, err := export.Render(format, a.History, now)
	if err != nil {
		return err
	}
	if exportOutput == "-" {
		if _, err := cmd.OutOrStdout().Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	path := exportOutput
	if path == "" {
		path = format.Filename(now)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	logErrf("Exported %d sessions to %s\n", len(a.History), path)
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [session-id]",
		Short: "List recent sessions or show one session",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runHistoryCmd,
	}
	cmd.Flags().IntVar(&historyLimit, "limit", defaultHistoryLimit, "number of sessions to list (0: all)")
	cmd.Flags().StringVar(&historyDifficulty, "difficulty", "", "difficulty filter")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(cmd); err != nil {
		return err
	}
	ctx := cmd.Context()
	var q model.AnalyticsQuery
	if len(args) == 0 {
		var err error
		q, err = analyticsQuery(historyDifficulty, "", historyLimit)
		if err != nil {
			return err
		}
	}
	e, err := openEnv(ctx, nil)
	if err != nil {
		return err
	}
	defer e.Close()

	out := cmd.OutOrStdout()
	if len(args) == 1 {
		rec, err := e.provider.Session(ctx, args[0])
		if errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("session %s not found", args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to load session: %w", err)
		}
		return printSession(out, rec, stats.ShouldUseColor(out, false))
	}
	a, err := e.provider.Analytics(ctx, q)
	if err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}
	return stats.RenderHistory(out, a.History)
}

func printSession(w io.Writer, rec model.SessionRecord, useColor bool) error {
	heading := color.New(color.FgCyan, color.Bold)
	if useColor {
		heading.EnableColor()
	} else {
		heading.DisableColor()
	}
	if _, err := heading.Fprintf(w, "Session %s\n", rec.ID); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w,
		"Date:        %s\nWPM:         %.2f\nAccuracy:    %.2f%%\nDifficulty:  %s\nErrors:      %d\nCharacters:  %d\nTime taken:  %s\n",
		rec.Timestamp.Local().Format("2006-01-02 15:04:05"),
		rec.WPM,
		rec.Accuracy,
		model.ParseDifficulty(string(rec.Difficulty)),
		rec.Errors,
		rec.CharactersTyped,
		metrics.FormatTime(int(math.Round(rec.TimeTakenSeconds))),
	)
	return err
}

func newLeaderboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the live leaderboard",
		Args:  cobra.NoArgs,
		RunE:  runLeaderboardCmd,
	}
	cmd.Flags().StringVar(&boardTimeframe, "timeframe", string(model.AllTime), "all, day, week or month")
	cmd.Flags().StringVar(&boardDifficulty, "difficulty", "", "difficulty filter")
	cmd.Flags().IntVar(&boardLimit, "limit", backend.DefaultLeaderboardLimit, "number of users")
	cmd.Flags().StringVar(&boardRefresh, "refresh", boardui.DefaultRefresh.String(), "auto-refresh interval")
	cmd.Flags().BoolVar(&boardPlain, "plain", false, "print the table once instead of the live view")
	return cmd
}

func runLeaderboardCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "timeframe", &boardTimeframe, fileCfg.Leaderboard.Timeframe)
	applyIntConfig(cmd, "limit", &boardLimit, fileCfg.Leaderboard.Limit)
	applyStringConfig(cmd, "refresh", &boardRefresh, fileCfg.Leaderboard.Refresh)

	difficulty, err := parseDifficultyFlag("difficulty", boardDifficulty)
	if err != nil {
		return err
	}
	refresh, err := parseDurationFlag("refresh", boardRefresh)
	if err != nil {
		return err
	}
	if boardLimit < 0 {
		return fmt.Errorf("--limit must be >= 0")
	}
	q := model.LeaderboardQuery{
		Timeframe:  model.ParseTimeframe(boardTimeframe),
		Difficulty: difficulty,
		Limit:      boardLimit,
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	e, err := openEnv(ctx, nil)
	if err != nil {
		return err
	}
	defer e.Close()

	if boardPlain || !term.IsTerminal(int(os.Stdout.Fd())) {
		entries, err := e.provider.Leaderboard(ctx, q)
		if err != nil {
			return fmt.Errorf("failed to load leaderboard: %w", err)
		}
		return stats.RenderLeaderboard(cmd.OutOrStdout(), entries, e.provider.Username())
	}

	m := boardui.NewModel(ctx, e.provider, boardui.Options{
		Username: e.provider.Username(),
		Query:    q,
		Refresh:  refresh,
	})
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run leaderboard TUI: %w", err)
	}
	return nil
}

func newPromptsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "Manage the prompt catalog",
	}
	add := &cobra.Command{
		Use:   "add <text>",
		Short: "Add a prompt to the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runPromptsAddCmd,
	}
	add.Flags().StringVar(&promptDifficulty, "difficulty", string(model.Medium), "easy, medium or hard")
	add.Flags().StringVar(&promptCategory, "category", "", "prompt category (default: general)")
	cmd.AddCommand(add)
	return cmd
}

func runPromptsAddCmd(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(cmd); err != nil {
		return err
	}
	difficulty, err := parseDifficultyFlag("difficulty", promptDifficulty)
	if err != nil {
		return err
	}
	if difficulty == "" {
		difficulty = model.Medium
	}
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return fmt.Errorf("prompt text must not be empty")
	}
	ctx := cmd.Context()
	e, err := openEnv(ctx, nil)
	if err != nil {
		return err
	}
	defer e.Close()
	if err := e.adder.AddPrompt(ctx, text, difficulty, promptCategory); err != nil {
		return fmt.Errorf("failed to add prompt: %w", err)
	}
	logErrf("Added %s prompt (%d words)\n", difficulty, len(strings.Fields(text)))
	return nil
}

// analyticsQuery builds a query from CLI flags. since is a local date in YYYY-MM-DD form.
func analyticsQuery(difficulty, since string, limit int) (model.AnalyticsQuery, error) {
	d, err := parseDifficultyFlag("difficulty", difficulty)
	if err != nil {
		return model.AnalyticsQuery{}, err
	}
	if limit < 0 {
		return model.AnalyticsQuery{}, fmt.Errorf("--limit must be >= 0")
	}
	q := model.AnalyticsQuery{Difficulty: d, Limit: limit}
	if since != "" {
		parsed, err := time.ParseInLocation("2006-01-02", since, time.Local)
		if err != nil {
			return model.AnalyticsQuery{}, fmt.Errorf("invalid --since value: %w", err)
		}
		q.Since = &parsed
	}
	return q, nil
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(path), "typetrack-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	writer := bufio.NewWriter(tmpFile)
	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
