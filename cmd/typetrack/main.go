// Package main provides the CLI entrypoint for typetrack.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/typetrack/internal/backend"
	"github.com/verte-zerg/typetrack/internal/cache"
	"github.com/verte-zerg/typetrack/internal/client"
	"github.com/verte-zerg/typetrack/internal/config"
	"github.com/verte-zerg/typetrack/internal/feed"
	"github.com/verte-zerg/typetrack/internal/model"
	"github.com/verte-zerg/typetrack/internal/session"
	"github.com/verte-zerg/typetrack/internal/stats"
	"github.com/verte-zerg/typetrack/internal/store"
	"github.com/verte-zerg/typetrack/internal/tui"
	"github.com/verte-zerg/typetrack/internal/wordlist"
)

var version = "dev"

var (
	userName      string
	serverURL     string
	dbPath        string
	redisAddr     string
	redisDB       int
	redisPassword string

	practiceDifficulty string
	practiceCategory   string
	practiceTimeout    string
	practiceWordList   string
)

// provider is everything the CLI needs from either the local backend or a remote server.
type provider interface {
	session.PromptProvider
	session.SubmissionSink
	stats.AnalyticsProvider
	stats.LeaderboardProvider
	Username() string
	Session(ctx context.Context, id string) (model.SessionRecord, error)
	Subscribe(ctx context.Context) (<-chan model.Update, error)
}

type promptAdder interface {
	AddPrompt(ctx context.Context, text string, difficulty model.Difficulty, category string) error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "typetrack",
		Short:         "Typing speed trainer with analytics and a live leaderboard",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	rootCmd.PersistentFlags().StringVar(&userName, "user", "", "username (default: $TYPETRACK_USER or $USER)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "typetrack server URL; enables remote mode")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", config.DefaultDBPath(), "SQLite database path (local mode)")
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis-addr", "", "optional Redis address for caching and live updates")
	rootCmd.PersistentFlags().IntVar(&redisDB, "redis-db", 0, "Redis database number")
	rootCmd.PersistentFlags().StringVar(&redisPassword, "redis-password", "", "Redis password")

	rootCmd.Flags().StringVar(&practiceDifficulty, "difficulty", string(model.Medium), "prompt difficulty: easy, medium or hard")
	rootCmd.Flags().StringVar(&practiceCategory, "category", store.DefaultCategory, "prompt category; \"words\" generates random words")
	rootCmd.Flags().StringVar(&practiceTimeout, "timeout", session.DefaultTimeout.String(), "time limit per test")
	rootCmd.Flags().StringVar(&practiceWordList, "wordlist", "", "word list file for the words category (local mode)")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newLeaderboardCmd())
	rootCmd.AddCommand(newPromptsCmd())
	rootCmd.AddCommand(newServeCmd())

	return rootCmd
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "difficulty", &practiceDifficulty, fileCfg.Practice.Difficulty)
	applyStringConfig(cmd, "category", &practiceCategory, fileCfg.Practice.Category)
	applyStringConfig(cmd, "timeout", &practiceTimeout, fileCfg.Practice.Timeout)
	applyStringConfig(cmd, "wordlist", &practiceWordList, fileCfg.Practice.WordList)

	difficulty, err := parseDifficultyFlag("difficulty", practiceDifficulty)
	if err != nil {
		return err
	}
	if difficulty == "" {
		difficulty = model.Medium
	}
	timeout, err := parseDurationFlag("timeout", practiceTimeout)
	if err != nil {
		return err
	}

	var words []string
	if practiceWordList != "" {
		if serverURL != "" {
			logErrln("--wordlist only applies in local mode; ignoring")
		} else {
			path := config.ExpandHome(practiceWordList)
			words, err = wordlist.LoadWords(path)
			if err != nil {
				return fmt.Errorf("%w (expected one word per line at %s)", err, path)
			}
		}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	e, err := openEnv(ctx, words)
	if err != nil {
		return err
	}
	defer e.Close()

	machine := session.New(e.provider, e.provider, session.Options{
		Difficulty: difficulty,
		Category:   strings.TrimSpace(practiceCategory),
		Timeout:    timeout,
	})
	m := tui.NewModel(ctx, machine, tui.Options{Username: e.provider.Username()})
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// env holds the provider for one command plus whatever must be closed afterwards.
type env struct {
	provider provider
	adder    promptAdder
	closers  []func() error
}

// Close releases resources in reverse order of acquisition.
func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			logErrf("failed to close: %v\n", err)
		}
	}
}

// openEnv connects to the configured server, or opens the local store with optional Redis.
func openEnv(ctx context.Context, words []string) (*env, error) {
	user, err := resolveUser(userName)
	if err != nil {
		return nil, err
	}
	if serverURL != "" {
		c, err := client.New(serverURL, user, nil)
		if err != nil {
			return nil, err
		}
		return &env{provider: c, adder: c}, nil
	}

	svc, closers, err := openService(ctx, backend.Options{Words: words})
	if err != nil {
		return nil, err
	}
	e := &env{adder: svc, closers: closers}
	us, err := svc.For(user)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.provider = us
	return e, nil
}

// openService opens the store and, when configured, Redis. An unreachable Redis only disables
// caching and cross-process live updates.
func openService(ctx context.Context, opts backend.Options) (*backend.Service, []func() error, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db: %w", err)
	}
	closers := []func() error{st.Close}
	if redisAddr != "" {
		rc, err := cache.Connect(ctx, cache.Options{Addr: redisAddr, Password: redisPassword, DB: redisDB})
		if err != nil {
			logErrf("redis unavailable, continuing without cache: %v\n", err)
		} else {
			closers = append(closers, rc.Close)
			opts.Cache = cache.New(rc)
			opts.Feed = feed.NewRedis(rc, feed.DefaultChannel)
		}
	}
	return backend.New(st, opts), closers, nil
}

// loadConfig reads the config file and applies the settings shared by every command.
func loadConfig(cmd *cobra.Command) (config.FileConfig, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "user", &userName, fileCfg.Practice.User)
	applyStringConfig(cmd, "server", &serverURL, fileCfg.Server.URL)
	applyStringConfig(cmd, "redis-addr", &redisAddr, fileCfg.Redis.Addr)
	applyIntConfig(cmd, "redis-db", &redisDB, fileCfg.Redis.DB)
	applyStringConfig(cmd, "redis-password", &redisPassword, fileCfg.Redis.Password)
	dbPath = config.ExpandHome(dbPath)
	return fileCfg, nil
}

func resolveUser(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.TrimSpace(os.Getenv("TYPETRACK_USER"))
	}
	if name == "" {
		name = strings.TrimSpace(os.Getenv("USER"))
	}
	if err := model.ValidateUsername(name); err != nil {
		return "", fmt.Errorf("%w %q: use 3-32 letters, digits, '_', '-' or '.' (set --user or [practice] user)", err, name)
	}
	return name, nil
}

// parseDifficultyFlag accepts an empty value as "any".
func parseDifficultyFlag(name, value string) (model.Difficulty, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "", nil
	}
	if !model.ValidDifficulty(value) {
		return "", fmt.Errorf("--%s must be easy, medium or hard", name)
	}
	return model.Difficulty(value), nil
}

// parseDurationFlag accepts an empty value as zero, which callers treat as their default.
func parseDurationFlag(name, value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid --%s value: %w", name, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("--%s must be >= 0", name)
	}
	return d, nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(config.Template), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
