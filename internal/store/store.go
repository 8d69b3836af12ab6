// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/typetrack/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// timeLayout is fixed-width so stored timestamps compare correctly as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store wraps SQLite access for users, sessions and prompts.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; SQLite locks the whole file anyway.
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id),
			wpm REAL NOT NULL,
			accuracy REAL NOT NULL,
			difficulty TEXT NOT NULL DEFAULT 'medium',
			errors INTEGER NOT NULL DEFAULT 0,
			characters_typed INTEGER NOT NULL DEFAULT 0,
			time_taken REAL NOT NULL DEFAULT 0,
			timestamp TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS prompts (
			id INTEGER PRIMARY KEY,
			text TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT 'general',
			active INTEGER NOT NULL DEFAULT 1
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user_ts ON sessions(user_id, timestamp);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_difficulty ON sessions(difficulty);`,
		`CREATE INDEX IF NOT EXISTS idx_prompts_lookup ON prompts(difficulty, category);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return s.seedPrompts()
}

func (s *Store) seedPrompts() error {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM prompts`).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	for _, d := range model.Difficulties {
		for _, text := range catalog[d] {
			if _, err := s.db.Exec(`INSERT INTO prompts (text, difficulty, category) VALUES (?, ?, ?)`,
				text, string(d), DefaultCategory); err != nil {
				return err
			}
		}
	}
	return nil
}

// EnsureUser returns the user with the given name, creating it on first use.
func (s *Store) EnsureUser(ctx context.Context, username string) (model.User, error) {
	if err := model.ValidateUsername(username); err != nil {
		return model.User{}, fmt.Errorf("%w: %q", err, username)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO users (username, created_at) VALUES (?, ?)`,
		username, formatTime(time.Now()),
	); err != nil {
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	var u model.User
	var created string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, created_at FROM users WHERE username = ?`, username,
	).Scan(&u.ID, &u.Username, &created)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to load user: %w", err)
	}
	if u.CreatedAt, err = parseTime(created); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// InsertSession stores a finished test for userID and returns the immutable record.
func (s *Store) InsertSession(ctx context.Context, userID int64, sub model.Submission, at time.Time) (model.SessionRecord, error) {
	rec := model.SessionRecord{
		ID:               uuid.NewString(),
		Timestamp:        at.UTC(),
		WPM:              sub.WPM,
		Accuracy:         sub.Accuracy,
		Difficulty:       model.ParseDifficulty(string(sub.Difficulty)),
		Errors:           sub.Errors,
		TimeTakenSeconds: sub.TimeTakenSeconds,
		CharactersTyped:  sub.CharactersTyped,
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.SessionRecord{}, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, wpm, accuracy, difficulty, errors, characters_typed, time_taken, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		userID,
		rec.WPM,
		rec.Accuracy,
		string(rec.Difficulty),
		rec.Errors,
		rec.CharactersTyped,
		rec.TimeTakenSeconds,
		formatTime(rec.Timestamp),
	)
	if err != nil {
		return model.SessionRecord{}, fmt.Errorf("failed to insert session: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return model.SessionRecord{}, fmt.Errorf("failed to commit session: %w", err)
	}
	return rec, nil
}

const sessionColumns = `id, wpm, accuracy, difficulty, errors, characters_typed, time_taken, timestamp`

// History returns the user's sessions, most recent first, filtered by q.
func (s *Store) History(ctx context.Context, userID int64, q model.AnalyticsQuery) ([]model.SessionRecord, error) {
	clauses := []string{"user_id = ?"}
	args := []any{userID}
	if q.Difficulty != "" {
		clauses = append(clauses, "difficulty = ?")
		args = append(args, string(q.Difficulty))
	}
	if q.Since != nil {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, formatTime(*q.Since))
	}
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE %s ORDER BY timestamp DESC`,
		sessionColumns, strings.Join(clauses, " AND "))
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	history := []model.SessionRecord{}
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		history = append(history, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return history, nil
}

// Session returns one of the user's sessions by ID.
func (s *Store) Session(ctx context.Context, userID int64, id string) (model.SessionRecord, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM sessions WHERE id = ? AND user_id = ?`, sessionColumns), id, userID)
	rec, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SessionRecord{}, fmt.Errorf("session %s: %w", id, model.ErrNotFound)
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (model.SessionRecord, error) {
	var rec model.SessionRecord
	var difficulty, ts string
	if err := row.Scan(&rec.ID, &rec.WPM, &rec.Accuracy, &difficulty, &rec.Errors,
		&rec.CharactersTyped, &rec.TimeTakenSeconds, &ts); err != nil {
		return model.SessionRecord{}, err
	}
	rec.Difficulty = model.ParseDifficulty(difficulty)
	parsed, err := parseTime(ts)
	if err != nil {
		return model.SessionRecord{}, err
	}
	rec.Timestamp = parsed
	return rec, nil
}

// Leaderboard ranks users by best WPM over the sessions matching q.
func (s *Store) Leaderboard(ctx context.Context, q model.LeaderboardQuery, now time.Time) ([]model.LeaderboardEntry, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if since := q.Timeframe.Since(now); since != nil {
		clauses = append(clauses, "s.timestamp >= ?")
		args = append(args, formatTime(*since))
	}
	if q.Difficulty != "" {
		clauses = append(clauses, "s.difficulty = ?")
		args = append(args, string(q.Difficulty))
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}
	args = append(args, limit)
	query := fmt.Sprintf(`SELECT u.username, MAX(s.wpm), MAX(s.accuracy), COUNT(*), u.created_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE %s
		GROUP BY u.id
		ORDER BY MAX(s.wpm) DESC, MAX(s.accuracy) DESC, u.username ASC
		LIMIT ?`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	entries := []model.LeaderboardEntry{}
	for rows.Next() {
		var e model.LeaderboardEntry
		var created string
		if err := rows.Scan(&e.Username, &e.BestWPM, &e.BestAccuracy, &e.TotalTests, &created); err != nil {
			return nil, err
		}
		if e.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// RandomPrompt picks an active prompt. Unknown difficulties fall back to medium and an empty
// category to the general catalog; with no stored match a built-in sentence is used.
func (s *Store) RandomPrompt(ctx context.Context, difficulty model.Difficulty, category string) (model.Prompt, error) {
	d := model.ParseDifficulty(string(difficulty))
	if category == "" {
		category = DefaultCategory
	}
	var text string
	err := s.db.QueryRowContext(ctx,
		`SELECT text FROM prompts WHERE difficulty = ? AND category = ? AND active = 1 ORDER BY RANDOM() LIMIT 1`,
		string(d), category,
	).Scan(&text)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return CatalogPrompt(d, category), nil
	case err != nil:
		return model.Prompt{}, fmt.Errorf("failed to query prompts: %w", err)
	}
	return model.NewPrompt(text, d, category), nil
}

// AddPrompt stores a custom prompt.
func (s *Store) AddPrompt(ctx context.Context, text string, difficulty model.Difficulty, category string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("prompt text is empty")
	}
	if category == "" {
		category = DefaultCategory
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO prompts (text, difficulty, category) VALUES (?, ?, ?)`,
		text, string(model.ParseDifficulty(string(difficulty))), category)
	if err != nil {
		return fmt.Errorf("failed to insert prompt: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse stored time %q: %w", s, err)
	}
	return t, nil
}
