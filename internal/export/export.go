// Package export renders session history as CSV, JSON or a plain-text report.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/typetrack/internal/analytics"
	"github.com/verte-zerg/typetrack/internal/model"
)

// Format is an export representation.
type Format string

// Supported formats.
const (
	CSV  Format = "csv"
	JSON Format = "json"
	Text Format = "txt"
)

// Header is the fixed CSV header row.
var Header = []string{"Date", "WPM", "Accuracy (%)", "Difficulty", "Errors", "Time Taken (s)", "Characters Typed"}

// ParseFormat accepts csv, json, txt or text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return CSV, nil
	case "json":
		return JSON, nil
	case "txt", "text":
		return Text, nil
	default:
		return "", fmt.Errorf("unknown export format %q (use csv, json or txt)", s)
	}
}

// MIME returns the media type of the format.
func (f Format) MIME() string {
	switch f {
	case CSV:
		return "text/csv"
	case JSON:
		return "application/json"
	default:
		return "text/plain"
	}
}

// Filename returns the default download name for an export made at now.
func (f Format) Filename(now time.Time) string {
	return fmt.Sprintf("typetrack-sessions-%s.%s", now.Format("2006-01-02"), f)
}

// Render encodes sessions in format f. now stamps JSON and text exports.
func Render(f Format, sessions []model.SessionRecord, now time.Time) ([]byte, error) {
	switch f {
	case CSV:
		return EncodeCSV(sessions)
	case JSON:
		return EncodeJSON(sessions, now)
	case Text:
		return EncodeText(sessions, now), nil
	default:
		return nil, fmt.Errorf("unknown export format %q", string(f))
	}
}

// EncodeCSV writes the header followed by one row per session.
func EncodeCSV(sessions []model.SessionRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Header); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, s := range sessions {
		if err := w.Write(csvRow(s)); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func csvRow(s model.SessionRecord) []string {
	return []string{
		s.Timestamp.Format(time.RFC3339),
		formatFloat(s.WPM),
		formatFloat(s.Accuracy),
		string(model.ParseDifficulty(string(s.Difficulty))),
		strconv.Itoa(s.Errors),
		formatFloat(s.TimeTakenSeconds),
		strconv.Itoa(s.CharactersTyped),
	}
}

type document struct {
	ExportedAt    string                `json:"exported_at"`
	TotalSessions int                   `json:"total_sessions"`
	Data          []model.SessionRecord `json:"data"`
}

// EncodeJSON wraps sessions with the export time and count.
func EncodeJSON(sessions []model.SessionRecord, now time.Time) ([]byte, error) {
	if sessions == nil {
		sessions = []model.SessionRecord{}
	}
	out, err := json.MarshalIndent(document{
		ExportedAt:    now.Format(time.RFC3339),
		TotalSessions: len(sessions),
		Data:          sessions,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode json: %w", err)
	}
	return append(out, '\n'), nil
}

// EncodeText renders a human-readable report with summary lines and one line per session.
func EncodeText(sessions []model.SessionRecord, now time.Time) []byte {
	summary := analytics.Summarize(sessions)
	var b strings.Builder
	b.WriteString("TypeTrack Session Report\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", now.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Total sessions:   %d\n", summary.TotalSessions)
	fmt.Fprintf(&b, "Average WPM:      %.2f\n", summary.AverageWPM)
	fmt.Fprintf(&b, "Best WPM:         %.2f\n", summary.BestWPM)
	fmt.Fprintf(&b, "Average accuracy: %.2f%%\n", summary.AverageAccuracy)
	if len(sessions) == 0 {
		return []byte(b.String())
	}

	b.WriteString("\n")
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			s.Timestamp.Format("2006-01-02 15:04"),
			formatFloat(s.WPM),
			formatFloat(s.Accuracy) + "%",
			string(model.ParseDifficulty(string(s.Difficulty))),
			strconv.Itoa(s.Errors),
			formatFloat(s.TimeTakenSeconds) + "s",
		})
	}
	headers := []string{"Date", "WPM", "Accuracy", "Difficulty", "Errors", "Time"}
	for _, line := range formatTable(headers, rows, map[int]bool{1: true, 2: true, 4: true, 5: true}) {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
