// Package client talks to a typetrack server and implements the same provider interfaces as the
// local backend.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/typetrack/internal/api"
	"github.com/verte-zerg/typetrack/internal/model"
)

// StatusError is a non-2xx response from the server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// Unwrap maps 404 to model.ErrNotFound so callers can use errors.Is.
func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusNotFound {
		return model.ErrNotFound
	}
	return nil
}

// Client is bound to one server and one user.
type Client struct {
	base     *url.URL
	username string
	http     *http.Client
}

// New validates username and baseURL. A nil hc uses a default http.Client. Regular calls time out
// after requestTimeout; event streams never do.
func New(baseURL, username string, hc *http.Client) (*Client, error) {
	if err := model.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("%w: %q", err, username)
	}
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", baseURL)
	}
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{base: base, username: username, http: hc}, nil
}

func (c *Client) Username() string {
	return c.username
}

const requestTimeout = 10 * time.Second

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path += path
	u.RawQuery = query.Encode()
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(api.UserHeader, c.username)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			// Best-effort body close.
			_ = cerr
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var payload struct {
		Message string `json:"message"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(data, &payload); err != nil || payload.Message == "" {
		payload.Message = strings.TrimSpace(string(data))
	}
	if payload.Message == "" {
		payload.Message = http.StatusText(resp.StatusCode)
	}
	return &StatusError{Code: resp.StatusCode, Message: payload.Message}
}

// Health returns the server status document.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) FetchPrompt(ctx context.Context, difficulty model.Difficulty, category string) (model.Prompt, error) {
	q := url.Values{}
	q.Set("difficulty", string(difficulty))
	if category != "" {
		q.Set("category", category)
	}
	var p model.Prompt
	err := c.do(ctx, http.MethodGet, "/api/prompt", q, nil, &p)
	return p, err
}

// AddPrompt stores a custom prompt on the server.
func (c *Client) AddPrompt(ctx context.Context, text string, difficulty model.Difficulty, category string) error {
	return c.do(ctx, http.MethodPost, "/api/prompts", nil, map[string]string{
		"text":       text,
		"difficulty": string(difficulty),
		"category":   category,
	}, nil)
}

func (c *Client) Submit(ctx context.Context, sub model.Submission) (model.SessionRecord, error) {
	var rec model.SessionRecord
	err := c.do(ctx, http.MethodPost, "/api/submit", nil, sub, &rec)
	return rec, err
}

// Analytics requests a summary. A zero limit lets the server apply its default.
func (c *Client) Analytics(ctx context.Context, q model.AnalyticsQuery) (model.Analytics, error) {
	params := url.Values{}
	if q.Difficulty != "" {
		params.Set("difficulty", string(q.Difficulty))
	}
	// Always sent: the server applies its own default when limit is absent, while 0 means all.
	params.Set("limit", strconv.Itoa(max(q.Limit, 0)))
	if q.Since != nil {
		params.Set("since", q.Since.UTC().Format(time.RFC3339))
	}
	var a model.Analytics
	err := c.do(ctx, http.MethodGet, "/api/analytics", params, nil, &a)
	return a, err
}

func (c *Client) Leaderboard(ctx context.Context, q model.LeaderboardQuery) ([]model.LeaderboardEntry, error) {
	params := url.Values{}
	if q.Timeframe != "" {
		params.Set("timeframe", string(q.Timeframe))
	}
	if q.Difficulty != "" {
		params.Set("difficulty", string(q.Difficulty))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	var entries []model.LeaderboardEntry
	if err := c.do(ctx, http.MethodGet, "/api/leaderboard", params, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) Session(ctx context.Context, id string) (model.SessionRecord, error) {
	var rec model.SessionRecord
	err := c.do(ctx, http.MethodGet, "/api/sessions/"+url.PathEscape(id), nil, nil, &rec)
	return rec, err
}

// LiveMetrics asks the server to measure a test in progress.
func (c *Client) LiveMetrics(ctx context.Context, req api.MetricsRequest) (api.MetricsResponse, error) {
	var out api.MetricsResponse
	err := c.do(ctx, http.MethodPost, "/api/metrics", nil, req, &out)
	return out, err
}

// Subscribe opens the server event stream. The channel closes when ctx is done or the stream ends.
func (c *Client) Subscribe(ctx context.Context) (<-chan model.Update, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/api/events", nil), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set(api.UserHeader, c.username)

	stream := *c.http
	stream.Timeout = 0
	resp, err := stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to open event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer func() {
			if cerr := resp.Body.Close(); cerr != nil {
				// Best-effort body close.
				_ = cerr
			}
		}()
		return nil, decodeError(resp)
	}

	out := make(chan model.Update, 16)
	go func() {
		defer close(out)
		defer func() {
			if cerr := resp.Body.Close(); cerr != nil {
				// Best-effort body close.
				_ = cerr
			}
		}()
		readEvents(ctx, resp.Body, out)
	}()
	return out, nil
}

// readEvents parses a text/event-stream body, forwarding leaderboard updates until r ends.
func readEvents(ctx context.Context, r io.Reader, out chan<- model.Update) {
	scanner := bufio.NewScanner(r)
	var event string
	var data []string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if event == api.EventLeaderboardUpdate && len(data) > 0 {
				var u model.Update
				if err := json.Unmarshal([]byte(strings.Join(data, "\n")), &u); err == nil {
					select {
					case out <- u:
					case <-ctx.Done():
						return
					}
				}
			}
			event, data = "", nil
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, context.Canceled) && ctx.Err() == nil {
		logErrf("event stream ended: %v", err)
	}
}
