package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/verte-zerg/typetrack/internal/metrics"
	"github.com/verte-zerg/typetrack/internal/model"
)

// DefaultAnalyticsLimit bounds the analytics history when the request gives no limit.
const DefaultAnalyticsLimit = 20

// EventLeaderboardUpdate names the server-sent event carrying a model.Update.
const EventLeaderboardUpdate = "leaderboard_update"

var errBadRequest = errors.New("bad request")

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidUsername),
		errors.Is(err, model.ErrInvalidSubmission),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(format string, v ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, v...))
}

func username(c *gin.Context) (string, error) {
	name := strings.TrimSpace(c.GetHeader(UserHeader))
	if name == "" {
		name = strings.TrimSpace(c.Query("user"))
	}
	if err := model.ValidateUsername(name); err != nil {
		return "", fmt.Errorf("%w: %q", err, name)
	}
	return name, nil
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, badRequest("%s must be a non-negative integer", key)
	}
	return n, nil
}

type healthResponse struct {
	Status         string `json:"status"`
	Timestamp      string `json:"timestamp"`
	Version        string `json:"version"`
	ActiveLimiters int    `json:"active_limiters"`
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{
		Status:         "healthy",
		Timestamp:      h.now().UTC().Format(time.RFC3339),
		Version:        h.version,
		ActiveLimiters: h.limiters.size(),
	})
}

func (h *handler) prompt(c *gin.Context) {
	p, err := h.svc.Prompt(c.Request.Context(), model.Difficulty(c.Query("difficulty")), c.Query("category"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type addPromptRequest struct {
	Text       string `json:"text"`
	Difficulty string `json:"difficulty"`
	Category   string `json:"category"`
}

func (h *handler) addPrompt(c *gin.Context) {
	var req addPromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequest("invalid prompt payload: %v", err))
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(c, badRequest("prompt text is empty"))
		return
	}
	if err := h.svc.AddPrompt(c.Request.Context(), req.Text, model.Difficulty(req.Difficulty), req.Category); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

func (h *handler) submit(c *gin.Context) {
	name, err := username(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var sub model.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		writeError(c, badRequest("invalid submission payload: %v", err))
		return
	}
	rec, err := h.svc.Submit(c.Request.Context(), name, sub)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *handler) analytics(c *gin.Context) {
	name, err := username(c)
	if err != nil {
		writeError(c, err)
		return
	}
	limit, err := queryInt(c, "limit", DefaultAnalyticsLimit)
	if err != nil {
		writeError(c, err)
		return
	}
	q := model.AnalyticsQuery{Difficulty: model.Difficulty(c.Query("difficulty")), Limit: limit}
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(c, badRequest("since must be an RFC 3339 timestamp"))
			return
		}
		q.Since = &since
	}
	a, err := h.svc.Analytics(c.Request.Context(), name, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *handler) leaderboard(c *gin.Context) {
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		writeError(c, err)
		return
	}
	entries, err := h.svc.Leaderboard(c.Request.Context(), model.LeaderboardQuery{
		Timeframe:  model.Timeframe(c.Query("timeframe")),
		Difficulty: model.Difficulty(c.Query("difficulty")),
		Limit:      limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *handler) session(c *gin.Context) {
	name, err := username(c)
	if err != nil {
		writeError(c, err)
		return
	}
	rec, err := h.svc.Session(c.Request.Context(), name, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// MetricsRequest is the live state of a test as seen by a remote typing screen.
type MetricsRequest struct {
	Prompt    string     `json:"prompt"`
	Input     string     `json:"input"`
	StartTime *time.Time `json:"start_time"`
}

// MetricsResponse is the rounded live snapshot.
type MetricsResponse struct {
	WPM         float64 `json:"wpm"`
	Accuracy    float64 `json:"accuracy"`
	Progress    float64 `json:"progress"`
	Errors      int     `json:"errors"`
	TimeElapsed int     `json:"time_elapsed"`
}

func (h *handler) metrics(c *gin.Context) {
	var req MetricsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequest("invalid metrics payload: %v", err))
		return
	}
	snap := metrics.Initial()
	if req.StartTime != nil {
		elapsed := h.now().Sub(*req.StartTime)
		if elapsed < 0 {
			elapsed = 0
		}
		snap = metrics.Compute(req.Prompt, req.Input, elapsed).Display()
	}
	c.JSON(http.StatusOK, MetricsResponse{
		WPM:         snap.WPM,
		Accuracy:    snap.Accuracy,
		Progress:    snap.Progress,
		Errors:      snap.Errors,
		TimeElapsed: int(snap.Elapsed / time.Second),
	})
}

func (h *handler) events(c *gin.Context) {
	ctx := c.Request.Context()
	updates, err := h.svc.Subscribe(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Type", "text/event-stream")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case u, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent(EventLeaderboardUpdate, u)
			return true
		}
	})
}
