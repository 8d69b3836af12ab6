// Package api exposes the backend service over HTTP with Gin.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	ginGzip "github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	cachecontrol "go.eigsys.de/gin-cachecontrol/v2"

	"github.com/verte-zerg/typetrack/internal/backend"
)

// UserHeader carries the username of the caller.
const UserHeader = "X-Typetrack-User"

// Options tunes the router.
type Options struct {
	Version        string
	RateLimitRPS   int
	RateLimitBurst int
	RateLimiterTTL time.Duration
	Now            func() time.Time
}

// DefaultOptions mirrors the server defaults used by the serve command.
func DefaultOptions() Options {
	return Options{
		Version:        "dev",
		RateLimitRPS:   5,
		RateLimitBurst: 10,
		RateLimiterTTL: time.Hour,
	}
}

type handler struct {
	svc      *backend.Service
	version  string
	now      func() time.Time
	limiters *limiterSet
}

// NewRouter builds the API routes on top of svc.
func NewRouter(svc *backend.Service, opts Options) *gin.Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	h := &handler{
		svc:      svc,
		version:  opts.Version,
		now:      opts.Now,
		limiters: newLimiterSet(opts.RateLimitRPS, opts.RateLimitBurst, opts.RateLimiterTTL),
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	if err := router.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logWarn("Failed to set trusted proxies: %v", err)
	}
	router.Use(cachecontrol.New(cachecontrol.Config{
		NoStore:        true,
		NoCache:        true,
		MustRevalidate: true,
	}))

	// The event stream is excluded from compression so updates are flushed as they happen.
	router.Use(ginGzip.Gzip(ginGzip.DefaultCompression,
		ginGzip.WithExcludedPaths([]string{"/api/events"})))

	g := router.Group("/api")
	g.GET("/health", h.health)
	g.GET("/prompt", h.prompt)
	g.POST("/prompts", h.addPrompt)
	g.POST("/submit", h.limiters.middleware(), h.submit)
	g.GET("/analytics", h.analytics)
	g.GET("/leaderboard", h.leaderboard)
	g.GET("/sessions/:id", h.session)
	g.POST("/metrics", h.metrics)
	g.GET("/events", h.events)
	return router
}

type errorResponse struct {
	Message string `json:"message"`
}

func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), errorResponse{Message: err.Error()})
}

// Serve runs handler on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		<-ctx.Done()
		logInfo("Shutdown signal received, shutting down server gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logWarn("HTTP server Shutdown: %v", err)
		}
		close(idleConnsClosed)
	}()

	logInfo("Server starting on http://%s", addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve on %s: %w", addr, err)
	}
	<-idleConnsClosed
	logInfo("Server shutdown complete")
	return nil
}
