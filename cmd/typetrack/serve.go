package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/typetrack/internal/api"
	"github.com/verte-zerg/typetrack/internal/backend"
	"github.com/verte-zerg/typetrack/internal/config"
	"github.com/verte-zerg/typetrack/internal/wordlist"
)

const defaultServeAddr = ":8080"

var (
	serveAddr     string
	serveWordList string
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: "Run the HTTP API server. A .env file in the working directory is loaded first; " +
			"PORT, REDIS_ADDR, RATE_LIMIT_RPS, RATE_LIMIT_BURST and RATE_LIMITER_TTL are read from the environment.",
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", defaultServeAddr, "listen address")
	cmd.Flags().StringVar(&serveWordList, "wordlist", "", "word list file for the words category")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	fileCfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "addr", &serveAddr, fileCfg.Server.Addr)
	applyStringConfig(cmd, "wordlist", &serveWordList, fileCfg.Practice.WordList)
	if !cmd.Flags().Changed("addr") && fileCfg.Server.Addr == nil {
		if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
			serveAddr = ":" + port
		}
	}
	if redisAddr == "" {
		redisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	}
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	var words []string
	if serveWordList != "" {
		path := config.ExpandHome(serveWordList)
		words, err = wordlist.LoadWords(path)
		if err != nil {
			return fmt.Errorf("%w (expected one word per line at %s)", err, path)
		}
	}

	ctx := cmd.Context()
	svc, closers, err := openService(ctx, backend.Options{Words: words})
	if err != nil {
		return err
	}
	e := &env{closers: closers}
	defer e.Close()

	opts := api.DefaultOptions()
	opts.Version = version
	opts.RateLimitRPS = getEnvInt("RATE_LIMIT_RPS", opts.RateLimitRPS)
	opts.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", opts.RateLimitBurst)
	opts.RateLimiterTTL = getEnvDuration("RATE_LIMITER_TTL", opts.RateLimiterTTL)

	return api.Serve(ctx, serveAddr, api.NewRouter(svc, opts))
}

func getEnvInt(key string, fallback int) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	i, err := strconv.Atoi(val)
	if err != nil || i <= 0 {
		logErrf("invalid int for %s: %q, using default %d\n", key, val, fallback)
		return fallback
	}
	return i
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		logErrf("invalid duration for %s: %q, using default %v\n", key, val, fallback)
		return fallback
	}
	return d
}
