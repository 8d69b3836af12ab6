// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Practice    PracticeConfig    `toml:"practice"`
	Stats       StatsConfig       `toml:"stats"`
	Leaderboard LeaderboardConfig `toml:"leaderboard"`
	Redis       RedisConfig       `toml:"redis"`
	Server      ServerConfig      `toml:"server"`
}

// PracticeConfig maps practice-related settings.
type PracticeConfig struct {
	User       *string `toml:"user"`
	Difficulty *string `toml:"difficulty"`
	Category   *string `toml:"category"`
	// Timeout is a Go duration string capping each test, e.g. "300s".
	Timeout  *string `toml:"timeout"`
	WordList *string `toml:"wordlist"`
}

// StatsConfig maps report settings.
type StatsConfig struct {
	Limit         *int `toml:"limit"`
	HistogramBins *int `toml:"histogram-bins"`
	Window        *int `toml:"window"`
}

// LeaderboardConfig maps leaderboard settings.
type LeaderboardConfig struct {
	Timeframe *string `toml:"timeframe"`
	Limit     *int    `toml:"limit"`
	// Refresh is a Go duration string, e.g. "30s".
	Refresh *string `toml:"refresh"`
}

// RedisConfig maps the optional cache and feed connection.
type RedisConfig struct {
	Addr     *string `toml:"addr"`
	DB       *int    `toml:"db"`
	Password *string `toml:"password"`
}

// ServerConfig maps the HTTP API settings. URL switches every client command to remote mode.
type ServerConfig struct {
	Addr *string `toml:"addr"`
	URL  *string `toml:"url"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}

// Template is written by `typetrack config` when no file exists yet.
const Template = `# typetrack configuration

[practice]
# user = "alice"
# difficulty = "medium"
# category = "general"
# timeout = "300s"
# wordlist = "~/.config/typetrack/wordlists/en.txt"

[stats]
# limit = 100
# histogram-bins = 10
# window = 7

[leaderboard]
# timeframe = "all"
# limit = 10
# refresh = "30s"

[redis]
# addr = "localhost:6379"
# db = 0
# password = ""

[server]
# addr = ":8080"
# url = "http://localhost:8080"
`
