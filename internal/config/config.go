package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8124"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	// Operator credentials for the web UI. Both empty disables login entirely
	// (authentication is deny-by-default, never match-on-empty).
	WebUser string `env:"WEB_USER"`
	WebPass string `env:"WEB_PASS"`

	SessionTTL time.Duration `env:"SESSION_TTL" default:"30m"`
	RedisURL   string        `env:"REDIS_URL"`

	// WebRoot is the directory containing templates and public assets.
	WebRoot string `env:"WEB_ROOT" default:"web"`

	// PlotDirs is a comma-separated list of plot directories.
	PlotDirs string `env:"PLOT_DIRS"`

	PoolURL       string `env:"POOL_URL"`
	WalletURL     string `env:"WALLET_URL"`
	MiningInfoURL string `env:"MINING_INFO_URL"`
	VersionURL    string `env:"VERSION_URL" default:"https://raw.githubusercontent.com/Creepsky/creepMiner/master/version.id"`

	// MiningInfoPollInterval is how often the cached mining info is refreshed
	// from the mining-info upstream (the pool when none is configured).
	MiningInfoPollInterval time.Duration `env:"MINING_INFO_POLL_INTERVAL" default:"5s"`

	TargetDeadline     uint64 `env:"TARGET_DEADLINE" default:"0"`
	SubmissionMaxRetry int    `env:"SUBMISSION_MAX_RETRY" default:"3"`

	MaxWebSocketConnections int `env:"MAX_WEBSOCKET_CONNECTIONS" default:"256"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.PoolURL == "" {
		return fmt.Errorf("POOL_URL is required")
	}
	for name, value := range map[string]string{
		"POOL_URL":        cfg.PoolURL,
		"WALLET_URL":      cfg.WalletURL,
		"MINING_INFO_URL": cfg.MiningInfoURL,
	} {
		if value == "" {
			continue
		}
		if _, err := url.ParseRequestURI(value); err != nil {
			return fmt.Errorf("%s is not a valid URL: %w", name, err)
		}
	}

	if cfg.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if cfg.MiningInfoPollInterval <= 0 {
		return fmt.Errorf("MINING_INFO_POLL_INTERVAL must be positive")
	}
	if cfg.SubmissionMaxRetry < 1 {
		return fmt.Errorf("SUBMISSION_MAX_RETRY must be at least 1")
	}
	if cfg.MaxWebSocketConnections < 1 {
		return fmt.Errorf("MAX_WEBSOCKET_CONNECTIONS must be at least 1")
	}

	// One credential without the other is a misconfiguration, not a partial lock.
	if (cfg.WebUser == "") != (cfg.WebPass == "") {
		return fmt.Errorf("WEB_USER and WEB_PASS must be set together")
	}

	return nil
}

// PlotDirList splits the configured comma-separated plot directories,
// dropping empty entries.
func (c *Config) PlotDirList() []string {
	var dirs []string
	for _, dir := range strings.Split(c.PlotDirs, ",") {
		dir = strings.TrimSpace(dir)
		if dir != "" {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}
