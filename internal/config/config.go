package config

import (
	"fmt"
	"os"
	"time"

	"matchplay-engine/internal/constants"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	DBPath     string
	ServerPort string
	LogLevel   string

	IdentityBaseURL  string
	DirectoryBaseURL string
	NotifyBaseURL    string

	SweepInterval   time.Duration
	ChallengeWindow time.Duration
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DBPath:           getEnv("DB_PATH", "matchplay.db"),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		IdentityBaseURL:  getEnv("IDENTITY_BASE_URL", ""),
		DirectoryBaseURL: getEnv("DIRECTORY_BASE_URL", ""),
		NotifyBaseURL:    getEnv("NOTIFY_BASE_URL", ""),
		SweepInterval:    getEnvDuration("SWEEP_INTERVAL", constants.DefaultSweepInterval),
		ChallengeWindow:  getEnvDuration("CHALLENGE_WINDOW", constants.DefaultChallengeWindow),
	}

	if cfg.IdentityBaseURL == "" {
		return nil, fmt.Errorf("IDENTITY_BASE_URL is required")
	}
	if cfg.SweepInterval <= 0 {
		return nil, fmt.Errorf("SWEEP_INTERVAL must be positive")
	}
	if cfg.ChallengeWindow < constants.MinChallengeWindow {
		return nil, fmt.Errorf("CHALLENGE_WINDOW must be at least %s", constants.MinChallengeWindow)
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Dur("sweep_interval", cfg.SweepInterval).
		Dur("challenge_window", cfg.ChallengeWindow).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

var Module = fx.Provide(Load)
