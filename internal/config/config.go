package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	DBPath        string
	ServerPort    string
	LogLevel      string
	EloKFactor    int
	InitialRating int
	CommitTimeout time.Duration
}

// Load reads the environment into a Config. It logs through its own
// bootstrap logger because the application logger's level comes from the
// config being loaded here.
func Load() (*Config, error) {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	kFactor, err := getEnvInt("ELO_K_FACTOR", 32)
	if err != nil {
		return nil, fmt.Errorf("invalid ELO_K_FACTOR: %w", err)
	}
	if kFactor <= 0 {
		return nil, fmt.Errorf("ELO_K_FACTOR must be positive, got %d", kFactor)
	}

	initialRating, err := getEnvInt("INITIAL_RATING", 1200)
	if err != nil {
		return nil, fmt.Errorf("invalid INITIAL_RATING: %w", err)
	}

	commitTimeout, err := getEnvDuration("COMMIT_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid COMMIT_TIMEOUT: %w", err)
	}

	cfg := &Config{
		DBPath:        getEnv("DB_PATH", "ladder.db"),
		ServerPort:    getEnv("SERVER_PORT", "8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		EloKFactor:    kFactor,
		InitialRating: initialRating,
		CommitTimeout: commitTimeout,
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Int("elo_k_factor", cfg.EloKFactor).
		Int("initial_rating", cfg.InitialRating).
		Dur("commit_timeout", cfg.CommitTimeout).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}

var Module = fx.Provide(Load)
