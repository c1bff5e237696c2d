package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/platform/logging"
)

// Config stores runtime configuration for the collector.
type Config struct {
	BaseURL                 string        `validate:"required,url"`
	Sport                   string        `validate:"required"`
	Division                string        `validate:"required"`
	FirstSeason             int           `validate:"required,min=2000,max=2100"`
	LastSeason              int           `validate:"required,min=2000,max=2100,gtefield=FirstSeason"`
	HTTPTimeout             time.Duration `validate:"required,min=1s"`
	MaxRetries              int           `validate:"min=0,max=10"`
	RequestInterval         time.Duration `validate:"min=0"`
	BoxscoreWorkers         int           `validate:"required,min=1,max=64"`
	CircuitEnabled          bool
	CircuitFailureCount     int           `validate:"min=1"`
	CircuitOpenTimeout      time.Duration `validate:"min=1s"`
	CircuitHalfOpenMaxReq   int           `validate:"min=1"`
	RawOutputPath           string        `validate:"required"`
	SeasonOutputPath        string        `validate:"required"`
	ArchiveEnabled          bool
	ArchivePath             string        `validate:"required"`
	LogLevel                logging.Level
}

func Load() (Config, error) {
	firstSeason, err := getEnvAsInt("COLLECTOR_FIRST_SEASON", 2022)
	if err != nil {
		return Config{}, fmt.Errorf("parse COLLECTOR_FIRST_SEASON: %w", err)
	}
	lastSeason, err := getEnvAsInt("COLLECTOR_LAST_SEASON", 2024)
	if err != nil {
		return Config{}, fmt.Errorf("parse COLLECTOR_LAST_SEASON: %w", err)
	}
	httpTimeout, err := getEnvAsDuration("COLLECTOR_HTTP_TIMEOUT", 15*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("parse COLLECTOR_HTTP_TIMEOUT: %w", err)
	}
	maxRetries, err := getEnvAsInt("COLLECTOR_MAX_RETRIES", 3)
	if err != nil {
		return Config{}, fmt.Errorf("parse COLLECTOR_MAX_RETRIES: %w", err)
	}
	requestInterval, err := getEnvAsDuration("COLLECTOR_REQUEST_INTERVAL", 220*time.Millisecond)
	if err != nil {
		return Config{}, fmt.Errorf("parse COLLECTOR_REQUEST_INTERVAL: %w", err)
	}
	boxscoreWorkers, err := getEnvAsInt("COLLECTOR_BOXSCORE_WORKERS", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse COLLECTOR_BOXSCORE_WORKERS: %w", err)
	}
	circuitEnabled, err := strconv.ParseBool(getEnv("COLLECTOR_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse COLLECTOR_CIRCUIT_ENABLED: %w", err)
	}
	circuitFailureCount, err := getEnvAsInt("COLLECTOR_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse COLLECTOR_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	circuitOpenTimeout, err := getEnvAsDuration("COLLECTOR_CIRCUIT_OPEN_TIMEOUT", 30*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("parse COLLECTOR_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	circuitHalfOpenMaxReq, err := getEnvAsInt("COLLECTOR_CIRCUIT_HALF_OPEN_MAX_REQ", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse COLLECTOR_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	archiveEnabled, err := strconv.ParseBool(getEnv("ARCHIVE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse ARCHIVE_ENABLED: %w", err)
	}

	cfg := Config{
		BaseURL:               getEnv("COLLECTOR_BASE_URL", "https://ncaa-api.henrygd.me"),
		Sport:                 getEnv("COLLECTOR_SPORT", "soccer-women"),
		Division:              getEnv("COLLECTOR_DIVISION", "d1"),
		FirstSeason:           firstSeason,
		LastSeason:            lastSeason,
		HTTPTimeout:           httpTimeout,
		MaxRetries:            maxRetries,
		RequestInterval:       requestInterval,
		BoxscoreWorkers:       boxscoreWorkers,
		CircuitEnabled:        circuitEnabled,
		CircuitFailureCount:   circuitFailureCount,
		CircuitOpenTimeout:    circuitOpenTimeout,
		CircuitHalfOpenMaxReq: circuitHalfOpenMaxReq,
		RawOutputPath:         getEnv("RAW_OUTPUT_PATH", "data/raw/wsoccer_raw_games.csv"),
		SeasonOutputPath:      getEnv("SEASON_OUTPUT_PATH", "data/raw/wsoccer_transfer_risk.csv"),
		ArchiveEnabled:        archiveEnabled,
		ArchivePath:           getEnv("ARCHIVE_PATH", "data/archive/payloads.db"),
		LogLevel:              parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Seasons expands the configured year range, oldest first.
func (c Config) Seasons() []int {
	out := make([]int, 0, c.LastSeason-c.FirstSeason+1)
	for year := c.FirstSeason; year <= c.LastSeason; year++ {
		out = append(out, year)
	}
	return out
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}
