package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken   string
	DatabaseURL     string
	AdminTelegramID int64
	LogLevel        string
	Environment     string
	ArchiveDir      string
	BroadcastText   string

	// Cron specs use the 6-field form (with seconds).
	CronSpecReminder   string // evening submission reminder
	CronSpecSummary    string // nightly counts message to the admin
	CronSpecMissSweep  string // absence sweep, runs after the summary
	CronSpecBroadcast  string // fixed-interval broadcast to all students
	CronSpecGroupFlush string // media-group aggregator flush

	MediaGroupDebounce time.Duration
	BroadcastSendDelay time.Duration
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables; a missing .env
	// file is not an error.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID")
	if adminIDStr == "" {
		return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is not set")
	}
	cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.ArchiveDir = os.Getenv("ARCHIVE_DIR")
	if cfg.ArchiveDir == "" {
		cfg.ArchiveDir = "conspects"
	}

	cfg.BroadcastText = os.Getenv("BROADCAST_TEXT")

	cfg.CronSpecReminder = envOrDefault("CRON_SPEC_REMINDER", "0 0 18 * * *")
	cfg.CronSpecSummary = envOrDefault("CRON_SPEC_SUMMARY", "0 55 23 * * *")
	cfg.CronSpecMissSweep = envOrDefault("CRON_SPEC_MISS_SWEEP", "0 57 23 * * *")
	cfg.CronSpecBroadcast = envOrDefault("CRON_SPEC_BROADCAST", "0 0 */2 * * *")
	cfg.CronSpecGroupFlush = envOrDefault("CRON_SPEC_GROUP_FLUSH", "*/2 * * * * *")

	cfg.MediaGroupDebounce, err = durationOrDefault("MEDIA_GROUP_DEBOUNCE", 2*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.BroadcastSendDelay, err = durationOrDefault("BROADCAST_SEND_DELAY", 50*time.Millisecond)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationOrDefault(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
