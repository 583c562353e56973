package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains all runtime settings for the support-chat service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	DatabaseURL string

	GenProvider   string
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	GenTimeout    time.Duration

	ReplyMaxOutputTokens int
	ReplyTemperature     float64

	TrailingWindow  time.Duration
	IdleTimeout     time.Duration
	SummaryMinTurns int
}

// Load reads environment variables and applies safe defaults.
// A local .env file is honored when present.
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "mochat"),
		AllowAnyOrigin:   false,
		DatabaseURL:      envTrimmed("DATABASE_URL"),
		GenProvider:      envOrDefault("GEN_PROVIDER", "auto"),
		GeminiAPIKey:     envTrimmed("GEMINI_API_KEY"),
		GeminiModel:      envOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiBaseURL:    envOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		GenTimeout:       60 * time.Second,
		// Short, warm replies: a hard token cap plus enough randomness to
		// avoid templated phrasing.
		ReplyMaxOutputTokens: 150,
		ReplyTemperature:     0.85,
		TrailingWindow:       time.Hour,
		IdleTimeout:          10 * time.Minute,
		SummaryMinTurns:      4,
		ShutdownTimeout:      15 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.GenTimeout, err = durationFromEnv("GEN_TIMEOUT", cfg.GenTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.TrailingWindow, err = durationFromEnv("CHAT_TRAILING_WINDOW", cfg.TrailingWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.IdleTimeout, err = durationFromEnv("CHAT_IDLE_TIMEOUT", cfg.IdleTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ReplyMaxOutputTokens, err = intFromEnv("CHAT_REPLY_MAX_TOKENS", cfg.ReplyMaxOutputTokens)
	if err != nil {
		return Config{}, err
	}
	cfg.ReplyTemperature, err = floatFromEnv("CHAT_REPLY_TEMPERATURE", cfg.ReplyTemperature)
	if err != nil {
		return Config{}, err
	}
	cfg.SummaryMinTurns, err = intFromEnv("CHAT_SUMMARY_MIN_TURNS", cfg.SummaryMinTurns)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.TrailingWindow <= 0 {
		return Config{}, fmt.Errorf("CHAT_TRAILING_WINDOW must be positive")
	}
	if cfg.IdleTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("CHAT_IDLE_TIMEOUT must be at least 5s")
	}
	if cfg.ReplyMaxOutputTokens <= 0 {
		return Config{}, fmt.Errorf("CHAT_REPLY_MAX_TOKENS must be positive")
	}
	if cfg.ReplyTemperature < 0 || cfg.ReplyTemperature > 2 {
		return Config{}, fmt.Errorf("CHAT_REPLY_TEMPERATURE must be between 0 and 2")
	}
	if cfg.SummaryMinTurns < 2 {
		return Config{}, fmt.Errorf("CHAT_SUMMARY_MIN_TURNS must be at least 2")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(envTrimmed(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
