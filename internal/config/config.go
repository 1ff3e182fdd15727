// Package config provides application configuration loaded from environment
// variables (optionally seeded from a .env file) with defaults and
// validation. It centralizes the Telegram, storage, retention, HTTP, logging
// and observability settings of the bot.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	// Telegram
	BotToken      string  // TELEGRAM_BOT_TOKEN, required by serve
	BotName       string  // BOT_NAME, for "/cmd@name" addressing
	OwnerID       int64   // OWNER_ID, may run /setimage
	WebhookMode   bool    // WEBHOOK_MODE
	WebhookURL    string  // WEBHOOK_URL, public URL Telegram calls
	WebhookPath   string  // WEBHOOK_PATH, route served locally
	WebhookSecret string  // WEBHOOK_SECRET
	ReplyRPS      float64 // REPLY_RPS per chat (0 disables)
	ReplyBurst    int     // REPLY_BURST

	// Storage
	SettingsPath     string        // SETTINGS_DATABASE_PATH (badger directory)
	ChatRoot         string        // CHAT_DATABASE_PATH (one sub-directory per chat)
	MaxDBConnections int           // MAX_DB_CONNECTIONS per chat store
	MaxMessageAge    time.Duration // MAX_MESSAGE_AGE, retention window
	CleanPeriod      time.Duration // MESSAGE_CLEAN_PERIODICITY, sweep interval
	OpTimeout        time.Duration // OP_TIMEOUT per handled update

	// HTTP (health, metrics, webhook)
	HTTPAddr          string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	GinMode           string // debug|release|test

	// Admin API (mounted only when AdminToken is set)
	AdminToken     string  // ADMIN_TOKEN
	AdminRateRPS   float64 // ADMIN_RATE_RPS per client IP
	AdminRateBurst int     // ADMIN_RATE_BURST

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev
	LogFile   string // optional rotated log file

	// Observability
	OTEL OTELConfig
}

// Load reads a .env file when present (without overriding variables that
// are already set), then builds, normalizes and validates the Config.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("read .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the Config from the process environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		// Telegram
		BotToken:      strings.TrimSpace(getenv("TELEGRAM_BOT_TOKEN", "")),
		BotName:       strings.TrimPrefix(strings.TrimSpace(getenv("BOT_NAME", "")), "@"),
		OwnerID:       getint64("OWNER_ID", 0),
		WebhookMode:   getbool("WEBHOOK_MODE", false),
		WebhookURL:    getenv("WEBHOOK_URL", ""),
		WebhookPath:   normalizePath(getenv("WEBHOOK_PATH", "/telegram/webhook")),
		WebhookSecret: getenv("WEBHOOK_SECRET", ""),
		ReplyRPS:      getfloat("REPLY_RPS", 0.5),
		ReplyBurst:    getint("REPLY_BURST", 3),

		// Storage
		SettingsPath:     getenv("SETTINGS_DATABASE_PATH", "data/settings"),
		ChatRoot:         getenv("CHAT_DATABASE_PATH", "data/chats"),
		MaxDBConnections: getint("MAX_DB_CONNECTIONS", 5),
		MaxMessageAge:    getdurOrSeconds("MAX_MESSAGE_AGE", 72*time.Hour),
		CleanPeriod:      getdurOrSeconds("MESSAGE_CLEAN_PERIODICITY", 24*time.Hour),
		OpTimeout:        getdur("OP_TIMEOUT", 10*time.Second),

		// HTTP
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		ShutdownTimeout:   getdur("SHUTDOWN_TIMEOUT", 15*time.Second),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Admin
		AdminToken:     strings.TrimSpace(getenv("ADMIN_TOKEN", "")),
		AdminRateRPS:   getfloat("ADMIN_RATE_RPS", 5),
		AdminRateBurst: getint("ADMIN_RATE_BURST", 10),

		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),
		LogFile:   getenv("LOG_FILE", ""),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "slowpoke-bot"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.SettingsPath) == "" {
		return cfg, errors.New("SETTINGS_DATABASE_PATH must not be empty")
	}
	if strings.TrimSpace(cfg.ChatRoot) == "" {
		return cfg, errors.New("CHAT_DATABASE_PATH must not be empty")
	}
	if cfg.MaxDBConnections < 1 {
		return cfg, errors.New("MAX_DB_CONNECTIONS must be >= 1")
	}
	if cfg.MaxMessageAge <= 0 {
		return cfg, errors.New("MAX_MESSAGE_AGE must be > 0")
	}
	if cfg.CleanPeriod <= 0 {
		return cfg, errors.New("MESSAGE_CLEAN_PERIODICITY must be > 0")
	}
	if cfg.OpTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.ShutdownTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.ReplyRPS < 0 {
		return cfg, errors.New("REPLY_RPS must be >= 0")
	}
	if cfg.ReplyBurst < 1 {
		return cfg, errors.New("REPLY_BURST must be >= 1")
	}
	if cfg.AdminRateRPS <= 0 || cfg.AdminRateBurst < 1 {
		return cfg, errors.New("ADMIN_RATE_RPS must be > 0 and ADMIN_RATE_BURST >= 1")
	}
	if cfg.WebhookMode && strings.TrimSpace(cfg.WebhookURL) == "" {
		return cfg, errors.New("WEBHOOK_URL is required when WEBHOOK_MODE is on")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// RequireBot reports an error when settings needed to talk to Telegram are
// missing. Offline commands do not need them.
func (c Config) RequireBot() error {
	if c.BotToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getint64(k string, def int64) int64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// getdurOrSeconds reads k as a duration ("72h") or bare seconds ("259200"),
// then falls back to k_IN_SECONDS.
func getdurOrSeconds(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	if n := getint64(k+"_IN_SECONDS", -1); n >= 0 {
		return time.Duration(n) * time.Second
	}
	return def
}

// normalizePath ensures a leading '/' and strips trailing '/' (except root).
func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
