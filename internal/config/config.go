package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	GeminiAPIKey     string
	GeminiModel      string
	GeminiBaseURL    string
	GeminiAPIVersion string

	TelegramToken string

	WebAddr string

	LogLevel string
	Debug    bool

	PreferIPv4 bool

	HTTPTimeout        time.Duration
	RequestTimeout     time.Duration
	MaxConcurrent      int
	MediaGroupDebounce time.Duration
	SessionTTL         time.Duration

	CanvasFollowsRatio bool
	CatalogFile        string
}

// Load reads the environment. A missing Gemini key is fatal for every
// entry point.
func Load() (Config, error) {
	cfg := Config{
		GeminiModel:        strings.TrimSpace(getEnv("GEMINI_MODEL", "gemini-2.5-flash-image")),
		GeminiBaseURL:      strings.TrimSpace(getEnv("GEMINI_BASE_URL", "")),
		GeminiAPIVersion:   strings.TrimSpace(getEnv("GEMINI_API_VERSION", "")),
		WebAddr:            strings.TrimSpace(getEnv("WEB_ADDR", ":8080")),
		LogLevel:           strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", "info"))),
		Debug:              getEnvBool("DEBUG", false),
		PreferIPv4:         getEnvBool("PREFER_IPV4", true),
		HTTPTimeout:        time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 180)) * time.Second,
		RequestTimeout:     time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 300)) * time.Second,
		MaxConcurrent:      getEnvInt("MAX_CONCURRENT", 4),
		MediaGroupDebounce: time.Duration(getEnvInt("MEDIA_GROUP_DEBOUNCE_MS", 1200)) * time.Millisecond,
		SessionTTL:         time.Duration(getEnvInt("SESSION_TTL_MINUTES", 120)) * time.Minute,
		CanvasFollowsRatio: getEnvBool("CANVAS_FOLLOWS_RATIO", false),
		CatalogFile:        strings.TrimSpace(os.Getenv("CATALOG_FILE")),
	}

	cfg.GeminiAPIKey = strings.TrimSpace(getEnv("GEMINI_API_KEY", os.Getenv("API_KEY")))
	cfg.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))

	if cfg.GeminiAPIKey == "" {
		return Config{}, errors.New("GEMINI_API_KEY is required")
	}

	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 180 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 300 * time.Second
	}
	if cfg.MediaGroupDebounce <= 0 {
		cfg.MediaGroupDebounce = 1200 * time.Millisecond
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 120 * time.Minute
	}

	return cfg, nil
}

func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
