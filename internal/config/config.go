package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port        string
	Env         string
	DatabaseURL string // PostgreSQL; takes precedence over SQLitePath
	SQLitePath  string
	RedisURL    string

	// Room tunables
	RPCodeLength    int
	RPCodeChars     string
	MaxTitleLen     int
	MaxDescLen      int
	MaxCharaNameLen int
	MaxContentLen   int
	PageSize        int
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  os.Getenv("SQLITE_PATH"),
		RedisURL:    os.Getenv("REDIS_URL"),

		RPCodeLength:    getEnvInt("RP_CODE_LENGTH", 8),
		RPCodeChars:     getEnv("RP_CODE_CHARS", "abcdefhjknpstxyz23456789"),
		MaxTitleLen:     getEnvInt("MAX_TITLE_LENGTH", 30),
		MaxDescLen:      getEnvInt("MAX_DESC_LENGTH", 255),
		MaxCharaNameLen: getEnvInt("MAX_CHARA_NAME_LENGTH", 30),
		MaxContentLen:   getEnvInt("MAX_MESSAGE_CONTENT_LENGTH", 10000),
		PageSize:        getEnvInt("PAGE_SIZE", 20),
	}

	// In production, require a durable store
	if cfg.Env == "production" {
		if cfg.DatabaseURL == "" && cfg.SQLitePath == "" {
			panic("DATABASE_URL or SQLITE_PATH is required in production")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
