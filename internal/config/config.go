package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr          string
	DatabaseURL   string
	MigrationsDir string
	SessionSecret string
	SessionTTL    time.Duration
	PublishLogDir string
	CORSOrigin    string
	MeiliURL      string
	MeiliAPIKey   string
	RedisURL      string
}

func Load() Config {
	return Config{
		Addr: getenv("API_ADDR", ":8686"),
		// Empty means the in-memory store; the API carries no persistence
		// requirement of its own.
		DatabaseURL:   getenv("DATABASE_URL", ""),
		MigrationsDir: getenv("PORTAL_MIGRATIONS_DIR", "./db/migrations"),
		SessionSecret: getenv("PORTAL_SESSION_SECRET", "portal-dev-secret"),
		SessionTTL:    time.Duration(getenvInt("PORTAL_SESSION_TTL_SECONDS", 43200)) * time.Second,
		PublishLogDir: getenv("PORTAL_PUBLISH_LOG_DIR", "./data/publishes"),
		CORSOrigin:    getenv("PORTAL_CORS_ORIGIN", "*"),
		MeiliURL:      getenv("MEILI_URL", ""),
		MeiliAPIKey:   getenv("MEILI_MASTER_KEY", ""),
		RedisURL:      getenv("REDIS_URL", ""),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
