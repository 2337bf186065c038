package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings. Every field comes from a BYWATER_*
// environment variable; a local .env file is honored in development.
type Config struct {
	Port           string
	DBPath         string
	BaseURL        string
	LogLevel       string
	SessionBackend string // "memory" or "sqlite"
	PostmarkToken  string
	FromEmail      string
}

// Load reads configuration from the environment, applying defaults for
// anything unset.
func Load() Config {
	// Missing .env is fine; real deployments set the environment directly.
	godotenv.Load()

	cfg := Config{
		Port:           getenv("BYWATER_PORT", "8080"),
		DBPath:         getenv("BYWATER_DB_PATH", "bywater.db"),
		BaseURL:        getenv("BYWATER_BASE_URL", "http://localhost:8080"),
		LogLevel:       getenv("BYWATER_LOG_LEVEL", "info"),
		SessionBackend: getenv("BYWATER_SESSION_BACKEND", "memory"),
		PostmarkToken:  os.Getenv("BYWATER_POSTMARK_TOKEN"),
		FromEmail:      getenv("BYWATER_FROM_EMAIL", "no-reply@bywater.local"),
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
