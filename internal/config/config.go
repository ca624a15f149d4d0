// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"sparkwallet/pkg/db" // Import db package for its Config struct
)

// AppConfig holds all application-wide configurations.
type AppConfig struct {
	ServerPort string
	DB         db.Config

	// CommerceBaseURL is the base URL of the external order store queried by
	// the billing history reader.
	CommerceBaseURL string
	// CommerceTimeout bounds every call to the commerce collaborator.
	CommerceTimeout time.Duration

	// WebhookSecret signs payment/subscription provider callbacks (HMAC-SHA256).
	WebhookSecret string
}

// LoadConfig loads configuration from environment variables, after overlaying
// any local .env / .env.dev files. It returns an AppConfig instance or an
// error if any required variable is invalid.
func LoadConfig() (*AppConfig, error) {
	loadEnvFiles()

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	commerceTimeout, err := time.ParseDuration(getEnv("COMMERCE_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid COMMERCE_TIMEOUT: %w", err)
	}

	return &AppConfig{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		DB: db.Config{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			DBName:   getEnv("DB_NAME", "sparkwallet"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		CommerceBaseURL: getEnv("COMMERCE_BASE_URL", "http://localhost:8090"),
		CommerceTimeout: commerceTimeout,
		WebhookSecret:   getEnv("WEBHOOK_SECRET", ""),
	}, nil
}

// loadEnvFiles overlays local env files onto the process environment. Missing
// files are not an error; deployments rely on the process environment alone.
func loadEnvFiles() {
	for _, file := range []string{".env", ".env.dev"} {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		_ = godotenv.Overload(file)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
