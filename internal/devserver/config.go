package devserver

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the dev server settings, read from the environment with
// an optional .env file.
type Config struct {
	Addr         string
	WriteTimeout time.Duration
	Debug        bool
}

// LoadConfig reads configuration from the environment. A missing .env
// file is fine; the defaults serve a local client out of the box.
func LoadConfig() Config {
	_ = godotenv.Load()

	return Config{
		Addr:         getEnvOrDefault("CYBOX_ADDR", ":3001"),
		WriteTimeout: getDurationOrDefault("CYBOX_WRITE_TIMEOUT", 10*time.Second),
		Debug:        os.Getenv("CYBOX_DEBUG") != "",
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
