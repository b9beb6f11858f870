package confs

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries the gateway tunables. Zero-config deployments get the
// documented protocol defaults.
type Config struct {
	Port string

	RateLimit       int
	RateWindow      time.Duration
	FreshnessWindow time.Duration
	NonceCacheSize  int
	StoreTimeout    time.Duration
}

// LoadConfig loads environment variables from a .env file if present
// and validates essential settings when needed.
func LoadConfig() error {
	// Load .env if it exists; ignore error if file not found
	if err := godotenv.Load(); err != nil {
		// Only log when the file truly doesn't exist; not an error for runtime
		if !os.IsNotExist(err) {
			log.Printf("warning: could not load .env: %v", err)
		}
	}
	return nil
}

// FromEnv builds the runtime config from the environment.
func FromEnv() *Config {
	return &Config{
		Port:            getEnv("PORT", "3536"),
		RateLimit:       getEnvInt("GATEWAY_RATE_LIMIT", 10),
		RateWindow:      getEnvDuration("GATEWAY_RATE_WINDOW", 60*time.Second),
		FreshnessWindow: getEnvDuration("GATEWAY_FRESHNESS_WINDOW", 300*time.Second),
		NonceCacheSize:  getEnvInt("GATEWAY_NONCE_CACHE_SIZE", 1000),
		StoreTimeout:    getEnvDuration("GATEWAY_STORE_TIMEOUT", 5*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("warning: %s=%q is not an integer, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("warning: %s=%q is not a duration, using %v", key, v, fallback)
		return fallback
	}
	return d
}
