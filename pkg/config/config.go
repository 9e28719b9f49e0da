package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// DefaultScope is requested when a session does not supply its own scope.
const DefaultScope = "tasks:read tasks:write"

type Config struct {
	Port             string
	DataDir          string
	DatabaseURL      string
	DidaClientID     string
	DidaClientSecret string
	DidaRedirectURI  string
	DidaAuthBaseURL  string
	DidaAPIBaseURL   string
	TimeSource       string
	SyncInterval     time.Duration
	SyncDelay        time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	syncInterval := 1 * time.Hour
	if v := os.Getenv("SYNC_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			syncInterval = parsed
		}
	}

	syncDelay := 500 * time.Millisecond
	if v := os.Getenv("SYNC_DELAY"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			syncDelay = parsed
		}
	}

	port := getEnv("PORT", "36500")

	return &Config{
		Port:             port,
		DataDir:          getEnv("DATA_DIR", "data"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		DidaClientID:     getEnv("DIDA_CLIENT_ID", ""),
		DidaClientSecret: getEnv("DIDA_CLIENT_SECRET", ""),
		DidaRedirectURI:  getEnv("DIDA_REDIRECT_URI", "http://localhost:"+port+"/oauth/callback"),
		DidaAuthBaseURL:  getEnv("DIDA_AUTH_BASE_URL", "https://dida365.com"),
		DidaAPIBaseURL:   getEnv("DIDA_API_BASE_URL", "https://api.dida365.com"),
		TimeSource:       getEnv("TIME_SOURCE", "Asia/Shanghai"),
		SyncInterval:     syncInterval,
		SyncDelay:        syncDelay,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
