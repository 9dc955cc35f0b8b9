package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings. Values come from the environment
// (optionally seeded by a .env file) with development-friendly defaults
// for everything except the platform credentials.
type Config struct {
	AppName      string
	Port         string
	PublicDomain string
	DBPath       string

	// RedisAddr selects the shared session store; empty means the
	// in-process store.
	RedisAddr string

	SessionTTL  time.Duration
	HTTPTimeout time.Duration

	// Payments platform credentials and endpoints.
	PlatformSecretKey    string
	PlatformClientID     string
	PlatformAuthorizeURI string
	PlatformTokenURI     string
	PlatformAPIBase      string

	LogLevel string
}

// Load reads configuration from the environment.
func Load() *Config {
	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	return &Config{
		AppName:      getEnv("APP_NAME", "Rocket Rides"),
		Port:         getEnv("PORT", "8080"),
		PublicDomain: getEnv("PUBLIC_DOMAIN", "http://localhost:8080"),
		DBPath:       getEnv("DB_PATH", "rocketrides.db"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),

		SessionTTL:  getDuration("SESSION_TTL", 15*time.Minute),
		HTTPTimeout: getDuration("HTTP_TIMEOUT", 10*time.Second),

		PlatformSecretKey:    os.Getenv("PLATFORM_SECRET_KEY"),
		PlatformClientID:     os.Getenv("PLATFORM_CLIENT_ID"),
		PlatformAuthorizeURI: getEnv("PLATFORM_AUTHORIZE_URI", "https://connect.stripe.com/express/oauth/authorize"),
		PlatformTokenURI:     getEnv("PLATFORM_TOKEN_URI", "https://connect.stripe.com/oauth/token"),
		PlatformAPIBase:      getEnv("PLATFORM_API_BASE", "https://api.stripe.com"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return defaultValue
	}
	return d
}
