package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries the settings for both processes. The gateway ignores the
// database settings; the user service ignores the HTTP and JWT settings.
type Config struct {
	Environment string

	// Gateway HTTP server
	ServerHost string
	ServerPort string

	// JWT (gateway only)
	JWTSecret      string
	AccessTokenTTL time.Duration

	// Postgres (user service only)
	DatabaseURL string

	// Redis broker shared by both processes
	RedisURL string

	// RPC budgets
	RPCCallTimeout  time.Duration
	RPCQueryTimeout time.Duration
	RPCPrefetch     int

	// Logging
	LogLevel  string
	LogFormat string
}

var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")
	ErrMissingJWTSecret   = errors.New("JWT_SECRET is required")
	ErrInvalidTokenTTL    = errors.New("invalid token TTL format")
)

// Load reads the environment, preferring an .env file when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment:     getEnvOrDefault("ENV", "development"),
		ServerHost:      getEnvOrDefault("SERVER_HOST", "localhost"),
		ServerPort:      getEnvOrDefault("SERVER_PORT", "8080"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		RPCCallTimeout:  getEnvOrDefaultDuration("RPC_CALL_TIMEOUT", 5*time.Second),
		RPCQueryTimeout: getEnvOrDefaultDuration("RPC_QUERY_TIMEOUT", 10*time.Second),
		RPCPrefetch:     getEnvOrDefaultInt("RPC_PREFETCH", 8),
		LogLevel:        getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       getEnvOrDefault("LOG_FORMAT", "json"),
	}

	accessTokenTTL, err := parseTokenTTL(getEnvOrDefault("JWT_ACCESS_TOKEN_TTL", "900"))
	if err != nil {
		return nil, ErrInvalidTokenTTL
	}
	cfg.AccessTokenTTL = accessTokenTTL

	return cfg, nil
}

// ValidateGateway checks the fields the gateway process cannot run without.
func (c *Config) ValidateGateway() error {
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	return nil
}

// ValidateUserService checks the fields the user service cannot run without.
func (c *Config) ValidateUserService() error {
	if c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func getEnvOrDefaultDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		// numeric values are seconds, anything else parses as a Go duration
		if n, err := strconv.Atoi(value); err == nil {
			return time.Duration(n) * time.Second
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return defaultValue
		}
		return d
	}
	return defaultValue
}

func parseTokenTTL(value string) (time.Duration, error) {
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds) * time.Second, nil
}
