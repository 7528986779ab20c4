package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultServerPort              = 8080
	DefaultFinalizeTimeout         = 60 * time.Second
	DefaultTemplateRefreshInterval = 10 * time.Minute
)

// Config holds the process settings read from the environment.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int

	// RedisURL enables the cache and stream notifications when set.
	RedisURL string

	FinalizeTimeout         time.Duration
	TemplateRefreshInterval time.Duration
	RulesFile               string

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
}

// Load reads the configuration from environment variables. A .env file is
// loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port := DefaultServerPort
	if portStr := os.Getenv("SERVER_PORT"); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
		}
		port = p
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	finalizeTimeout, err := durationEnv("FINALIZE_TIMEOUT", DefaultFinalizeTimeout)
	if err != nil {
		return nil, err
	}
	refreshInterval, err := durationEnv("TEMPLATE_REFRESH_INTERVAL", DefaultTemplateRefreshInterval)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:             dbURL,
		JWTSecretKey:            jwtKey,
		ServerPort:              port,
		RedisURL:                os.Getenv("REDIS_URL"),
		FinalizeTimeout:         finalizeTimeout,
		TemplateRefreshInterval: refreshInterval,
		RulesFile:               os.Getenv("RULES_FILE"),
		R2AccountID:             os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:           os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey:       os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:            os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:         os.Getenv("R2_PUBLIC_BASE_URL"),
	}

	return cfg, nil
}

func durationEnv(name string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", name, d)
	}
	return d, nil
}
