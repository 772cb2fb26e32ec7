package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is built once by Load and handed to collaborators explicitly.
// Nothing in the application reads environment variables after startup.
type Config struct {
	Env  string
	Port int

	// DBURL empty means "no database configured": the server runs on the
	// in-memory store, which is only meant for local development and tests.
	DBURL string

	JWTSecret    string
	JWTAccessTTL time.Duration
	JWTResetTTL  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RateLimitRequests     int
	RateLimitAuthRequests int
	RateLimitWindow       time.Duration

	CORSOrigins  []string
	MaxBodyBytes int64

	OtelEndpoint string

	AdminEmail    string
	AdminUsername string
	AdminPassword string
	AdminName     string
}

var ErrMissingJWTSecret = errors.New("config: JWT_SECRET must be set")

// Load reads the environment (plus an optional .env file) into a Config.
// A missing JWT secret is a hard error: serving with an unsigned-token
// setup is never acceptable, not even in dev.
func Load() (Config, error) {
	// .env is optional and never overrides real environment variables.
	_ = godotenv.Load()

	cfg := Config{
		Env:  getEnv("APP_ENV", "dev"),
		Port: getEnvInt("PORT", 8080),

		DBURL: getEnv("DATABASE_URL", buildDBURL()),

		JWTSecret:    os.Getenv("JWT_SECRET"),
		JWTAccessTTL: time.Duration(getEnvInt("JWT_ACCESS_TTL_MINUTES", 30)) * time.Minute,
		JWTResetTTL:  time.Duration(getEnvInt("JWT_RESET_TTL_MINUTES", 60)) * time.Minute,

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RateLimitRequests:     getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitAuthRequests: getEnvInt("RATE_LIMIT_AUTH_REQUESTS", 10),
		RateLimitWindow:       time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,

		CORSOrigins:  splitList(os.Getenv("CORS_ORIGINS")),
		MaxBodyBytes: int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),

		OtelEndpoint: os.Getenv("OTEL_ENDPOINT"),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminUsername: os.Getenv("ADMIN_USERNAME"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		AdminName:     os.Getenv("ADMIN_NAME"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, ErrMissingJWTSecret
	}
	if cfg.JWTAccessTTL <= 0 {
		return Config{}, fmt.Errorf("config: JWT_ACCESS_TTL_MINUTES must be positive, got %s", cfg.JWTAccessTTL)
	}
	if cfg.RateLimitWindow <= 0 {
		return Config{}, fmt.Errorf("config: RATE_LIMIT_WINDOW_SECONDS must be positive, got %s", cfg.RateLimitWindow)
	}

	return cfg, nil
}

// buildDBURL composes a postgres URL from DB_* parts. DB_HOST unset means
// no database was configured at all.
func buildDBURL() string {
	host := os.Getenv("DB_HOST")
	if host == "" {
		return ""
	}

	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "posthub")
	pass := getEnv("DB_PASSWORD", "posthub")
	name := getEnv("DB_NAME", "posthub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
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

	num, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return num
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
