package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config carries the process-wide settings resolved at startup.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	// AdminEmails is the set of addresses promoted to admin on sign-in.
	AdminEmails []string

	AuthCookieSecure bool

	OTLPEndpoint    string
	MetricsEnabled  bool
	MetricsExporter string
	MetricsEndpoint string

	DBDriver   string
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	RateLimitEnabled bool
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppName:     getenv("APP_NAME", "taskhive"),
		AppVersion:  getenv("APP_VERSION", "dev"),
		Environment: normalizeEnvironment(getenv("DEPLOY_ENV", EnvDevelopment)),

		AdminEmails: parseEmails(os.Getenv("ADMIN")),

		AuthCookieSecure: getenvBool("AUTH_COOKIE_SECURE", false),

		OTLPEndpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		MetricsEnabled:  getenvBool("METRICS_ENABLED", false),
		MetricsExporter: getenv("METRICS_EXPORTER", "grpc"),
		MetricsEndpoint: getenv("METRICS_ENDPOINT", ""),

		DBDriver:   getenv("DB_DRIVER", "sqlite"),
		DBHost:     getenv("DB_HOST", "localhost"),
		DBPort:     getenvInt("DB_PORT", 5432),
		DBUser:     getenv("DB_USER", "taskhive"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getenv("DB_NAME", "taskhive"),
		DBSSLMode:  getenv("DB_SSLMODE", "disable"),

		RateLimitEnabled: getenvBool("RATE_LIMIT_ENABLED", false),
		RedisAddr:        getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          getenvInt("REDIS_DB", 0),
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// IsAdminEmail reports whether email is listed in ADMIN. Matching is
// case-insensitive.
func (c *Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	for _, a := range c.AdminEmails {
		if a == email {
			return true
		}
	}
	return false
}

func normalizeEnvironment(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "prod", "production":
		return EnvProduction
	default:
		return EnvDevelopment
	}
}

func parseEmails(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
