package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds application configuration
type Config struct {
	Port     string `validate:"required,numeric"`
	Env      string `validate:"required"`
	LogLevel string `validate:"oneof=debug info warn error"`

	// Remote hospital API
	HospitalAPIBaseURL string        `validate:"required,url"`
	HospitalAPIToken   string
	HospitalAPITimeout time.Duration `validate:"gt=0"`

	// Booking workflow
	BookingTimezone       string        `validate:"required"`
	BookingSessionTTL     time.Duration `validate:"gt=0"`
	BookingSubmitGuardTTL time.Duration `validate:"gt=0"`

	// Optional Redis for the cross-replica submit guard. Empty address disables it.
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// HTTP surface
	CORSAllowedOrigins []string
	StaffJWTSecret     string
	RateLimitRPS       float64 `validate:"gte=0"`
	RateLimitBurst     int     `validate:"gte=0"`
	// TrustProxy honours X-Forwarded-For / X-Real-IP. Enable only behind a
	// proxy that overwrites them; otherwise clients pick their own rate-limit key.
	TrustProxy bool
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),

		HospitalAPIBaseURL: strings.TrimRight(getEnv("HOSPITAL_API_BASE_URL", "http://localhost:5000/api"), "/"),
		HospitalAPIToken:   getEnv("HOSPITAL_API_TOKEN", ""),
		HospitalAPITimeout: getEnvAsDuration("HOSPITAL_API_TIMEOUT", 15*time.Second),

		BookingTimezone:       getEnv("BOOKING_TIMEZONE", "UTC"),
		BookingSessionTTL:     getEnvAsDuration("BOOKING_SESSION_TTL", 30*time.Minute),
		BookingSubmitGuardTTL: getEnvAsDuration("BOOKING_SUBMIT_GUARD_TTL", 30*time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		StaffJWTSecret:     getEnv("STAFF_JWT_SECRET", ""),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),
		TrustProxy:         getEnvAsBool("TRUST_PROXY", false),
	}
}

// Validate checks the loaded values. The booking timezone must also resolve
// to a known location.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config: nil config")
	}
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := c.BookingLocation(); err != nil {
		return err
	}
	return nil
}

// BookingLocation resolves BookingTimezone. "Today" for appointment dates is
// evaluated in this location.
func (c *Config) BookingLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.BookingTimezone)
	if err != nil {
		return nil, fmt.Errorf("config: invalid BOOKING_TIMEZONE %q: %w", c.BookingTimezone, err)
	}
	return loc, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
