package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"duka-service/internal/pkg/clickpesa"
	"duka-service/internal/pkg/jwt"
	"duka-service/internal/pkg/logger"
	"duka-service/internal/service/entitlement"
)

type AppConfig struct {
	// Server
	HTTPAddr string
	Env      string
	TimeZone string
	// Dashboard origins allowed by CORS. Empty allows any origin without credentials.
	CORSOrigins []string

	// Postgres. Empty URL runs on the in-memory repositories.
	DatabaseURL string
	DBMaxConns  int

	// Redis. Empty address keeps the gateway token in process.
	RedisAddr string
	RedisPass string
	RedisDB   int

	JWT       jwt.Config
	ClickPesa clickpesa.Config
	Gate      entitlement.Policy
	Log       logger.Config

	ShutdownTimeout time.Duration
}

func (c AppConfig) IsDevelopment() bool {
	return c.Env == "development"
}

// Load loads environment variables into AppConfig.
func Load() AppConfig {
	env := getEnv("APP_ENV", "production")

	return AppConfig{
		HTTPAddr: getEnv("HTTP_ADDR", ":8000"),
		Env:      env,
		TimeZone: getEnv("APP_TIMEZONE", "Africa/Dar_es_Salaam"),

		CORSOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", nil),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		DBMaxConns:  getEnvInt("DB_MAX_CONNS", 10),

		RedisAddr: getEnv("REDIS_ADDR", ""),
		RedisPass: getEnv("REDIS_PASS", ""),
		RedisDB:   getEnvInt("REDIS_DB", 0),

		JWT: jwt.Config{
			PrivPath: getEnv("JWT_PRIVATE_KEY_PATH", ""),
			PubPath:  getEnv("JWT_PUBLIC_KEY_PATH", "/app/secrets/jwt_public.pem"),
			Issuer:   getEnv("JWT_ISSUER", "duka"),
			Audience: getEnv("JWT_AUDIENCE", "duka-api"),
			TTL:      getEnvDuration("JWT_TTL", 720*time.Hour),
			KID:      getEnv("JWT_KID", "duka-key"),
		},

		ClickPesa: clickpesa.Config{
			BaseURL:     getEnv("CLICKPESA_API_URL", "https://api.clickpesa.com/third-parties"),
			ClientID:    getEnv("CLICKPESA_CLIENT_ID", ""),
			APIKey:      getEnv("CLICKPESA_API_KEY", ""),
			ChecksumKey: getEnv("CLICKPESA_CHECKSUM_KEY", ""),
			Currency:    getEnv("CLICKPESA_CURRENCY", "TZS"),
			Timeout:     getEnvDuration("CLICKPESA_TIMEOUT", 30*time.Second),
			TokenTTL:    getEnvDuration("CLICKPESA_TOKEN_TTL", 55*time.Minute),
		},

		Gate: entitlement.Policy{
			FailOpenOnError: getEnvBool("GATE_FAIL_OPEN_ON_ERROR", true),
			AllowWhenNoShop: getEnvBool("GATE_ALLOW_WHEN_NO_SHOP", true),
			AllowPaths:      getEnvSlice("GATE_ALLOW_PATHS", entitlement.DefaultAllowPaths),
			PricingPath:     getEnv("GATE_PRICING_PATH", "/pricing"),
			TrialDays:       getEnvInt("GATE_TRIAL_DAYS", 7),
		},

		Log: logger.Config{
			Level:       getEnv("LOG_LEVEL", "info"),
			File:        getEnv("LOG_FILE", ""),
			Development: env == "development",
		},

		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// --- Helper functions ---

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
