package config

import (
	"os"
	"strconv"
	"time"

	"gatepass/internal/cache"
	"gatepass/internal/database"
	"gatepass/internal/external"
	"gatepass/internal/messaging"
)

// Config содержит конфигурацию приложения
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	// Retry queue policy
	RetryMaxAttempts int

	// Webhook endpoint abuse protection
	RateLimitPerMinute int

	// Event-id dedup cache; empty RedisAddr disables it
	RedisAddr string

	Database database.Config
	NATS     messaging.Config
	Stripe   external.StripeConfig
	Cache    cache.Config
}

// Load загружает конфигурацию из переменных окружения
func Load() *Config {
	redisAddr := getEnv("REDIS_ADDR", "")

	return &Config{
		Port:           getEnv("PORT", "8081"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		RetryMaxAttempts:   getEnvInt("RETRY_MAX_ATTEMPTS", 5),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		RedisAddr:          redisAddr,

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "gatepass"),
			Password:           getEnv("DB_PASSWORD", "gatepass123"),
			DBName:             getEnv("DB_NAME", "gatepass"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "gatepass"),
			ClientID:  getEnv("NATS_CLIENT_ID", "gatepass-api"),
		},

		Stripe: external.StripeConfig{
			BaseURL:       getEnv("STRIPE_API_URL", "https://api.stripe.com"),
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
			Timeout:       time.Duration(getEnvInt("STRIPE_TIMEOUT_SEC", 30)) * time.Second,
		},

		Cache: cache.Config{
			Addr:     redisAddr,
			Password: getEnv("REDIS_PASSWORD", ""),
			TTL:      time.Duration(getEnvInt("DEDUP_TTL_HOURS", 24)) * time.Hour,
		},
	}
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает целочисленное значение переменной окружения
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
