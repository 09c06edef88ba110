package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis profile cache
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// Robokassa merchant credentials. Password2 signs result callbacks,
	// Password1 signs outgoing payment links.
	RobokassaLogin     string
	RobokassaPassword1 string
	RobokassaPassword2 string
	RobokassaTestMode  bool

	// Subscription behaviour
	RecurringDefault     bool
	RecurringMaxAttempts int
	FreeTariffID         int64

	// Per-call deadline for store and cache access inside the webhook.
	StoreTimeout time.Duration

	// Server
	Port string
}

func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "neuropay"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       parseInt(getEnv("REDIS_DB", "0"), 0),
		CacheTTL:      parseDuration(getEnv("CACHE_TTL", "24h"), 24*time.Hour),

		RobokassaLogin:     getEnv("ROBOKASSA_LOGIN", ""),
		RobokassaPassword1: getEnv("ROBOKASSA_PASS_1", ""),
		RobokassaPassword2: getEnv("ROBOKASSA_PASS_2", ""),
		RobokassaTestMode:  getEnv("ROBOKASSA_TEST_MODE", "false") == "true",

		RecurringDefault:     getEnv("RECURRING_DEFAULT", "true") == "true",
		RecurringMaxAttempts: parseInt(getEnv("RECURRING_MAX_ATTEMPTS", "3"), 3),
		FreeTariffID:         int64(parseInt(getEnv("FREE_TARIFF_ID", "1"), 1)),

		StoreTimeout: parseDuration(getEnv("STORE_TIMEOUT", "5s"), 5*time.Second),

		Port: getEnv("PORT", "8080"),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
