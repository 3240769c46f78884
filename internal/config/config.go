package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go-parts-ledger/internal/model"
	"go-parts-ledger/pkg/database"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Port     string
	LogLevel string
	Database database.Config

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// LedgerStart is the first open period of a fresh ledger. Ignored once the
	// ledger state exists.
	LedgerStart    model.Period
	SaleMaxRetries int
	PeriodLockTTL  time.Duration
}

// LoadEnv reads a .env file into the environment when one exists.
func LoadEnv(log *logrus.Logger, files ...string) {
	if err := godotenv.Load(files...); err != nil && log != nil {
		log.Warn("no .env file found, using environment variables")
	}
}

func Load() (Config, error) {
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return Config{}, fmt.Errorf("REDIS_DB: %w", err)
	}

	retries, err := strconv.Atoi(getEnv("SALE_MAX_RETRIES", "3"))
	if err != nil || retries < 1 {
		return Config{}, fmt.Errorf("SALE_MAX_RETRIES must be a positive integer, got %q", os.Getenv("SALE_MAX_RETRIES"))
	}

	lockTTL, err := strconv.Atoi(getEnv("PERIOD_LOCK_TTL_SECONDS", "30"))
	if err != nil || lockTTL < 1 {
		return Config{}, fmt.Errorf("PERIOD_LOCK_TTL_SECONDS must be a positive integer, got %q", os.Getenv("PERIOD_LOCK_TTL_SECONDS"))
	}

	start := model.PeriodOf(time.Now())
	if raw := strings.TrimSpace(os.Getenv("LEDGER_START")); raw != "" {
		start, err = model.ParsePeriod(raw)
		if err != nil {
			return Config{}, fmt.Errorf("LEDGER_START: %w", err)
		}
	}

	cfg := Config{
		Port:     getEnv("PORT", "3000"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Database: database.Config{
			DSN:      os.Getenv("DATABASE_URL"),
			Host:     getEnv("DB_HOST", "localhost"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
			Port:     getEnv("DB_PORT", "5432"),
			TimeZone: getEnv("DB_TIMEZONE", "UTC"),
		},
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        redisDB,
		LedgerStart:    start,
		SaleMaxRetries: retries,
		PeriodLockTTL:  time.Duration(lockTTL) * time.Second,
	}
	return cfg, nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
