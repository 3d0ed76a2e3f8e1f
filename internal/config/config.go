package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
	DriverRedis  = "redis"
)

// Config is loaded once at process start and never changed afterwards.
type Config struct {
	HTTPAddr string
	LogLevel slog.Level

	TokenSecret []byte
	TokenExpiry time.Duration
	HashCost    int

	StoreDriver   string
	SQLitePath    string
	MongoURL      string
	MongoDatabase string
	RedisAddr     string

	OtelCollector string
}

// Load reads the configuration from the environment, after loading a .env
// file if one is present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		TokenSecret:   []byte(os.Getenv("TOKEN_SECRET")),
		StoreDriver:   strings.ToLower(getenv("STORE_DRIVER", DriverSQLite)),
		SQLitePath:    getenv("SQLITE_PATH", "./master.db"),
		MongoURL:      getenv("MONGO_URL", "mongodb://localhost:27017"),
		MongoDatabase: getenv("MONGO_DATABASE", "todo"),
		RedisAddr:     getenv("REDIS_CONNSTRING", "localhost:6379"),
		OtelCollector: os.Getenv("OTEL_COLLECTOR"),
	}

	if len(cfg.TokenSecret) == 0 {
		return nil, errors.New("TOKEN_SECRET is required")
	}

	var err error
	if cfg.TokenExpiry, err = time.ParseDuration(getenv("TOKEN_EXPIRY", "12h")); err != nil {
		return nil, fmt.Errorf("invalid TOKEN_EXPIRY: %w", err)
	}
	if cfg.TokenExpiry <= 0 {
		return nil, fmt.Errorf("TOKEN_EXPIRY must be positive, got %s", cfg.TokenExpiry)
	}

	if cfg.HashCost, err = strconv.Atoi(getenv("HASH_COST", "10")); err != nil {
		return nil, fmt.Errorf("invalid HASH_COST: %w", err)
	}
	if cfg.HashCost < bcrypt.MinCost || cfg.HashCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("HASH_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	switch cfg.StoreDriver {
	case DriverSQLite, DriverMongo, DriverRedis:
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getenv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	return cfg, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
