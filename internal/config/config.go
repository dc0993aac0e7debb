package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

const (
	StorageInMemory = "in-memory"
	StoragePostgres = "postgres"

	defaultPort     = "8080"
	defaultTokenTTL = 24 * time.Hour
	defaultMaxConns = 10
)

// Config - настройки процесса. Значения берутся из окружения (и .env),
// флаги командной строки их переопределяют.
type Config struct {
	Port        string
	Storage     string
	DatabaseURL string
	DBMaxConns  int32
	JWTSecret   string
	TokenTTL    time.Duration
	SQLLog      bool
	Seed        bool
}

// Load читает .env (если он есть) и переменные окружения.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Config{
		Port:        getenv("PORT", defaultPort),
		Storage:     getenv("STORAGE", StorageInMemory),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
	}

	maxConns, err := strconv.ParseInt(getenv("DB_MAX_CONNS", strconv.Itoa(defaultMaxConns)), 10, 32)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}
	cfg.DBMaxConns = int32(maxConns)

	if cfg.TokenTTL, err = time.ParseDuration(getenv("TOKEN_TTL", defaultTokenTTL.String())); err != nil {
		return Config{}, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}
	if cfg.SQLLog, err = strconv.ParseBool(getenv("SQL_LOG", "false")); err != nil {
		return Config{}, fmt.Errorf("invalid SQL_LOG: %w", err)
	}
	if cfg.Seed, err = strconv.ParseBool(getenv("SEED", "true")); err != nil {
		return Config{}, fmt.Errorf("invalid SEED: %w", err)
	}
	return cfg, nil
}

// Validate проверяет итоговую конфигурацию после разбора флагов.
// Без JWT_SECRET in-memory режим получает случайный секрет на время жизни процесса.
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageInMemory:
		if c.JWTSecret == "" {
			c.JWTSecret = uuid.NewString()
			log.Printf("JWT_SECRET is not set, using a random secret; tokens will not survive a restart")
		}
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL must be set for postgres storage")
		}
		if c.JWTSecret == "" {
			return errors.New("JWT_SECRET must be set for postgres storage")
		}
	default:
		return fmt.Errorf("unknown storage %q (want %s or %s)", c.Storage, StorageInMemory, StoragePostgres)
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if c.DBMaxConns <= 0 {
		return errors.New("DB_MAX_CONNS must be positive")
	}
	return nil
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
