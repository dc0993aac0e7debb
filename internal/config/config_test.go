package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORAGE", "DATABASE_URL", "DB_MAX_CONNS", "JWT_SECRET", "TOKEN_TTL", "SQL_LOG", "SEED"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StorageInMemory, cfg.Storage)
	assert.Equal(t, int32(10), cfg.DBMaxConns)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.False(t, cfg.SQLLog)
	assert.True(t, cfg.Seed)

	require.NoError(t, cfg.Validate())
	assert.NotEmpty(t, cfg.JWTSecret)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("STORAGE", StoragePostgres)
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/blog")
	t.Setenv("DB_MAX_CONNS", "25")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("TOKEN_TTL", "1h")
	t.Setenv("SQL_LOG", "true")
	t.Setenv("SEED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Config{
		Port:        "9000",
		Storage:     StoragePostgres,
		DatabaseURL: "postgres://u:p@localhost:5432/blog",
		DBMaxConns:  25,
		JWTSecret:   "secret",
		TokenTTL:    time.Hour,
		SQLLog:      true,
		Seed:        false,
	}, cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("TOKEN_TTL", "soon")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("TOKEN_TTL", "")
	t.Setenv("DB_MAX_CONNS", "many")
	_, err = Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Config{Storage: StoragePostgres, JWTSecret: "s", TokenTTL: time.Hour, DBMaxConns: 1}
	assert.Error(t, cfg.Validate(), "postgres without DATABASE_URL")

	cfg.DatabaseURL = "postgres://localhost/blog"
	cfg.JWTSecret = ""
	assert.Error(t, cfg.Validate(), "postgres without JWT_SECRET")

	cfg = Config{Storage: "sqlite", TokenTTL: time.Hour, DBMaxConns: 1}
	assert.Error(t, cfg.Validate())
}
