package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
)

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config holds the service settings read from the environment.
type Config struct {
	Addr          string
	LogLevel      zapcore.Level
	SessionStore  string
	SQLitePath    string
	SessionTTL    time.Duration
	SweepInterval time.Duration
	ExportLogs    bool
}

// Load reads .env when present (existing variables win) and then the
// process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		Addr:         get("CALC_ADDR", ":8080"),
		SessionStore: get("CALC_SESSION_STORE", StoreMemory),
		SQLitePath:   get("CALC_SQLITE_PATH", "calculator.db"),
	}

	var err error
	if cfg.LogLevel, err = zapcore.ParseLevel(get("CALC_LOG_LEVEL", "info")); err != nil {
		return Config{}, fmt.Errorf("CALC_LOG_LEVEL: %w", err)
	}
	if cfg.SessionTTL, err = time.ParseDuration(get("CALC_SESSION_TTL", "30m")); err != nil {
		return Config{}, fmt.Errorf("CALC_SESSION_TTL: %w", err)
	}
	if cfg.SweepInterval, err = time.ParseDuration(get("CALC_SWEEP_INTERVAL", "1m")); err != nil {
		return Config{}, fmt.Errorf("CALC_SWEEP_INTERVAL: %w", err)
	}
	if cfg.SweepInterval <= 0 {
		return Config{}, fmt.Errorf("CALC_SWEEP_INTERVAL: must be positive, got %s", cfg.SweepInterval)
	}
	if cfg.ExportLogs, err = strconv.ParseBool(get("CALC_OTLP_LOGS", "false")); err != nil {
		return Config{}, fmt.Errorf("CALC_OTLP_LOGS: %w", err)
	}

	switch cfg.SessionStore {
	case StoreMemory, StoreSQLite:
	default:
		return Config{}, fmt.Errorf("CALC_SESSION_STORE: unknown store %q", cfg.SessionStore)
	}

	return cfg, nil
}
