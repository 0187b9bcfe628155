package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress           string
	DatabaseURI          string
	RedisAddr            string
	JWTSecret            string
	SessionTTL           time.Duration
	WalletConnectTimeout time.Duration
	SessionSweepSchedule string
	ShutdownTimeout      time.Duration
	LogLevel             slog.Level
	CORSOrigins          []string
}

const (
	defaultRunAddress           = ":8080"
	defaultJWTSecret            = "change-me-in-production"
	defaultSessionTTL           = 24 * time.Hour
	defaultWalletConnectTimeout = 10 * time.Second
	defaultSessionSweepSchedule = "@every 5m"
	defaultShutdownTimeout      = 10 * time.Second
	defaultLogLevel             = "info"

	dotEnvFile = ".env"
)

// Load parses configuration from flags and environment variables. Values
// from a .env file in the working directory never override the process
// environment.
func Load() (*Config, error) {
	if err := loadDotEnv(dotEnvFile); err != nil {
		return nil, err
	}
	return load(os.Args[1:], os.LookupEnv)
}

// loadDotEnv exports variables from path. A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:           getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:          getString(lookup, "DATABASE_URI", ""),
		RedisAddr:            getString(lookup, "REDIS_ADDR", ""),
		JWTSecret:            getString(lookup, "JWT_SECRET", defaultJWTSecret),
		SessionTTL:           getDuration(lookup, "SESSION_TTL", defaultSessionTTL),
		WalletConnectTimeout: getDuration(lookup, "WALLET_CONNECT_TIMEOUT", defaultWalletConnectTimeout),
		SessionSweepSchedule: getString(lookup, "SESSION_SWEEP_SCHEDULE", defaultSessionSweepSchedule),
		ShutdownTimeout:      getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
	}

	flags := flag.NewFlagSet("bitlend", flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	var (
		sessionTTLStr      = cfg.SessionTTL.String()
		walletTimeoutStr   = cfg.WalletConnectTimeout.String()
		shutdownTimeoutStr = cfg.ShutdownTimeout.String()
		logLevelStr        = getString(lookup, "LOG_LEVEL", defaultLogLevel)
		corsStr            = getString(lookup, "CORS_ORIGINS", "")
	)

	flags.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	flags.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN, in-memory storage when empty")
	flags.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "Redis address for sessions, in-memory when empty")
	flags.StringVar(&cfg.JWTSecret, "jwt-secret", cfg.JWTSecret, "Secret for signing session tokens")
	flags.StringVar(&sessionTTLStr, "session-ttl", sessionTTLStr, "Session lifetime")
	flags.StringVar(&walletTimeoutStr, "wallet-timeout", walletTimeoutStr, "Upper bound for a wallet connection")
	flags.StringVar(&cfg.SessionSweepSchedule, "sweep", cfg.SessionSweepSchedule, "Cron spec for expired session sweeps")
	flags.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")
	flags.StringVar(&logLevelStr, "log-level", logLevelStr, "Log level: debug, info, warn, error")
	flags.StringVar(&corsStr, "cors", corsStr, "Comma separated allowed CORS origins")

	if err := flags.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.SessionTTL, err = time.ParseDuration(sessionTTLStr); err != nil {
		return nil, fmt.Errorf("invalid session ttl: %w", err)
	}

	if cfg.WalletConnectTimeout, err = time.ParseDuration(walletTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid wallet connect timeout: %w", err)
	}

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if err = cfg.LogLevel.UnmarshalText([]byte(logLevelStr)); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	if _, err = cron.ParseStandard(cfg.SessionSweepSchedule); err != nil {
		return nil, fmt.Errorf("invalid session sweep schedule: %w", err)
	}

	cfg.CORSOrigins = splitList(corsStr)

	if secretFile, ok := lookup("JWT_SECRET_FILE"); ok && secretFile != "" {
		content, err := os.ReadFile(secretFile)
		if err != nil {
			return nil, fmt.Errorf("read jwt secret file: %w", err)
		}
		cfg.JWTSecret = strings.TrimSpace(string(content))
	}

	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}

	if cfg.WalletConnectTimeout <= 0 {
		cfg.WalletConnectTimeout = defaultWalletConnectTimeout
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret must not be empty")
	}

	return cfg, nil
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
