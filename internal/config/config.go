package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	BotToken           string
	ProviderToken      string
	AdminIDs           []int64
	DBPath             string
	DatabaseURI        string
	RedisAddr          string
	SessionTTL         time.Duration
	RunAddress         string
	AdminAPIKey        string
	Currency           string
	LogLevel           string
	PaymentTimeout     time.Duration
	ExpiryPollInterval time.Duration
	ExpiryBatch        int
	DispatchShards     int
	NotifyConcurrency  int
	ShutdownTimeout    time.Duration
}

const (
	defaultDBPath             = "flower_shop.db"
	defaultRunAddress         = ":8080"
	defaultCurrency           = "USD"
	defaultLogLevel           = "info"
	defaultSessionTTL         = 24 * time.Hour
	defaultPaymentTimeout     = 30 * time.Minute
	defaultExpiryPollInterval = time.Minute
	defaultExpiryBatch        = 32
	defaultDispatchShards     = 8
	defaultNotifyConcurrency  = 4
	defaultShutdownTimeout    = 10 * time.Second
)

// PaymentsEnabled reports whether a payment provider token is configured.
func (c *Config) PaymentsEnabled() bool {
	return c.ProviderToken != ""
}

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		BotToken:           getString(lookup, "BOT_TOKEN", ""),
		ProviderToken:      getString(lookup, "PROVIDER_TOKEN", ""),
		DBPath:             getString(lookup, "DB_PATH", defaultDBPath),
		DatabaseURI:        getString(lookup, "DATABASE_URI", ""),
		RedisAddr:          getString(lookup, "REDIS_ADDR", ""),
		SessionTTL:         getDuration(lookup, "SESSION_TTL", defaultSessionTTL),
		RunAddress:         getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		AdminAPIKey:        getString(lookup, "ADMIN_API_KEY", ""),
		Currency:           getString(lookup, "CURRENCY", defaultCurrency),
		LogLevel:           getString(lookup, "LOG_LEVEL", defaultLogLevel),
		PaymentTimeout:     getDuration(lookup, "PAYMENT_TIMEOUT", defaultPaymentTimeout),
		ExpiryPollInterval: getDuration(lookup, "EXPIRY_POLL_INTERVAL", defaultExpiryPollInterval),
		ExpiryBatch:        getInt(lookup, "EXPIRY_BATCH_SIZE", defaultExpiryBatch),
		DispatchShards:     getInt(lookup, "DISPATCH_SHARDS", defaultDispatchShards),
		NotifyConcurrency:  getInt(lookup, "NOTIFY_CONCURRENCY", defaultNotifyConcurrency),
		ShutdownTimeout:    getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
	}

	fs := flag.NewFlagSet("flowershop", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		adminIDs           = getString(lookup, "ADMIN_IDS", "")
		paymentTimeoutStr  = cfg.PaymentTimeout.String()
		expiryIntervalStr  = cfg.ExpiryPollInterval.String()
		sessionTTLStr      = cfg.SessionTTL.String()
		shutdownTimeoutStr = cfg.ShutdownTimeout.String()
	)

	fs.StringVar(&cfg.BotToken, "bot-token", cfg.BotToken, "Telegram bot token")
	fs.StringVar(&cfg.ProviderToken, "provider-token", cfg.ProviderToken, "Telegram payment provider token")
	fs.StringVar(&adminIDs, "admins", adminIDs, "Comma separated administrator ids")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database file")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN, replaces SQLite when set")
	fs.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "Redis address for sessions")
	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.AdminAPIKey, "admin-key", cfg.AdminAPIKey, "Key for admin HTTP endpoints")
	fs.StringVar(&cfg.Currency, "currency", cfg.Currency, "Invoice currency")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")
	fs.StringVar(&paymentTimeoutStr, "payment-timeout", paymentTimeoutStr, "Time to pay an invoice")
	fs.StringVar(&expiryIntervalStr, "expiry-interval", expiryIntervalStr, "Interval between payment expiry sweeps")
	fs.IntVar(&cfg.ExpiryBatch, "expiry-batch", cfg.ExpiryBatch, "Maximum orders per expiry sweep")
	fs.StringVar(&sessionTTLStr, "session-ttl", sessionTTLStr, "Idle session lifetime")
	fs.IntVar(&cfg.DispatchShards, "shards", cfg.DispatchShards, "Number of update dispatch shards")
	fs.IntVar(&cfg.NotifyConcurrency, "notify-concurrency", cfg.NotifyConcurrency, "Concurrent admin notifications")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.PaymentTimeout, err = time.ParseDuration(paymentTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid payment timeout: %w", err)
	}

	if cfg.ExpiryPollInterval, err = time.ParseDuration(expiryIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid expiry interval: %w", err)
	}

	if cfg.SessionTTL, err = time.ParseDuration(sessionTTLStr); err != nil {
		return nil, fmt.Errorf("invalid session ttl: %w", err)
	}

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	cfg.AdminIDs = ParseIDs(adminIDs)

	if tokenFile, ok := lookup("BOT_TOKEN_FILE"); ok && tokenFile != "" {
		content, err := os.ReadFile(tokenFile)
		if err != nil {
			return nil, fmt.Errorf("read bot token file: %w", err)
		}
		cfg.BotToken = strings.TrimSpace(string(content))
	}

	if cfg.PaymentTimeout <= 0 {
		cfg.PaymentTimeout = defaultPaymentTimeout
	}

	if cfg.ExpiryPollInterval <= 0 {
		cfg.ExpiryPollInterval = defaultExpiryPollInterval
	}

	if cfg.ExpiryBatch <= 0 {
		cfg.ExpiryBatch = defaultExpiryBatch
	}

	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}

	if cfg.DispatchShards <= 0 {
		cfg.DispatchShards = defaultDispatchShards
	}

	if cfg.NotifyConcurrency <= 0 {
		cfg.NotifyConcurrency = defaultNotifyConcurrency
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}

	cfg.Currency = strings.ToUpper(cfg.Currency)

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("bot token must be provided")
	}

	return cfg, nil
}

// ParseIDs extracts numeric identifiers from comma separated list.
// Anything after '#' in an element is a comment; invalid elements are skipped.
func ParseIDs(raw string) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part, _, _ = strings.Cut(part, "#")
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
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
