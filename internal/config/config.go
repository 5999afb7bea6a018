package config

import (
	"os"
	"strconv"
	"time"

	"certanchor/internal/domain"
)

const (
	DefaultLedgerNetwork  = "ropsten"
	DefaultLedgerContract = "0xd123Ec03ACdbC36e4fA818c983C259049EE705e0"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	LogLevel    string
	LogFormat   string

	LedgerNetwork         string
	LedgerRPCURL          string
	LedgerContractAddress string
	LedgerTimeoutSeconds  int
	LedgerAnchorsFile     string

	MaxCertificateBytes int
	PolicyPath          string
	PolicyBundleID      string
	RecordVerifications bool

	RateLimitRequests      int
	RateLimitWindowSeconds int
	RateLimitFailClosed    bool
	RateLimitMaxKeys       int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:               addr,
		PostgresDSN:            os.Getenv("POSTGRES_DSN"),
		LogLevel:               envDefault("LOG_LEVEL", "info"),
		LogFormat:              envDefault("LOG_FORMAT", "terminal"),
		LedgerNetwork:          envDefault("LEDGER_NETWORK", DefaultLedgerNetwork),
		LedgerRPCURL:           os.Getenv("LEDGER_RPC_URL"),
		LedgerContractAddress:  envDefault("LEDGER_CONTRACT_ADDRESS", DefaultLedgerContract),
		LedgerTimeoutSeconds:   envIntDefault("LEDGER_TIMEOUT_SECONDS", 10),
		LedgerAnchorsFile:      os.Getenv("LEDGER_ANCHORS_FILE"),
		MaxCertificateBytes:    envIntDefault("MAX_CERTIFICATE_BYTES", 1<<20),
		PolicyPath:             os.Getenv("POLICY_PATH"),
		PolicyBundleID:         os.Getenv("POLICY_BUNDLE_ID"),
		RecordVerifications:    envBoolDefault("RECORD_VERIFICATIONS", true),
		RateLimitRequests:      envIntDefault("RATE_LIMIT_REQUESTS", 0),
		RateLimitWindowSeconds: envIntDefault("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitFailClosed:    envBoolDefault("RATE_LIMIT_FAIL_CLOSED", false),
		RateLimitMaxKeys:       envIntDefault("RATE_LIMIT_MAX_KEYS", 10000),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:                envIntDefault("REDIS_DB", 0),
	}
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "No":
		return false
	default:
		return def
	}
}

// Ledger identifies the anchoring contract shown alongside every result.
func (c Config) Ledger() domain.LedgerInfo {
	return domain.LedgerInfo{
		Network:  c.LedgerNetwork,
		Contract: c.LedgerContractAddress,
	}
}

func (c Config) LedgerTimeout() time.Duration {
	if c.LedgerTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.LedgerTimeoutSeconds) * time.Second
}

func (c Config) RateLimitWindow() time.Duration {
	if c.RateLimitWindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}
