package xweb

import (
	"time"

	"github.com/anatolykoptev/go-stealth/ratelimit"
)

// Config holds all configuration for the native web client.
type Config struct {
	// Accounts is the list of authenticated accounts backing the pool.
	// Only the Following endpoint requires one; everything else can fall
	// back to a guest token.
	Accounts []*Account

	// DefaultProxy is the proxy URL for accounts without per-account proxies.
	DefaultProxy string

	// SessionTTL controls how long saved sessions are considered valid.
	SessionTTL time.Duration

	// AuthCooldown is the soft-deactivation duration for auth errors.
	AuthCooldown time.Duration

	// BanCooldown is the soft-deactivation duration for banned/locked accounts.
	BanCooldown time.Duration

	// RateLimit configures per-account per-endpoint rate limiting.
	RateLimit ratelimit.Config

	// SessionDir overrides the default session persistence directory.
	// Default: ~/.skillnet/sessions
	SessionDir string

	// ProxyBackoffInitial is the initial backoff for proxy failures.
	ProxyBackoffInitial time.Duration

	// ProxyBackoffMax is the maximum backoff for proxy failures.
	ProxyBackoffMax time.Duration
}

// defaults fills in zero-value config fields with sensible defaults.
func (cfg *Config) defaults() {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.AuthCooldown == 0 {
		cfg.AuthCooldown = 1 * time.Hour
	}
	if cfg.BanCooldown == 0 {
		cfg.BanCooldown = 6 * time.Hour
	}
	if cfg.RateLimit.RequestsPerWindow == 0 {
		cfg.RateLimit = ratelimit.DefaultConfig
	}
	if cfg.ProxyBackoffInitial == 0 {
		cfg.ProxyBackoffInitial = 30 * time.Second
	}
	if cfg.ProxyBackoffMax == 0 {
		cfg.ProxyBackoffMax = 30 * time.Minute
	}
}
