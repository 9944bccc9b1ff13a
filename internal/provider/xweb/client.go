// Package xweb is the native web client: it talks to the platform's own
// GraphQL API using a pool of authenticated accounts, with a guest-token
// fallback for endpoints that allow anonymous reads. It is the last resort
// in the cascade and the only provider that never spends API credits.
package xweb

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/pool"
	"github.com/anatolykoptev/go-stealth/ratelimit"
)

// Client is the native web scraping client.
type Client struct {
	client *stealth.BrowserClient
	pool   *pool.Pool[*Account]
	cfg    Config

	mu                sync.Mutex
	guestToken        string
	guestLimitedUntil time.Time
}

// NewClient creates a fully-wired web client. Accounts that fail to load a
// session or log in are deactivated, not fatal: the guest-token path still
// serves the anonymous endpoints.
func NewClient(cfg Config) (*Client, error) {
	cfg.defaults()

	for _, acc := range cfg.Accounts {
		acc.rateLimiter = ratelimit.NewLimiter(cfg.RateLimit)
		acc.HealthTracker = pool.DefaultHealthTracker()
	}

	opts := []stealth.ClientOption{
		stealth.WithHeaderOrder(headerOrder),
	}
	if cfg.DefaultProxy != "" {
		opts = append(opts, stealth.WithProxy(cfg.DefaultProxy))
	}
	bc, err := stealth.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("stealth client: %w", err)
	}

	poolCfg := pool.Config{
		AlertHook: func(topic string, payload any) {
			slog.Warn("account pool alert", slog.String("topic", topic), slog.Any("payload", payload))
		},
		ProxyBackoff: pool.BackoffConfig{
			InitialWait: cfg.ProxyBackoffInitial,
			MaxWait:     cfg.ProxyBackoffMax,
			Multiplier:  2.0,
			JitterPct:   0.3,
		},
	}
	p := pool.New(cfg.Accounts, poolCfg)

	c := &Client{
		client: bc,
		pool:   p,
		cfg:    cfg,
	}

	for _, acc := range cfg.Accounts {
		if acc.Proxy != "" {
			accClient, err := stealth.NewClient(
				stealth.WithProxy(acc.Proxy),
				stealth.WithProfile(acc.Profile.TLSProfile),
				stealth.WithHeaderOrder(headerOrder),
			)
			if err != nil {
				slog.Warn("per-account client failed", slog.String("user", acc.Username), slog.Any("error", err))
			} else {
				acc.client = accClient
			}
		}

		if err := c.loadOrLogin(acc, c.clientForAccount(acc)); err != nil {
			slog.Warn("account login failed", slog.String("user", acc.Username), slog.Any("error", err))
			acc.SetActive(false)
		}
	}

	return c, nil
}

// clientForAccount returns the per-account client if available, otherwise the shared client.
func (c *Client) clientForAccount(acc *Account) *stealth.BrowserClient {
	if acc.client != nil {
		return acc.client
	}
	return c.client
}

// HasAccounts reports whether at least one account is configured. The
// Following endpoint is unusable without one.
func (c *Client) HasAccounts() bool {
	return len(c.cfg.Accounts) > 0
}

// setGuestToken stores a fresh guest token.
func (c *Client) setGuestToken(token string) {
	c.mu.Lock()
	c.guestToken = token
	c.guestLimitedUntil = time.Time{}
	c.mu.Unlock()
}

// markGuestTokenRateLimited marks the guest token as rate-limited.
func (c *Client) markGuestTokenRateLimited(until time.Time) {
	c.mu.Lock()
	c.guestLimitedUntil = until
	c.mu.Unlock()
}

// getGuestTokenCached returns the current guest token and whether it is usable.
func (c *Client) getGuestTokenCached() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.guestToken == "" || time.Now().Before(c.guestLimitedUntil) {
		return "", false
	}
	return c.guestToken, true
}
