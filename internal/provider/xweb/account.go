package xweb

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"strings"
	"sync"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/pool"
	"github.com/anatolykoptev/go-stealth/ratelimit"
)

// Account represents one authenticated web session usable by the pool.
type Account struct {
	Username   string
	Password   string
	AuthToken  string
	CT0        string
	TOTPSecret string
	Proxy      string
	UserAgent  string
	Profile    stealth.BrowserProfile

	active       bool
	reactivateAt time.Time
	client       *stealth.BrowserClient

	mu               sync.Mutex
	ct0RefreshedAt   time.Time
	proxyBackoff     time.Time
	proxyConsecFails int
	rateLimiter      *ratelimit.Limiter

	pool.HealthTracker
}

// ID implements pool.Identity.
func (a *Account) ID() string { return a.Username }

// IsActive implements pool.Identity.
func (a *Account) IsActive() bool { return a.active }

// SetActive implements pool.Identity.
func (a *Account) SetActive(v bool) { a.active = v }

// ReactivateAt implements pool.Identity.
func (a *Account) ReactivateAt() time.Time { return a.reactivateAt }

// SetReactivateAt implements pool.Identity.
func (a *Account) SetReactivateAt(t time.Time) { a.reactivateAt = t }

// ct0MaxAge is the maximum age of a ct0 token before proactive rotation.
const ct0MaxAge = 4 * time.Hour

// generateCT0 generates a random 32-byte hex string for use as a ct0 CSRF token.
func generateCT0() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "0000000000000000000000000000000000000000000000000000000000000000"
	}
	return hex.EncodeToString(b)
}

// extractCT0FromHeaders parses ct0 value from a set-cookie response header.
func extractCT0FromHeaders(headers map[string]string) string {
	cookie := headers["set-cookie"]
	if cookie == "" {
		return ""
	}
	for _, part := range strings.Split(cookie, ";") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "ct0=") {
			if val := strings.TrimPrefix(part, "ct0="); val != "" {
				return val
			}
		}
	}
	return ""
}

// CT0Age returns the time since the ct0 token was last refreshed.
func (a *Account) CT0Age() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ct0RefreshedAt.IsZero() {
		return 24 * time.Hour
	}
	return time.Since(a.ct0RefreshedAt)
}

// RotateCT0 generates a fresh ct0 token and updates the refresh timestamp.
func (a *Account) RotateCT0() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.CT0 = generateCT0()
	a.ct0RefreshedAt = time.Now()
}

// SetCT0 updates the ct0 from a server response.
func (a *Account) SetCT0(ct0 string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.CT0 = ct0
	a.ct0RefreshedAt = time.Now()
}

// Credentials returns a snapshot of (authToken, ct0, userAgent) under lock.
func (a *Account) Credentials() (authToken, ct0, userAgent string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.AuthToken, a.CT0, a.UserAgent
}

// SetCredentials atomically updates auth_token and ct0.
func (a *Account) SetCredentials(authToken, ct0 string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.AuthToken = authToken
	a.CT0 = ct0
	a.ct0RefreshedAt = time.Now()
}

// AllowRequest checks if this account can make a request to the given endpoint.
func (a *Account) AllowRequest(endpoint string) bool {
	a.mu.Lock()
	rl := a.rateLimiter
	a.mu.Unlock()
	if rl == nil {
		return true
	}
	return rl.Allow(endpoint)
}

// MarkEndpointRateLimited marks an endpoint as rate-limited for this account.
func (a *Account) MarkEndpointRateLimited(endpoint string, until time.Time) {
	a.mu.Lock()
	rl := a.rateLimiter
	a.mu.Unlock()
	if rl == nil {
		return
	}
	rl.MarkRateLimited(endpoint, until)
}

// assignBrowserProfile sets a browser profile based on index.
func assignBrowserProfile(acc *Account, idx int) {
	p := stealth.BuiltinProfiles[idx%len(stealth.BuiltinProfiles)]
	acc.Profile = p
	acc.UserAgent = p.UserAgent
}

// ParseAccounts parses a comma-separated list of accounts.
// Format: "user1:pass1,user2:pass2" or "user1:pass1:auth_token:ct0,..."
// or "user1:pass1:auth_token:ct0:totp_secret,...".
func ParseAccounts(raw string) []*Account {
	var accounts []*Account
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 5)
		if len(parts) < 2 {
			slog.Warn("invalid account entry, skipping", slog.String("entry", entry))
			continue
		}
		acc := &Account{
			Username: parts[0],
			Password: parts[1],
			active:   true,
		}
		if len(parts) >= 4 {
			acc.AuthToken = parts[2]
			acc.CT0 = parts[3]
			acc.ct0RefreshedAt = time.Now()
		}
		if len(parts) >= 5 && parts[4] != "" {
			acc.TOTPSecret = parts[4]
		}
		assignBrowserProfile(acc, len(accounts))
		accounts = append(accounts, acc)
	}
	return accounts
}
