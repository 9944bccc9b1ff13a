// Package keypool hands out provider credentials round-robin so that load is
// spread across keys and no single key soaks up a provider's rate limit.
package keypool

import (
	"strings"
	"sync"
)

// Pool is an immutable ring of credential strings for one provider. The
// rotation index is the only mutable state.
type Pool struct {
	keys []string

	mu  sync.Mutex
	idx int
}

// New builds a pool from the given keys, dropping empty entries.
func New(keys []string) *Pool {
	var clean []string
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k != "" {
			clean = append(clean, k)
		}
	}
	return &Pool{keys: clean}
}

// Parse builds a pool from a comma-separated key list, the format used by
// the *_API_KEYS environment variables.
func Parse(raw string) *Pool {
	return New(strings.Split(raw, ","))
}

// Next returns the next key in round-robin order, or "" if the pool is empty.
func (p *Pool) Next() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.keys) == 0 {
		return ""
	}
	k := p.keys[p.idx%len(p.keys)]
	p.idx++
	return k
}

// Len returns the number of keys in the pool.
func (p *Pool) Len() int { return len(p.keys) }

// Empty reports whether the pool holds no keys.
func (p *Pool) Empty() bool { return len(p.keys) == 0 }
