package xweb

import (
	"context"
	"sync"

	"skillnet/internal/provider"
)

// Adapter exposes the web client through the canonical capability
// interfaces. Handle-to-ID resolution is cached per process since the
// timeline endpoints key on numeric user IDs.
type Adapter struct {
	client *Client

	mu  sync.Mutex
	ids map[string]string
}

// NewAdapter wraps an existing client.
func NewAdapter(c *Client) *Adapter {
	return &Adapter{client: c, ids: make(map[string]string)}
}

func (a *Adapter) Name() string { return "xweb" }

// Available is always true once the client is constructed: the guest-token
// path needs no credentials. Callers wanting followings should also check
// HasAccounts, since that endpoint cannot fall back to a guest token.
func (a *Adapter) Available() bool { return a.client != nil }

// resolveID maps a handle to its numeric user ID, consulting the cache first.
func (a *Adapter) resolveID(ctx context.Context, handle string) (string, error) {
	a.mu.Lock()
	if id, ok := a.ids[handle]; ok {
		a.mu.Unlock()
		return id, nil
	}
	a.mu.Unlock()

	p, err := a.client.UserByHandle(ctx, handle)
	if err != nil {
		return "", err
	}

	a.mu.Lock()
	a.ids[handle] = p.UserID
	a.mu.Unlock()
	return p.UserID, nil
}

func (a *Adapter) Profile(ctx context.Context, handle string) (*provider.Profile, provider.Outcome) {
	p, err := a.client.UserByHandle(ctx, handle)
	if err != nil {
		return nil, provider.Fail(err)
	}

	a.mu.Lock()
	a.ids[handle] = p.UserID
	a.mu.Unlock()
	return p, provider.OK()
}

func (a *Adapter) Posts(ctx context.Context, handle string, limit int) ([]provider.Post, provider.Outcome) {
	id, err := a.resolveID(ctx, handle)
	if err != nil {
		return nil, provider.Fail(err)
	}
	posts, err := a.client.TweetsOf(ctx, id, limit)
	if err != nil {
		return nil, provider.Fail(err)
	}
	if len(posts) == 0 {
		return nil, provider.Short("timeline returned no tweets")
	}
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, provider.OK()
}

func (a *Adapter) Followings(ctx context.Context, handle string, limit int) ([]provider.Profile, provider.Outcome) {
	if !a.client.HasAccounts() {
		return nil, provider.Short("no authenticated accounts for following fetch")
	}
	id, err := a.resolveID(ctx, handle)
	if err != nil {
		return nil, provider.Fail(err)
	}
	users, err := a.client.FollowingOf(ctx, id, limit)
	if err != nil {
		return nil, provider.Fail(err)
	}
	if len(users) == 0 {
		return nil, provider.Short("empty followings list")
	}
	if len(users) > limit {
		users = users[:limit]
	}
	return users, provider.OK()
}
