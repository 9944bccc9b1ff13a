// Package provider defines the canonical account/content records and the
// capability interfaces implemented by each external data source adapter.
package provider

import "context"

// Adapter is the base contract every provider adapter satisfies. An adapter
// decides its own availability once (typically: credential present) and is
// queried before being placed in a cascade; an unavailable adapter is never
// invoked.
type Adapter interface {
	Name() string
	Available() bool
}

// FollowingsFetcher fetches the accounts a handle follows.
type FollowingsFetcher interface {
	Adapter
	Followings(ctx context.Context, handle string, limit int) ([]Profile, Outcome)
}

// PostsFetcher fetches recent posts for a handle.
type PostsFetcher interface {
	Adapter
	Posts(ctx context.Context, handle string, limit int) ([]Post, Outcome)
}

// ProfileFetcher fetches a single account profile.
type ProfileFetcher interface {
	Adapter
	Profile(ctx context.Context, handle string) (*Profile, Outcome)
}

// Enricher produces a combined profile+highlights+posts view in one shot.
// Optional: only providers with a highlights endpoint implement it.
type Enricher interface {
	Adapter
	EnrichedProfile(ctx context.Context, handle string, maxPosts int) (*Enriched, error)
}
