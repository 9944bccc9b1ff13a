// Package cascade executes a statically ordered list of provider adapters
// for one operation until one returns a sufficiently good result.
//
// Ordering encodes a reliability/cost ranking fixed at configuration time.
// There is no runtime scoring: earlier providers win by position, which
// keeps behavior deterministic and auditable.
package cascade

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"skillnet/internal/provider"
)

// Attempt records the outcome of one adapter invocation for diagnostics.
type Attempt struct {
	Provider string
	Outcome  provider.Outcome
}

// Error is returned when every adapter for an operation failed or came up
// short. It carries the diagnostic from each attempt.
type Error struct {
	Op       string
	Attempts []Attempt
}

func (e *Error) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("%s: no providers available", e.Op)
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.Provider+": "+a.Outcome.Describe())
	}
	return fmt.Sprintf("%s: all providers failed [%s]", e.Op, strings.Join(parts, "; "))
}

// Resolver holds the ordered adapter lists for each operation and the
// sufficiency thresholds.
type Resolver struct {
	Followings []provider.FollowingsFetcher
	Posts      []provider.PostsFetcher
	Profiles   []provider.ProfileFetcher

	// MinPostText is the minimum total post text length for a posts result
	// to count as sufficient. Zero means the default.
	MinPostText int
}

const defaultMinPostText = 50

type step[T any] struct {
	name string
	call func(ctx context.Context) (T, provider.Outcome)
}

// resolve runs the steps in order, accepting the first Success whose payload
// passes sufficient (which returns "" when satisfied, otherwise a reason).
// A panicking adapter is recorded as a Failure and the cascade continues.
func resolve[T any](ctx context.Context, op string, steps []step[T], sufficient func(T) string) (T, error) {
	var zero T
	var attempts []Attempt

	for _, s := range steps {
		payload, out := invoke(ctx, s)
		if out.Status == provider.Success {
			if reason := sufficient(payload); reason != "" {
				out = provider.Short(reason)
			}
		}
		if out.Status == provider.Success {
			slog.Debug("cascade resolved",
				slog.String("op", op),
				slog.String("provider", s.name),
				slog.Int("attempts", len(attempts)+1))
			return payload, nil
		}
		slog.Warn("provider attempt failed",
			slog.String("op", op),
			slog.String("provider", s.name),
			slog.String("outcome", truncate(out.Describe(), 200)))
		attempts = append(attempts, Attempt{Provider: s.name, Outcome: out})
	}
	return zero, &Error{Op: op, Attempts: attempts}
}

// invoke calls one adapter, converting a panic into a Failure outcome.
// A single provider's defect must never abort the whole operation.
func invoke[T any](ctx context.Context, s step[T]) (payload T, out provider.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = provider.Fail(fmt.Errorf("provider %s panicked: %v", s.name, r))
		}
	}()
	return s.call(ctx)
}

// ResolveFollowings fetches the accounts handle follows. Sufficiency:
// non-empty list (an adapter that hits an auth wall reports Insufficient
// itself before the list ever reaches here).
func (r *Resolver) ResolveFollowings(ctx context.Context, handle string, limit int) ([]provider.Profile, error) {
	var steps []step[[]provider.Profile]
	for _, a := range r.Followings {
		if !a.Available() {
			continue
		}
		a := a
		steps = append(steps, step[[]provider.Profile]{
			name: a.Name(),
			call: func(ctx context.Context) ([]provider.Profile, provider.Outcome) {
				return a.Followings(ctx, handle, limit)
			},
		})
	}
	return resolve(ctx, "followings", steps, func(list []provider.Profile) string {
		if len(list) == 0 {
			return "empty followings list"
		}
		return ""
	})
}

// ResolvePosts fetches recent posts for handle. Sufficiency: total text
// length must exceed the minimum content threshold.
func (r *Resolver) ResolvePosts(ctx context.Context, handle string, limit int) ([]provider.Post, error) {
	minText := r.MinPostText
	if minText == 0 {
		minText = defaultMinPostText
	}
	var steps []step[[]provider.Post]
	for _, a := range r.Posts {
		if !a.Available() {
			continue
		}
		a := a
		steps = append(steps, step[[]provider.Post]{
			name: a.Name(),
			call: func(ctx context.Context) ([]provider.Post, provider.Outcome) {
				return a.Posts(ctx, handle, limit)
			},
		})
	}
	return resolve(ctx, "posts", steps, func(posts []provider.Post) string {
		if n := provider.TotalText(posts); n < minText {
			return fmt.Sprintf("only %d chars of post text (min %d)", n, minText)
		}
		return ""
	})
}

// ResolveProfile fetches a single profile. Sufficiency: non-nil with a
// non-empty handle.
func (r *Resolver) ResolveProfile(ctx context.Context, h string) (*provider.Profile, error) {
	var steps []step[*provider.Profile]
	for _, a := range r.Profiles {
		if !a.Available() {
			continue
		}
		a := a
		steps = append(steps, step[*provider.Profile]{
			name: a.Name(),
			call: func(ctx context.Context) (*provider.Profile, provider.Outcome) {
				return a.Profile(ctx, h)
			},
		})
	}
	return resolve(ctx, "profile", steps, func(p *provider.Profile) string {
		if p == nil || p.Handle == "" {
			return "empty profile"
		}
		return ""
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
