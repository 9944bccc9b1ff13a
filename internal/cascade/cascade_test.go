package cascade

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillnet/internal/provider"
)

// fakeAdapter implements all three capabilities with canned results.
type fakeAdapter struct {
	name      string
	available bool

	followings []provider.Profile
	posts      []provider.Post
	profile    *provider.Profile
	outcome    provider.Outcome
	panics     bool

	calls int
}

func (f *fakeAdapter) Name() string    { return f.name }
func (f *fakeAdapter) Available() bool { return f.available }

func (f *fakeAdapter) Followings(_ context.Context, _ string, _ int) ([]provider.Profile, provider.Outcome) {
	f.calls++
	if f.panics {
		panic("defective adapter")
	}
	return f.followings, f.outcome
}

func (f *fakeAdapter) Posts(_ context.Context, _ string, _ int) ([]provider.Post, provider.Outcome) {
	f.calls++
	if f.panics {
		panic("defective adapter")
	}
	return f.posts, f.outcome
}

func (f *fakeAdapter) Profile(_ context.Context, _ string) (*provider.Profile, provider.Outcome) {
	f.calls++
	if f.panics {
		panic("defective adapter")
	}
	return f.profile, f.outcome
}

func profiles(handles ...string) []provider.Profile {
	var out []provider.Profile
	for _, h := range handles {
		out = append(out, provider.Profile{Handle: h})
	}
	return out
}

func TestFirstSufficientSuccessWins(t *testing.T) {
	a := &fakeAdapter{name: "a", available: true, outcome: provider.Short("auth wall")}
	b := &fakeAdapter{name: "b", available: true, followings: profiles("x", "y"), outcome: provider.OK()}
	c := &fakeAdapter{name: "c", available: true, followings: profiles("z"), outcome: provider.OK()}

	r := &Resolver{Followings: []provider.FollowingsFetcher{a, b, c}}
	got, err := r.ResolveFollowings(context.Background(), "someone", 100)
	require.NoError(t, err)
	assert.Equal(t, profiles("x", "y"), got)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, 0, c.calls, "later adapters must not run once one succeeds")
}

func TestUnavailableAdapterSkipped(t *testing.T) {
	a := &fakeAdapter{name: "a", available: false}
	b := &fakeAdapter{name: "b", available: true, followings: profiles("x"), outcome: provider.OK()}

	r := &Resolver{Followings: []provider.FollowingsFetcher{a, b}}
	_, err := r.ResolveFollowings(context.Background(), "someone", 10)
	require.NoError(t, err)
	assert.Equal(t, 0, a.calls)
}

func TestExhaustionAggregatesDiagnostics(t *testing.T) {
	a := &fakeAdapter{name: "a", available: true, outcome: provider.Short("empty body")}
	b := &fakeAdapter{name: "b", available: true, outcome: provider.Fail(errors.New("HTTP 500"))}

	r := &Resolver{Followings: []provider.FollowingsFetcher{a, b}}
	_, err := r.ResolveFollowings(context.Background(), "someone", 10)
	require.Error(t, err)

	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	require.Len(t, cerr.Attempts, 2)
	assert.Equal(t, "a", cerr.Attempts[0].Provider)
	assert.Equal(t, provider.Insufficient, cerr.Attempts[0].Outcome.Status)
	assert.Equal(t, provider.Failure, cerr.Attempts[1].Outcome.Status)
	assert.Contains(t, err.Error(), "empty body")
	assert.Contains(t, err.Error(), "HTTP 500")
}

func TestPanickingAdapterTreatedAsFailure(t *testing.T) {
	a := &fakeAdapter{name: "a", available: true, panics: true}
	b := &fakeAdapter{name: "b", available: true, followings: profiles("x"), outcome: provider.OK()}

	r := &Resolver{Followings: []provider.FollowingsFetcher{a, b}}
	got, err := r.ResolveFollowings(context.Background(), "someone", 10)
	require.NoError(t, err)
	assert.Equal(t, profiles("x"), got)
}

func TestEmptySuccessIsInsufficient(t *testing.T) {
	a := &fakeAdapter{name: "a", available: true, followings: nil, outcome: provider.OK()}

	r := &Resolver{Followings: []provider.FollowingsFetcher{a}}
	_, err := r.ResolveFollowings(context.Background(), "someone", 10)
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, provider.Insufficient, cerr.Attempts[0].Outcome.Status)
}

func TestPostsMinimumTextThreshold(t *testing.T) {
	small := &fakeAdapter{name: "small", available: true,
		posts: []provider.Post{{Text: "hi"}}, outcome: provider.OK()}
	big := &fakeAdapter{name: "big", available: true,
		posts: []provider.Post{{Text: "a post with a reasonable amount of text in it, well past fifty characters"}},
		outcome: provider.OK()}

	r := &Resolver{Posts: []provider.PostsFetcher{small, big}}
	got, err := r.ResolvePosts(context.Background(), "someone", 5)
	require.NoError(t, err)
	assert.Equal(t, big.posts, got)
}

func TestNoProvidersAvailable(t *testing.T) {
	r := &Resolver{}
	_, err := r.ResolveProfile(context.Background(), "someone")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no providers available")
}
