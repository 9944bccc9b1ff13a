package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillnet/internal/cascade"
	"skillnet/internal/classify"
	"skillnet/internal/provider"
	"skillnet/internal/skills"
	"skillnet/internal/state"
)

// fakeSource is a canned-data adapter covering all capabilities.
type fakeSource struct {
	name       string
	followings []provider.Profile
	posts      map[string][]provider.Post
	failPosts  map[string]bool
}

func (f *fakeSource) Name() string    { return f.name }
func (f *fakeSource) Available() bool { return true }

func (f *fakeSource) Followings(_ context.Context, _ string, _ int) ([]provider.Profile, provider.Outcome) {
	if len(f.followings) == 0 {
		return nil, provider.Short("empty followings list")
	}
	return f.followings, provider.OK()
}

func (f *fakeSource) Posts(_ context.Context, h string, _ int) ([]provider.Post, provider.Outcome) {
	if f.failPosts[h] {
		return nil, provider.Fail(errors.New("upstream down"))
	}
	posts, ok := f.posts[h]
	if !ok {
		return nil, provider.Short("no tweets")
	}
	return posts, provider.OK()
}

func (f *fakeSource) Profile(_ context.Context, h string) (*provider.Profile, provider.Outcome) {
	for _, p := range f.followings {
		if p.Handle == h {
			return &p, provider.OK()
		}
	}
	return nil, provider.Short("not found")
}

// captureGenerator records generated handles and returns minimal profiles.
type captureGenerator struct {
	handles []string
	err     error
}

func (g *captureGenerator) Generate(_ context.Context, personName, h string, _, _ []provider.Post) (*skills.Profile, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.handles = append(g.handles, h)
	return &skills.Profile{PersonName: personName, Handle: h}, nil
}

func longPosts(text string) []provider.Post {
	return []provider.Post{{ID: "1", Text: text + " with enough filler text to pass the content threshold easily"}}
}

func newTestPipeline(t *testing.T, src *fakeSource, gen SkillGenerator, opts Options) *Pipeline {
	t.Helper()
	return &Pipeline{
		Resolver: &cascade.Resolver{
			Followings: []provider.FollowingsFetcher{src},
			Posts:      []provider.PostsFetcher{src},
			Profiles:   []provider.ProfileFetcher{src},
		},
		Classifier: classify.New(nil),
		Generator:  gen,
		Writer:     &skills.Writer{Dir: t.TempDir()},
		Store:      state.NewStore(filepath.Join(t.TempDir(), "state.json")),
		Opts:       opts,
	}
}

func TestRefreshBuildsFilteredCandidateSet(t *testing.T) {
	src := &fakeSource{
		name: "fake",
		followings: []provider.Profile{
			{Handle: "alice", Verified: true, Bio: "proud mom, ex-founder, she/her"},
			{Handle: "newsdesk", Verified: true, Bio: "We are the official news team. Follow us for updates!"},
			{Handle: "unverified", Verified: false, Bio: "i'm a developer, he/him"},
			{Handle: "bad handle!", Verified: true},
			{Handle: "alice", Verified: true}, // duplicate
		},
	}
	p := newTestPipeline(t, src, &captureGenerator{}, Options{
		MaxFollowings: 100,
		BatchFraction: 1.0,
		VerifiedOnly:  true,
		HumansOnly:    true,
	})

	st, err := p.Refresh(context.Background(), "@Root_User")
	require.NoError(t, err)

	assert.Equal(t, []string{"alice"}, st.Candidates)
	assert.Equal(t, "net:Root_User", st.SourceTag)
}

func TestRefreshRejectsInvalidRoot(t *testing.T) {
	p := newTestPipeline(t, &fakeSource{name: "fake"}, &captureGenerator{}, Options{})
	_, err := p.Refresh(context.Background(), "way-too-long-for-a-handle")
	require.Error(t, err)
}

func TestRefreshManualSeedsCandidates(t *testing.T) {
	p := newTestPipeline(t, &fakeSource{name: "fake"}, &captureGenerator{}, Options{})

	st, err := p.RefreshManual([]string{"@alice", "bob", "alice"})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, st.Candidates)
	assert.Equal(t, "manual", st.SourceTag)

	_, err = p.RefreshManual([]string{"not a handle"})
	require.Error(t, err)
}

func TestRunBatchProcessesAndPersists(t *testing.T) {
	src := &fakeSource{
		name: "fake",
		followings: []provider.Profile{
			{Handle: "a", Verified: true, DisplayName: "Person A"},
			{Handle: "b", Verified: true},
			{Handle: "c", Verified: true},
			{Handle: "d", Verified: true},
		},
		posts: map[string][]provider.Post{
			"a": longPosts("post from a"),
			"b": longPosts("post from b"),
			"c": longPosts("post from c"),
			"d": longPosts("post from d"),
		},
	}
	gen := &captureGenerator{}
	p := newTestPipeline(t, src, gen, Options{MaxFollowings: 10, MaxPosts: 5, BatchFraction: 0.5})

	_, err := p.Refresh(context.Background(), "root")
	require.NoError(t, err)

	report, err := p.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.BatchSize)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 2, report.Pending)
	assert.Equal(t, []string{"a", "b"}, gen.handles)

	// A second run picks up where the first left off.
	report, err = p.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, gen.handles[:3])

	st, err := p.Status()
	require.NoError(t, err)
	assert.Equal(t, state.PhasePartiallyProcessed, st.Phase())
}

func TestRunBatchMarksFailedItemsProcessed(t *testing.T) {
	src := &fakeSource{
		name: "fake",
		followings: []provider.Profile{
			{Handle: "good", Verified: true},
			{Handle: "poison", Verified: true},
		},
		posts: map[string][]provider.Post{
			"good": longPosts("fine content"),
		},
		failPosts: map[string]bool{"poison": true},
	}
	p := newTestPipeline(t, src, &captureGenerator{}, Options{MaxFollowings: 10, MaxPosts: 5, BatchFraction: 1.0})

	_, err := p.Refresh(context.Background(), "root")
	require.NoError(t, err)

	report, err := p.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)

	// The failed handle must not reappear on the next run.
	st, err := p.Status()
	require.NoError(t, err)
	assert.Empty(t, st.Pending())
	assert.Equal(t, state.PhaseComplete, st.Phase())
}

func TestRunBatchEmptyState(t *testing.T) {
	p := newTestPipeline(t, &fakeSource{name: "fake"}, &captureGenerator{}, Options{BatchFraction: 0.5})
	report, err := p.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.BatchSize)
	assert.Equal(t, state.PhaseEmpty, report.Phase)
}

func TestClassifyHandle(t *testing.T) {
	src := &fakeSource{
		name: "fake",
		followings: []provider.Profile{
			{Handle: "jane", Bio: "proud mom, ex-founder, she/her"},
		},
	}
	p := newTestPipeline(t, src, &captureGenerator{}, Options{})

	kind, prof, err := p.ClassifyHandle(context.Background(), "@jane")
	require.NoError(t, err)
	assert.Equal(t, classify.Human, kind)
	assert.Equal(t, "jane", prof.Handle)
}
