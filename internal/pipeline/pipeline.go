// Package pipeline orchestrates the network-build job: ingest a root
// account's followings into a durable candidate set, then work through the
// pending handles in batches, producing one skill per account.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"skillnet/internal/cascade"
	"skillnet/internal/classify"
	"skillnet/internal/handle"
	"skillnet/internal/provider"
	"skillnet/internal/skills"
	"skillnet/internal/state"
)

// SkillGenerator produces a persona profile from an account's content.
type SkillGenerator interface {
	Generate(ctx context.Context, personName, h string, highlights, posts []provider.Post) (*skills.Profile, error)
}

// SkillWriter persists a generated profile.
type SkillWriter interface {
	Save(p *skills.Profile) (string, error)
}

// Options are the job knobs, typically taken straight from config.
type Options struct {
	// MaxFollowings caps ingestion from the root account.
	MaxFollowings int
	// MaxPosts caps content fetched per account.
	MaxPosts int
	// BatchFraction is the share of pending work one run processes.
	BatchFraction float64
	// VerifiedOnly keeps only verified accounts as candidates.
	VerifiedOnly bool
	// HumansOnly drops organizational accounts during ingestion.
	HumansOnly bool
}

// Pipeline wires the acquisition cascade, classifier, generator, and state
// store into the batch job.
type Pipeline struct {
	Resolver   *cascade.Resolver
	Classifier *classify.Classifier
	Generator  SkillGenerator
	Writer     SkillWriter
	Store      *state.Store

	// Enricher, when set, is tried before the posts cascade: it returns
	// profile, highlights, and posts in one shot from a provider that
	// supports it.
	Enricher provider.Enricher

	Opts Options
}

// Report summarizes one batch run.
type Report struct {
	BatchSize int
	Succeeded int
	Failed    int
	Pending   int
	Total     int
	Phase     state.Phase
}

// Refresh discards any existing job state and repopulates the candidate set
// from the root handle's followings.
func (p *Pipeline) Refresh(ctx context.Context, root string) (*state.State, error) {
	root = handle.Normalize(root)
	if !handle.Valid(root) {
		return nil, fmt.Errorf("invalid root handle %q", root)
	}

	followings, err := p.Resolver.ResolveFollowings(ctx, root, p.Opts.MaxFollowings)
	if err != nil {
		return nil, fmt.Errorf("ingest followings of @%s: %w", root, err)
	}

	candidates := p.selectCandidates(ctx, followings)
	slog.Info("candidate set built",
		slog.String("root", root),
		slog.Int("followings", len(followings)),
		slog.Int("candidates", len(candidates)))

	st, err := p.Store.Load()
	if err != nil {
		return nil, err
	}
	st.Refresh(candidates, "net:"+root)
	if err := p.Store.Save(st); err != nil {
		return nil, err
	}
	return st, nil
}

// RefreshManual replaces the candidate set with an explicit handle list,
// bypassing ingestion and the account filters. Invalid handles are rejected
// rather than dropped so a typo surfaces instead of silently shrinking the
// job.
func (p *Pipeline) RefreshManual(handles []string) (*state.State, error) {
	var candidates []string
	seen := make(map[string]bool)
	for _, raw := range handles {
		h := handle.Normalize(raw)
		if !handle.Valid(h) {
			return nil, fmt.Errorf("invalid handle %q in manual list", raw)
		}
		if seen[h] {
			continue
		}
		seen[h] = true
		candidates = append(candidates, h)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("manual handle list is empty")
	}

	st, err := p.Store.Load()
	if err != nil {
		return nil, err
	}
	st.Refresh(candidates, "manual")
	if err := p.Store.Save(st); err != nil {
		return nil, err
	}
	slog.Info("candidate set built from manual list",
		slog.Int("candidates", len(candidates)))
	return st, nil
}

// selectCandidates applies the handle validator and the configured account
// filters, preserving the followings order.
func (p *Pipeline) selectCandidates(ctx context.Context, followings []provider.Profile) []string {
	var out []string
	seen := make(map[string]bool)
	for _, f := range followings {
		h := handle.Normalize(f.Handle)
		if !handle.Valid(h) || seen[h] {
			continue
		}
		if p.Opts.VerifiedOnly && !f.Verified {
			continue
		}
		if p.Opts.HumansOnly && p.Classifier != nil {
			if kind := p.Classifier.Classify(ctx, f.Bio, f.DisplayName, h); kind == classify.Org {
				slog.Debug("skipping org account", slog.String("handle", h))
				continue
			}
		}
		seen[h] = true
		out = append(out, h)
	}
	return out
}

// RunBatch processes the next slice of pending handles. Every handle is
// marked processed and the state saved whether its item succeeded or not,
// so a poisoned account cannot wedge the job.
func (p *Pipeline) RunBatch(ctx context.Context) (*Report, error) {
	st, err := p.Store.Load()
	if err != nil {
		return nil, err
	}

	batch := st.NextBatch(p.Opts.BatchFraction)
	report := &Report{BatchSize: len(batch), Total: len(st.Candidates)}
	if len(batch) == 0 {
		report.Phase = st.Phase()
		slog.Info("nothing pending", slog.String("phase", string(report.Phase)))
		return report, nil
	}

	slog.Info("processing batch",
		slog.Int("size", len(batch)),
		slog.Int("pending", len(st.Pending())))

	for _, h := range batch {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if err := p.processOne(ctx, h); err != nil {
			report.Failed++
			slog.Warn("account processing failed",
				slog.String("handle", h),
				slog.Any("error", err))
		} else {
			report.Succeeded++
			slog.Info("skill generated", slog.String("handle", h))
		}

		st.MarkProcessed(h)
		if err := p.Store.Save(st); err != nil {
			return report, fmt.Errorf("persist state after @%s: %w", h, err)
		}
	}

	report.Pending = len(st.Pending())
	report.Phase = st.Phase()
	return report, nil
}

// processOne acquires content for one handle and writes its skill.
func (p *Pipeline) processOne(ctx context.Context, h string) error {
	prof, highlights, posts := p.acquire(ctx, h)
	if len(posts) == 0 {
		resolved, err := p.Resolver.ResolvePosts(ctx, h, p.Opts.MaxPosts)
		if err != nil {
			return fmt.Errorf("acquire content: %w", err)
		}
		posts = resolved
	}

	personName := h
	if prof != nil && prof.DisplayName != "" {
		personName = prof.DisplayName
	}

	profile, err := p.Generator.Generate(ctx, personName, h, highlights, posts)
	if err != nil {
		return err
	}
	if _, err := p.Writer.Save(profile); err != nil {
		return fmt.Errorf("save skill: %w", err)
	}
	return nil
}

// acquire tries the enricher first; all sections are optional. Whatever is
// missing afterwards the caller fills from the cascade.
func (p *Pipeline) acquire(ctx context.Context, h string) (*provider.Profile, []provider.Post, []provider.Post) {
	if p.Enricher == nil || !p.Enricher.Available() {
		prof, err := p.Resolver.ResolveProfile(ctx, h)
		if err != nil {
			slog.Debug("profile unavailable, proceeding without",
				slog.String("handle", h), slog.Any("error", err))
			prof = nil
		}
		return prof, nil, nil
	}

	enriched, err := p.Enricher.EnrichedProfile(ctx, h, p.Opts.MaxPosts)
	if err != nil {
		slog.Warn("enriched fetch failed, falling back to cascade",
			slog.String("handle", h), slog.Any("error", err))
		return nil, nil, nil
	}
	minText := p.Resolver.MinPostText
	if minText == 0 {
		minText = 50
	}
	if provider.TotalText(enriched.Posts) < minText {
		// Not enough content from the enricher; keep profile and
		// highlights but let the cascade find the posts.
		return enriched.Profile, enriched.Highlights, nil
	}
	return enriched.Profile, enriched.Highlights, enriched.Posts
}

// Status loads the current job state without mutating it.
func (p *Pipeline) Status() (*state.State, error) {
	return p.Store.Load()
}

// ClassifyHandle resolves a profile and classifies it. Used by the CLI for
// one-off inspection.
func (p *Pipeline) ClassifyHandle(ctx context.Context, h string) (classify.Kind, *provider.Profile, error) {
	h = handle.Normalize(h)
	if !handle.Valid(h) {
		return classify.Unknown, nil, fmt.Errorf("invalid handle %q", h)
	}
	prof, err := p.Resolver.ResolveProfile(ctx, h)
	if err != nil {
		return classify.Unknown, nil, err
	}
	kind := p.Classifier.Classify(ctx, prof.Bio, prof.DisplayName, h)
	return kind, prof, nil
}
