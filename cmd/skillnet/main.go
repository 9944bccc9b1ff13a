// Command skillnet builds a library of persona skills from a social
// account's following network.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"skillnet/internal/cascade"
	"skillnet/internal/classify"
	"skillnet/internal/config"
	"skillnet/internal/keypool"
	"skillnet/internal/pipeline"
	"skillnet/internal/provider"
	"skillnet/internal/provider/apify"
	"skillnet/internal/provider/badger"
	"skillnet/internal/provider/twitterapi"
	"skillnet/internal/provider/xweb"
	"skillnet/internal/skills"
	"skillnet/internal/state"
)

var (
	flagConfig  string
	flagVerbose bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "skillnet",
		Short:         "Build persona skills from a following network",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if flagVerbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "config.yaml", "config file path")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newBuildCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newClassifyCmd())
	return root
}

// newPipeline wires providers, classifier, generator, and state from config.
// Skill generation is optional: commands that never generate pass
// needGenerator=false and work without a model key.
func newPipeline(ctx context.Context, cfg *config.Config, needGenerator bool) (*pipeline.Pipeline, error) {
	resolver, enricher, err := buildResolver(cfg)
	if err != nil {
		return nil, err
	}

	var judge classify.Judge
	if cfg.Classifier.GeminiAPIKey != "" {
		j, err := classify.NewGeminiJudge(ctx, cfg.Classifier.GeminiAPIKey, cfg.Classifier.Model)
		if err != nil {
			return nil, err
		}
		judge = j
	} else {
		slog.Warn("no GEMINI_API_KEY, classifier runs heuristics only")
	}

	var gen pipeline.SkillGenerator
	if needGenerator {
		g, err := skills.NewGenerator(ctx, cfg.Classifier.GeminiAPIKey, cfg.Skills.Model)
		if err != nil {
			return nil, fmt.Errorf("skill generation needs GEMINI_API_KEY: %w", err)
		}
		gen = g
	}

	return &pipeline.Pipeline{
		Resolver:   resolver,
		Classifier: classify.New(judge),
		Generator:  gen,
		Writer:     &skills.Writer{Dir: cfg.Paths.SkillsDir},
		Store:      state.NewStore(cfg.Paths.StateFile),
		Enricher:   enricher,
		Opts: pipeline.Options{
			MaxFollowings: cfg.Network.MaxFollowings,
			MaxPosts:      cfg.Network.MaxPosts,
			BatchFraction: cfg.Network.BatchFraction,
			VerifiedOnly:  cfg.Network.VerifiedOnly,
			HumansOnly:    cfg.Network.HumansOnly,
		},
	}, nil
}

// buildResolver instantiates the configured providers in cascade order.
func buildResolver(cfg *config.Config) (*cascade.Resolver, provider.Enricher, error) {
	r := &cascade.Resolver{MinPostText: cfg.Network.MinPostText}
	var enricher provider.Enricher

	for _, name := range cfg.Providers.Order {
		switch name {
		case "twitterapi":
			c := twitterapi.New(keypool.New(cfg.Providers.TwitterAPIKeys))
			r.Followings = append(r.Followings, c)
			r.Posts = append(r.Posts, c)
			r.Profiles = append(r.Profiles, c)

		case "badger":
			c := badger.New(keypool.New(cfg.Providers.ScrapeBadgerKeys))
			r.Followings = append(r.Followings, c)
			r.Posts = append(r.Posts, c)
			r.Profiles = append(r.Profiles, c)
			if c.Available() {
				enricher = c
			}

		case "apify":
			c := apify.New(cfg.Providers.ApifyToken)
			r.Posts = append(r.Posts, c)
			r.Profiles = append(r.Profiles, c)

		case "xweb":
			client, err := xweb.NewClient(xweb.Config{
				Accounts:     xweb.ParseAccounts(cfg.Providers.XAccounts),
				DefaultProxy: cfg.Providers.XProxy,
				SessionDir:   cfg.Providers.XSessionDir,
			})
			if err != nil {
				return nil, nil, fmt.Errorf("native web client: %w", err)
			}
			a := xweb.NewAdapter(client)
			r.Followings = append(r.Followings, a)
			r.Posts = append(r.Posts, a)
			r.Profiles = append(r.Profiles, a)
		}
	}
	return r, enricher, nil
}

func newBuildCmd() *cobra.Command {
	var (
		refresh bool
		handles []string
	)

	cmd := &cobra.Command{
		Use:   "build [handle]",
		Short: "Ingest the network and process the next batch of accounts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			p, err := newPipeline(ctx, cfg, true)
			if err != nil {
				return err
			}

			if len(handles) > 0 {
				if _, err := p.RefreshManual(handles); err != nil {
					return err
				}
			} else {
				root := cfg.Network.Handle
				if len(args) == 1 {
					root = args[0]
				}
				if root == "" {
					return fmt.Errorf("no handle given (argument, --handles, or network.handle in config)")
				}

				st, err := p.Status()
				if err != nil {
					return err
				}
				tag := "net:" + strings.TrimPrefix(root, "@")
				if refresh || len(st.Candidates) == 0 || st.SourceTag != tag {
					if _, err := p.Refresh(ctx, root); err != nil {
						return err
					}
				}
			}

			report, err := p.RunBatch(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("batch: %d processed (%d ok, %d failed), %d/%d pending, phase %s\n",
				report.BatchSize, report.Succeeded, report.Failed,
				report.Pending, report.Total, report.Phase)
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "discard saved state and re-ingest the network")
	cmd.Flags().StringSliceVar(&handles, "handles", nil, "seed the candidate set from these handles instead of a following graph")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the saved job state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			st, err := state.NewStore(cfg.Paths.StateFile).Load()
			if err != nil {
				return err
			}
			fmt.Printf("source:     %s\n", st.SourceTag)
			fmt.Printf("phase:      %s\n", st.Phase())
			fmt.Printf("candidates: %d\n", len(st.Candidates))
			fmt.Printf("processed:  %d\n", len(st.Processed))
			fmt.Printf("pending:    %d\n", len(st.Pending()))
			if !st.LastUpdated.IsZero() {
				fmt.Printf("updated:    %s\n", st.LastUpdated.Format("2006-01-02 15:04:05 MST"))
			}
			return nil
		},
	}
}

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <handle>",
		Short: "Classify one account as human or organization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			p, err := newPipeline(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			kind, prof, err := p.ClassifyHandle(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("@%s (%s): %s\n", prof.Handle, prof.DisplayName, kind)
			if prof.Bio != "" {
				fmt.Printf("bio: %s\n", prof.Bio)
			}
			return nil
		},
	}
}
