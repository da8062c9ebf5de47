package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/clanktank/judge-engine/internal/analyzer"
	"github.com/clanktank/judge-engine/internal/api"
	"github.com/clanktank/judge-engine/internal/audit"
	"github.com/clanktank/judge-engine/internal/config"
	"github.com/clanktank/judge-engine/internal/judging"
	"github.com/clanktank/judge-engine/internal/llmclient"
	"github.com/clanktank/judge-engine/internal/pipeline"
	"github.com/clanktank/judge-engine/internal/prizepool"
	"github.com/clanktank/judge-engine/internal/recovery"
	"github.com/clanktank/judge-engine/internal/research"
	"github.com/clanktank/judge-engine/internal/store"
	"github.com/clanktank/judge-engine/internal/synth"
	"github.com/clanktank/judge-engine/internal/votes"
	"github.com/clanktank/judge-engine/pkg/models"
)

// deps bundles every component the subcommands need, assembled once in
// main() the same way the teacher's cmd/engine/main.go builds its
// dbConn/btcClient/wsHub trio before handing them to api.SetupRouter.
type deps struct {
	cfg      *config.Config
	st       *store.Store
	auditLog *audit.Log
	driver   *pipeline.Driver
}

func main() {
	var submissionID string
	var all bool
	var version string
	var output string
	var force bool

	root := &cobra.Command{
		Use:   "judge",
		Short: "judge — hackathon submission research, scoring, and leaderboard pipeline",
	}
	root.PersistentFlags().StringVar(&submissionID, "submission-id", "", "Operate on a single submission")
	root.PersistentFlags().BoolVar(&all, "all", false, "Operate on every eligible submission")
	root.PersistentFlags().StringVar(&version, "version", "v2", "Schema version (v1, v2)")
	root.PersistentFlags().StringVar(&output, "output", "", "Write output to this file instead of stdout")
	root.PersistentFlags().BoolVar(&force, "force", false, "Bypass cache / attempt repair, depending on subcommand")
	root.PersistentFlags().String("db-file", "", "Unused — this engine is Postgres-backed; accepted for CLI surface parity")

	root.AddCommand(
		researchCmd(&submissionID, &all, &force),
		scoreCmd(&submissionID, &all),
		synthesizeCmd(),
		leaderboardCmd(&output),
		serveCmd(),
		dbCmd(),
		episodeCmd(),
		uploadCmd(),
		staticDataCmd(),
		votesCmd(),
		recoveryCmd(&submissionID, &force),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap connects the Store and wires every pipeline-stage component.
// Callers defer d.st.Close().
func bootstrap(ctx context.Context) (*deps, error) {
	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		config.RequireEnv("DATABASE_URL") // exits the process with a clear message
	}

	st, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("judge: failed to connect to store: %w", err)
	}
	if err := st.InitSchema(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("judge: failed to init schema: %w", err)
	}

	auditLog := audit.New(st.Pool())

	llm := llmclient.New(llmclient.Config{APIKey: cfg.LLMAPIKey, Model: cfg.LLMModel})
	analyzerClient := analyzer.NewClient(analyzer.Config{Token: cfg.RepoPlatformToken})

	researchOrch := research.New(st, analyzerClient, llm, auditLog, cfg.ResearchCacheDir, cfg.ResearchCacheTTL)
	judgingEngine := judging.New(st, llm, auditLog)
	synthesizer := synth.New(st, llm, auditLog)
	driver := pipeline.New(st, researchOrch, judgingEngine, synthesizer, auditLog)

	return &deps{cfg: cfg, st: st, auditLog: auditLog, driver: driver}, nil
}

func printStats(cmd *cobra.Command, stage string, stats pipeline.Stats) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s: processed=%d succeeded=%d failed=%d\n", stage, stats.Processed, stats.Succeeded, stats.Failed)
	for id, msg := range stats.Failures {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s\n", id, msg)
	}
}

func researchCmd(submissionID *string, all, force *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "research",
		Short: "Run the research stage (analyze repo, curate context, call the LLM)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer d.st.Close()

			stats, err := d.driver.ResearchBatch(ctx, *submissionID, *all, *force)
			if err != nil {
				return err
			}
			printStats(cmd, "research", stats)
			if stats.Failed > 0 {
				return fmt.Errorf("judge: %d submission(s) failed research", stats.Failed)
			}
			return nil
		},
	}
}

func scoreCmd(submissionID *string, all *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "score",
		Short: "Run the four-judge scoring stage over researched submissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer d.st.Close()

			stats, err := d.driver.JudgingBatch(ctx, *submissionID, *all)
			if err != nil {
				return err
			}
			printStats(cmd, "score", stats)
			if stats.Failed > 0 {
				return fmt.Errorf("judge: %d submission(s) failed scoring", stats.Failed)
			}
			return nil
		},
	}
}

func synthesizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "synthesize",
		Short: "Run the round-2 comparative synthesis pass over every scored submission",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer d.st.Close()

			stats, err := d.driver.Synthesize(ctx)
			if err != nil {
				return err
			}
			printStats(cmd, "synthesize", stats)
			if stats.Failed > 0 {
				return fmt.Errorf("judge: synthesis failed for %d submission(s)", stats.Failed)
			}
			return nil
		},
	}
}

func leaderboardCmd(output *string) *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the current leaderboard (scored/completed/published submissions)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer d.st.Close()

			statuses := []models.Status{models.StatusScored, models.StatusCompleted, models.StatusPublished}
			subs, err := d.st.ListSubmissions(ctx, store.ListOptions{Statuses: statuses})
			if err != nil {
				return fmt.Errorf("judge: failed to list submissions: %w", err)
			}

			type row struct {
				ProjectName string  `json:"project_name"`
				Category    string  `json:"category"`
				Total       float64 `json:"weighted_total"`
			}
			rows := make([]row, 0, len(subs))
			for _, sub := range subs {
				scores, err := d.st.LatestScores(ctx, sub.SubmissionID)
				if err != nil {
					continue
				}
				var total float64
				for _, sc := range scores {
					total += sc.WeightedTotal
				}
				if len(scores) > 0 {
					total /= float64(len(scores))
				}
				rows = append(rows, row{ProjectName: sub.ProjectName, Category: string(sub.Category), Total: total})
			}

			var w *os.File = os.Stdout
			if *output != "" {
				f, err := os.Create(*output)
				if err != nil {
					return fmt.Errorf("judge: failed to open %s: %w", *output, err)
				}
				defer f.Close()
				w = f
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server (submissions, leaderboard, auth, webhooks, prize pool)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer d.st.Close()
			cfg := d.cfg

			auth := api.NewAuth(d.st, d.auditLog, cfg.DiscordClientID, cfg.DiscordClientSecret, cfg.DiscordRedirectURI, cfg.DiscordBotToken, cfg.DiscordGuildID, cfg.SessionSigningKey, cfg.TestAuthToken, cfg.IsProduction())
			hub := api.NewHub()
			go hub.Run()

			var holders *votes.Registry
			if cfg.HoldersManifestPath != "" {
				holders, err = votes.LoadRegistry(cfg.HoldersManifestPath)
				if err != nil {
					fmt.Fprintf(os.Stderr, "judge: warning: failed to load holders manifest, community score falls back to sender-weight only: %v\n", err)
				}
			}
			ingestor := votes.NewIngestor(d.st, holders, cfg.PrizeWalletAddress, cfg.GovernanceMint, cfg.VoteCap)

			var pw *prizepool.Watcher
			if cfg.PrizeWalletAddress != "" {
				pw = prizepool.New(cfg.AssetIndexURL, cfg.WalletStreamURL, cfg.PrizeWalletAddress, cfg.GovernanceMint, cfg.ReserveStableMint, hub)
				if err := pw.Start(ctx); err != nil {
					fmt.Fprintf(os.Stderr, "judge: warning: prize pool watcher failed to start, /api/prize-pool will read as unconfigured: %v\n", err)
					pw = nil
				}
			}

			if cfg.PrizeWalletAddress != "" && cfg.HeliusAPIKey != "" {
				poller := votes.NewPoller(ingestor, cfg.AssetIndexURL, cfg.HeliusAPIKey, cfg.PrizeWalletAddress)
				go poller.Run(ctx)
			}

			handler := api.NewHandler(d.st, cfg, d.auditLog, auth, hub, pw, ingestor, holders, cfg.UploadDir)
			r := api.SetupRouter(handler)

			fmt.Fprintf(cmd.OutOrStdout(), "judge: serving on :%s\n", cfg.Port)
			return r.Run(":" + cfg.Port)
		},
	}
}

func dbCmd() *cobra.Command {
	dbc := &cobra.Command{
		Use:   "db",
		Short: "Manage the database schema",
	}
	dbc.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Create the schema if it does not already exist",
		RunE:  runDBInit,
	})
	// migrate is an alias for create: every statement in schema.sql is
	// idempotent (CREATE ... IF NOT EXISTS), so there is no separate
	// migration log to replay — see DESIGN.md.
	dbc.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply the schema (idempotent, safe to re-run)",
		RunE:  runDBInit,
	})
	return dbc
}

func runDBInit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, err := store.Connect(ctx, config.RequireEnv("DATABASE_URL"))
	if err != nil {
		return err
	}
	defer st.Close()
	return st.InitSchema(ctx)
}

// episodeCmd, uploadCmd, staticDataCmd are accepted for CLI surface
// parity with the original backend's script set but are out of scope
// per this engine's Non-goals (episode-dialogue generation, YouTube
// upload glue, and static-file snapshotting are external collaborators).
func episodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "episode",
		Short: "Generate episode dialogue (external collaborator — not implemented here)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("judge: episode generation is handled by an external collaborator, not this engine")
		},
	}
}

func uploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload",
		Short: "Upload a rendered episode (external collaborator — not implemented here)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("judge: video upload is handled by an external collaborator, not this engine")
		},
	}
}

func staticDataCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "static-data",
		Short: "Snapshot static data for the frontend (external collaborator — not implemented here)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("judge: static-file snapshotting is handled by an external collaborator, not this engine")
		},
	}
}

func votesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "votes",
		Short: "Poll the indexer once for new votes/donations into the prize wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer d.st.Close()
			cfg := d.cfg

			if cfg.PrizeWalletAddress == "" || cfg.HeliusAPIKey == "" {
				return fmt.Errorf("judge: PRIZE_WALLET_ADDRESS and HELIUS_API_KEY must both be configured")
			}

			var holders *votes.Registry
			if cfg.HoldersManifestPath != "" {
				holders, err = votes.LoadRegistry(cfg.HoldersManifestPath)
				if err != nil {
					fmt.Fprintf(os.Stderr, "judge: warning: failed to load holders manifest: %v\n", err)
				}
			}
			ingestor := votes.NewIngestor(d.st, holders, cfg.PrizeWalletAddress, cfg.GovernanceMint, cfg.VoteCap)
			poller := votes.NewPoller(ingestor, cfg.AssetIndexURL, cfg.HeliusAPIKey, cfg.PrizeWalletAddress)

			pollCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			go poller.Run(pollCtx)
			<-pollCtx.Done()
			fmt.Fprintln(cmd.OutOrStdout(), "judge: vote poll cycle complete")
			return nil
		},
	}
}

func recoveryCmd(submissionID *string, force *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "recovery",
		Short: "Scan for submissions stuck at a stage whose terminal artifact already exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer d.st.Close()

			anomalies, err := recovery.Scan(ctx, d.st, *force)
			if err != nil {
				return err
			}
			if len(anomalies) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "judge: no anomalies found")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SUBMISSION\tSTATUS\tREPAIRED\tPROBLEM")
			for _, a := range anomalies {
				if *submissionID != "" && a.SubmissionID != *submissionID {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%v\t%s\n", a.SubmissionID, a.Status, a.Repaired, a.Problem)
			}
			return w.Flush()
		},
	}
}
