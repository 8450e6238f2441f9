package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"ContentRadar/internal/app"
	"ContentRadar/internal/classify"
	"ContentRadar/internal/config"
	"ContentRadar/internal/domain"
	"ContentRadar/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "contentradar",
		Short:         "Market content ingestion, tagging and signal aggregation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newCollectCmd())
	root.AddCommand(newClassifyCmd())
	root.AddCommand(newBackfillTagsCmd())
	return root
}

// buildApp loads configuration and assembles the application context.
func buildApp(ctx context.Context) (*app.Application, error) {
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)
	return app.New(ctx, cfg, logger)
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			server := &http.Server{
				Addr:              a.Cfg.API.Addr,
				Handler:           a.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			a.Logger.Info("api listening", "addr", a.Cfg.API.Addr)
			return server.ListenAndServe()
		},
	}
}

func newCollectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collect [source|all]",
		Short: "Run ingestion for one source, or all of them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			names := a.Registry.Names()
			if args[0] != "all" {
				if !slices.Contains(names, args[0]) {
					return fmt.Errorf("unknown source %q (available: %v)", args[0], names)
				}
				names = []string{args[0]}
			}

			for _, name := range names {
				col, err := a.Registry.Resolve(name)
				if err != nil {
					return err
				}
				summary, err := a.Coordinator.Run(cmd.Context(), col)
				if err != nil {
					a.Logger.Error("ingestion run failed", "source", name, "error", err)
					continue
				}
				fmt.Printf("%s: fetched=%d saved=%d skipped=%d failed=%d\n",
					summary.Source, summary.Fetched, summary.Saved, summary.Skipped, summary.Failed)
			}
			return nil
		},
	}
}

func newClassifyCmd() *cobra.Command {
	var (
		limit     int
		batchSize int
		budget    float64
	)

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Score unscored records via the external reasoning service",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if a.Reasoner == nil {
				return fmt.Errorf("classifier not configured: set REASONER_API_KEY")
			}

			cfg := a.Cfg.Classifier
			if batchSize > 0 {
				cfg.BatchSize = batchSize
			}
			if budget > 0 {
				cfg.Budget = budget
			}

			classifier := classify.NewClassifier(a.Reasoner, cfg, a.Logger)
			summary, err := classify.Run(cmd.Context(), a.Store, classifier, limit, cfg.BatchSize, a.Logger)
			if err != nil {
				return err
			}

			fmt.Printf("scored=%d batches=%d cost=$%.4f\n", summary.Scored, summary.Batches, summary.Cost)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "process only the N most recent unscored records (0 = all)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "records per reasoner call")
	cmd.Flags().Float64Var(&budget, "budget", 0, "max estimated spend for this run ($)")
	return cmd
}

func newBackfillTagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backfill-tags",
		Short: "Re-apply the keyword rules to every stored record",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := a.Store.Query(cmd.Context(), domain.RecordFilter{})
			if err != nil {
				return err
			}

			updated := 0
			for _, rec := range records {
				merged := domain.MergeTags(rec.Tags, a.Tagger.Score(rec.Title, rec.Body))
				if slices.Equal(merged, rec.Tags) {
					continue
				}
				if err := a.Store.UpdateTags(cmd.Context(), rec.ID, merged); err != nil {
					a.Logger.Warn("backfill update failed", "id", rec.ID, "error", err)
					continue
				}
				updated++
			}

			fmt.Printf("checked=%d updated=%d\n", len(records), updated)
			return nil
		},
	}
}
