package cli

import (
	"fmt"

	"github.com/povarna/generative-ai-agents/api-discovery/internal/setup"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newQueryCommand(cfg *setup.Config, logger *zerolog.Logger) *cobra.Command {
	var q, indexDir string
	var k int
	var raw bool

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Show the APIs closest to a query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			local := *cfg
			local.IndexDir = indexDir

			deps, err := setup.WireRetrieval(ctx, &local, logger)
			if err != nil {
				return err
			}
			defer deps.Close()

			p := newPrinter(cmd.OutOrStdout())

			if raw {
				hits, err := deps.Engine.Hits(ctx, q, k)
				if err != nil {
					return err
				}
				p.header(fmt.Sprintf("Top %d rows for: %q", len(hits), q))
				for i, hit := range hits {
					p.item(i+1, hit.Document.Title, fmt.Sprintf("%.4f", hit.Score), hit.Document.Description, hit.Document.Endpoints)
				}
				return nil
			}

			results, err := deps.Engine.TopAPIs(ctx, q, k)
			if err != nil {
				return err
			}
			p.header(fmt.Sprintf("Top %d results for: %q", len(results), q))
			for i, r := range results {
				p.item(i+1, r.Title, fmt.Sprintf("%.1f", r.Score), r.Description, r.Endpoints)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&q, "q", "q", "", "Query string")
	cmd.Flags().IntVarP(&k, "k", "k", 5, "Top K results")
	cmd.Flags().BoolVar(&raw, "raw", false, "List index rows without merging duplicate titles")
	cmd.Flags().StringVar(&indexDir, "index", cfg.IndexDir, "Directory of the index artifacts")
	_ = cmd.MarkFlagRequired("q")

	return cmd
}
