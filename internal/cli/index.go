package cli

import (
	"fmt"

	"github.com/povarna/generative-ai-agents/api-discovery/internal/extraction"
	"github.com/povarna/generative-ai-agents/api-discovery/internal/ingestion"
	"github.com/povarna/generative-ai-agents/api-discovery/internal/setup"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newIndexCommand(cfg *setup.Config, logger *zerolog.Logger) *cobra.Command {
	var catalog, out string
	var pgvector bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Embed the catalog and write the vector index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			specs, err := extraction.LoadCatalog(catalog)
			if err != nil {
				return err
			}

			embedder, err := setup.NewEmbedder(ctx, cfg)
			if err != nil {
				return err
			}

			pipeline := ingestion.NewPipeline(embedder, logger)
			store, err := pipeline.Build(ctx, specs)
			if err != nil {
				return err
			}
			if err := store.Save(out); err != nil {
				return err
			}

			p := newPrinter(cmd.OutOrStdout())
			p.success(fmt.Sprintf("Indexed %d APIs (dim=%d, model=%s) to %s", store.Len(), store.Dim(), embedder.ModelID(), out))

			if !pgvector {
				return nil
			}

			db, err := setup.ConnectDatabase(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.EnsureSchema(ctx, store.Dim()); err != nil {
				return err
			}
			if err := pipeline.Sync(ctx, store, db); err != nil {
				return err
			}

			p.success(fmt.Sprintf("Synced %d APIs to pgvector", store.Len()))
			return nil
		},
	}

	cmd.Flags().StringVar(&catalog, "catalog", cfg.CatalogPath, "Catalog file produced by extract")
	cmd.Flags().StringVar(&out, "out", cfg.IndexDir, "Directory for the index artifacts")
	cmd.Flags().BoolVar(&pgvector, "pgvector", false, "Also copy the index into Postgres")

	return cmd
}
