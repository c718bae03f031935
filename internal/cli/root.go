package cli

import (
	"github.com/povarna/generative-ai-agents/api-discovery/internal/setup"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// NewRootCommand builds the discovery command tree. Flags default to the
// values in cfg.
func NewRootCommand(cfg *setup.Config, logger *zerolog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:          "discovery",
		Short:        "Find existing APIs by meaning, not by name",
		SilenceUsage: true,
		Long: `discovery extracts OpenAPI documents into a catalog, embeds the catalog into
a vector index and answers "does an API for this already exist?" queries
against it.`,
	}

	root.AddCommand(
		newExtractCommand(cfg, logger),
		newIndexCommand(cfg, logger),
		newQueryCommand(cfg, logger),
	)

	return root
}
