package cli

import (
	"fmt"

	"github.com/povarna/generative-ai-agents/api-discovery/internal/extraction"
	"github.com/povarna/generative-ai-agents/api-discovery/internal/setup"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newExtractCommand(cfg *setup.Config, logger *zerolog.Logger) *cobra.Command {
	var input, output string

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract OpenAPI documents into a JSON catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parser := extraction.NewParser(logger)

			specs, failures, err := parser.ParseDir(input, output)
			if err != nil {
				return err
			}
			if err := extraction.WriteCatalog(output, specs); err != nil {
				return err
			}

			p := newPrinter(cmd.OutOrStdout())
			p.success(fmt.Sprintf("Extracted %d APIs to %s", len(specs), output))
			for _, f := range failures {
				p.warn(fmt.Sprintf("skipped %s: %v", f.Path, f.Err))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", cfg.SpecsDir, "Directory of OpenAPI JSON/YAML documents")
	cmd.Flags().StringVar(&output, "output", cfg.CatalogPath, "Catalog file to write")

	return cmd
}
