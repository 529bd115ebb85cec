package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simonhull/firebird-suite/weaver"
	"github.com/simonhull/firebird-suite/weaver/pkg/logger"
	"github.com/simonhull/firebird-suite/weaver/pkg/output"
	"github.com/simonhull/firebird-suite/weaver/pkg/pipeline"
)

// InventoryCmd creates the generate-inventory command
func InventoryCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "generate-inventory",
		Short: "Write this repository's route inventory for sibling repos",
		Long: `Discovers local routes and functions and writes them as a versioned
inventory that sibling repositories list under external_sources.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			g := pipeline.New(cfg, weaver.Version, logger.Default())
			inv, data, err := g.Inventory()
			if err != nil {
				return fmt.Errorf("generate-inventory failed: %w", err)
			}
			target, err := g.WriteInventory(outPath, data)
			if err != nil {
				return err
			}

			output.Success(fmt.Sprintf("Inventory for %s written (%d routes, schema %s)", inv.Repo, len(inv.Routes), inv.SchemaVersion))
			output.Step(cfg.Rel(target))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output path (default: outputs.inventory_path)")

	return cmd
}
