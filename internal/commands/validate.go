package commands

import (
	"github.com/spf13/cobra"

	"github.com/simonhull/firebird-suite/weaver/pkg/logger"
	"github.com/simonhull/firebird-suite/weaver/pkg/output"
	"github.com/simonhull/firebird-suite/weaver/pkg/validate"
)

// ValidateCmd creates the validate command
func ValidateCmd() *cobra.Command {
	var (
		ci        bool
		ecosystem bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the generated wiring map and apply the CI policy",
		Long: `Re-checks the generated map for staleness and route regressions and
reports orphans, gaps and inventory problems. Exits 1 when any
error-severity issue is found.

Examples:
  weaver validate                  # local run, all issues
  weaver validate --ci             # compact output, info issues hidden
  weaver validate --ci --ecosystem # required inventories must be present and fresh`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			opts := validate.Options{Ecosystem: ecosystem || cfg.Ecosystem}
			res, err := validate.New(cfg, opts, nil, logger.Default()).Validate(cmd.Context())
			if err != nil {
				return err
			}

			validate.Print(cmd.OutOrStdout(), res, validate.PrintOptions{
				CI:      ci,
				InfoCap: cfg.Thresholds.InfoDisplayCap,
				NoColor: ci || output.IsCI(),
			})
			if res.Failed() {
				return validate.ErrFailed
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&ci, "ci", false, "CI mode: hide info issues and disable colour")
	cmd.Flags().BoolVar(&ecosystem, "ecosystem", false, "Treat problems with required external inventories as errors")

	return cmd
}
