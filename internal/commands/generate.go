package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simonhull/firebird-suite/weaver"
	"github.com/simonhull/firebird-suite/weaver/pkg/logger"
	"github.com/simonhull/firebird-suite/weaver/pkg/output"
	"github.com/simonhull/firebird-suite/weaver/pkg/pipeline"
)

// GenerateCmd creates the generate command
func GenerateCmd() *cobra.Command {
	var (
		jsonOut bool
		html    bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the API wiring map and reports",
		Long: `Scans routes, functions, callers and e2e mocks, reconciles them and
writes the wiring map plus the orphan and coverage reports.

Examples:
  weaver generate           # write docs/api-wiring-map.json and both reports
  weaver generate --json    # print the map to stdout, write nothing
  weaver generate --html    # also write HTML renderings of the reports`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			g := pipeline.New(cfg, weaver.Version, logger.Default())
			out, err := g.Run()
			if err != nil {
				return fmt.Errorf("generate failed: %w", err)
			}

			if jsonOut {
				_, err := cmd.OutOrStdout().Write(out.Artifacts.Map)
				return err
			}

			paths, err := g.Write(out, html)
			if err != nil {
				return err
			}

			md := out.Map.Metadata
			output.Header("API wiring for " + md.Repo)
			output.Rule()
			output.Success("Wiring map generated")
			for _, p := range paths {
				output.Step(cfg.Rel(p))
			}
			output.Info(fmt.Sprintf("%d routes, %d functions, %d callers, %d skipped calls",
				md.RouteCount, md.FunctionCount, md.CallerCount, md.SkippedCallCount))
			if n := len(out.Map.ExternalCalls); n > 0 {
				output.Info(fmt.Sprintf("%d external call target(s): %d matched, %d unverified calls",
					n, md.CrossRepoMatches, md.UnverifiedExternalCalls))
			}
			output.Verbose(fmt.Sprintf("%d mocks (%d wildcard), %d routes covered, %d cross-repo matches",
				md.MockCount, md.WildcardMockCount, md.CoveredRouteCount, md.CrossRepoMatches))
			if md.OrphanCount > 0 {
				output.Warn(fmt.Sprintf("%d orphaned call path(s); see %s", md.OrphanCount, cfg.Outputs.OrphanReport))
			}
			if n := len(out.Map.E2EGaps); n > 0 {
				output.Warn(fmt.Sprintf("%d e2e mock(s) point at no route; see %s", n, cfg.Outputs.CoverageReport))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the wiring map to stdout instead of writing files")
	cmd.Flags().BoolVar(&html, "html", false, "Also write HTML renderings of the reports")

	return cmd
}
