package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/simonhull/firebird-suite/weaver"
	"github.com/simonhull/firebird-suite/weaver/pkg/config"
	"github.com/simonhull/firebird-suite/weaver/pkg/logger"
	"github.com/simonhull/firebird-suite/weaver/pkg/output"
)

// RootCmd creates and returns the root command for the weaver CLI
func RootCmd() *cobra.Command {
	var (
		verbose    bool
		level      string
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "weaver",
		Short: "API wiring validation for route, caller and mock consistency",
		Long: `Weaver maps every API route and serverless function in a project to
the code that calls it and the e2e tests that mock it.

It reports calls with no route, routes with no caller, and mocks that
point nowhere, and fails CI when the wiring breaks:
  weaver generate             # write the wiring map and reports
  weaver generate-inventory   # publish this repo's routes for sibling repos
  weaver validate --ci        # gate a pull request`,
		Version:       weaver.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			output.SetVerbose(verbose)
			logger.SetDefault(logger.NewLogger(logLevel(level, verbose), os.Stderr))
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output for debugging")
	cmd.PersistentFlags().StringVar(&level, "log-level", "warn", "Diagnostic log level (debug, info, warn, error, silent)")
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultFileName, "Path to configuration file")

	return cmd
}

// Register adds every weaver subcommand to root
func Register(root *cobra.Command) {
	root.AddCommand(GenerateCmd())
	root.AddCommand(InventoryCmd())
	root.AddCommand(ValidateCmd())
	root.AddCommand(SelftestCmd())
	root.AddCommand(InitCmd())
	root.AddCommand(VersionCmd())
}

// logLevel picks the diagnostic level; --verbose always means debug
func logLevel(name string, verbose bool) logger.Level {
	if verbose {
		return logger.LevelDebug
	}
	return logger.ParseLevel(name)
}

// loadConfig reads the file named by --config. Only an explicitly passed
// file has to exist.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return config.LoadConfig(path, cmd.Flags().Changed("config"))
}
