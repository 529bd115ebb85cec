package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simonhull/firebird-suite/weaver/internal/selftest"
	"github.com/simonhull/firebird-suite/weaver/pkg/logger"
)

// SelftestCmd creates the selftest command
func SelftestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "selftest",
		Short: "Run the built-in wiring scenarios against temporary projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report := selftest.Run(selftest.Checks(), logger.Default())
			fmt.Fprint(cmd.OutOrStdout(), report.Summary())
			if !report.Passed() {
				return fmt.Errorf("%d selftest check(s) failed", report.Failures())
			}
			return nil
		},
	}
}
