package main

import (
	"errors"
	"os"

	"github.com/simonhull/firebird-suite/weaver/internal/commands"
	"github.com/simonhull/firebird-suite/weaver/pkg/output"
	"github.com/simonhull/firebird-suite/weaver/pkg/validate"
)

func main() {
	rootCmd := commands.RootCmd()
	commands.Register(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, validate.ErrFailed) {
			output.Error(err.Error())
		}
		os.Exit(1)
	}
}
