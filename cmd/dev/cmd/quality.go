package cmd

import (
	"fmt"

	"github.com/gophertribe/devtool/test"
	"github.com/spf13/cobra"
)

// QualityCmds returns the test and lint commands. Hardware backends are
// covered with fakes and the simulated sensor, so the integration run needs
// no device attached.
func QualityCmds() []*cobra.Command {
	return []*cobra.Command{
		qualityCmd("test", "Run unit tests", test.Test),
		qualityCmd("lint", "Run linting", test.Lint),
		qualityCmd("integration-test", "Run integration tests", test.Integ),
	}
}

func qualityCmd(use, short string, run func() error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := run(); err != nil {
				return fmt.Errorf("%s failed: %w", use, err)
			}
			return nil
		},
	}
}
