package commands

import (
	"github.com/spf13/cobra"
)

// NewTestCommand creates the test command.
func NewTestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Run the test suite",
		Long: `Delegate to the configured test runner.

The runner's stdout and stderr are streamed through, and its exit code is
propagated.`,
		Example: `  # Run the project's tests through the managed environment
  pantry test`,
		RunE: runTest,
	}
}

func runTest(cmd *cobra.Command, _ []string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	return cc.Engine.Test(cmd.Context())
}
