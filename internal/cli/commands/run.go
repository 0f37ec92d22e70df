package commands

import (
	"github.com/spf13/cobra"
)

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the application",
		Long: `Delegate to the configured application entry point.

The tool's stdout and stderr are streamed through, and its exit code is
propagated.`,
		Example: `  # Start the application through the managed environment
  pantry run`,
		RunE: runRun,
	}
}

func runRun(cmd *cobra.Command, _ []string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	return cc.Engine.RunApp(cmd.Context())
}
