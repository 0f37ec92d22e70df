package commands

import (
	"github.com/spf13/cobra"
)

// NewSetupCommand creates the setup command.
func NewSetupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Create the external tool environment",
		Long: `Run the configured setup commands to create the tool environment.

Setup is idempotent: when the configured marker path already exists the
commands are skipped.`,
		Example: `  # Create the environment (default: python3 virtualenv in .venv)
  pantry setup`,
		RunE: runSetup,
	}
}

func runSetup(cmd *cobra.Command, _ []string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	skipped, err := cc.Engine.Setup(cmd.Context())
	if err != nil {
		return err
	}

	if skipped {
		cc.Renderer.Muted("environment already present at " + cc.Cfg.Setup.Marker)
		return nil
	}
	cc.Renderer.Success("environment ready")
	return nil
}
