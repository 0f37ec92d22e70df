package commands

import (
	"github.com/spf13/cobra"
)

// NewCleanCommand creates the clean command.
func NewCleanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Delete generated directories",
		Long: `Recursively delete the configured paths: the environment, caches and
downloaded data. Paths that do not exist are skipped.`,
		Example: `  # Remove .venv, caches and data
  pantry clean`,
		RunE: runClean,
	}
}

func runClean(cmd *cobra.Command, _ []string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	removed, err := cc.Engine.Clean(cmd.Context())
	if err != nil {
		return err
	}

	if len(removed) == 0 {
		cc.Renderer.Muted("nothing to clean")
		return nil
	}
	for _, path := range removed {
		cc.Renderer.StatusLine("removed", "ok", path)
	}
	cc.Renderer.Success("clean complete")
	return nil
}
