package commands

import (
	"time"

	"github.com/spf13/cobra"
)

// NewDataCommand creates the data command.
func NewDataCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "data",
		Short: "Download, extract and process the dataset",
		Long: `Acquire the dataset archive and hand it to the external processor.

The acquisition is idempotent: a previously downloaded archive whose
checksum still matches is reused, an already flattened layout is left
alone, and the archive is deleted once its contents are staged.`,
		Example: `  # Fetch and process the dataset
  pantry data

  # Fetch from a different location
  pantry data --url https://example.com/dataset.zip`,
		RunE: runData,
	}
}

func runData(cmd *cobra.Command, _ []string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	cc.Renderer.Header(2, "Acquiring dataset")

	start := time.Now()
	res, err := cc.Engine.Data(cmd.Context())
	if err != nil {
		return err
	}

	if res.Acquire.CleanupWarning != nil {
		cc.Renderer.Warning("archive cleanup failed: " + res.Acquire.CleanupWarning.Error())
	}
	if !res.Acquire.Downloaded {
		cc.Renderer.Muted("archive reused from cache")
	}

	cc.Renderer.Success("data ready in " + cc.Cfg.Paths.RawDir)
	cc.Renderer.Muted("completed in " + time.Since(start).Round(time.Millisecond).String())
	return nil
}
