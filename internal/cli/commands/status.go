package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/pantrylab/pantry/internal/cli/output"
	"github.com/pantrylab/pantry/internal/state"
)

// StatusOptions holds options for the status command.
type StatusOptions struct {
	Limit int
}

// NewStatusCommand creates the status command.
func NewStatusCommand() *cobra.Command {
	opts := &StatusOptions{}

	cmd := &cobra.Command{
		Use:   "status [run-id]",
		Short: "Show recorded pipeline runs",
		Long: `List recent pipeline runs, newest first.

With a run ID argument, show the steps recorded for that run instead.`,
		Example: `  # Show the last 20 runs
  pantry status

  # Show more history
  pantry status --limit 50

  # Show the steps of one run
  pantry status 4f7c1b2a-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, opts, args)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "Maximum number of runs to show")

	return cmd
}

func runStatus(cmd *cobra.Command, opts *StatusOptions, args []string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if len(args) == 1 {
		return renderSteps(cc, args[0])
	}
	return renderRuns(cc, opts.Limit)
}

func renderRuns(cc *CommandContext, limit int) error {
	runs, err := cc.Engine.History(limit)
	if err != nil {
		return err
	}

	if cc.Renderer.EffectiveMode() == output.ModeJSON {
		return cc.Renderer.JSON(runs)
	}

	if len(runs) == 0 {
		cc.Renderer.Muted("no runs recorded yet")
		return nil
	}

	rows := make([][]string, len(runs))
	for i, run := range runs {
		rows[i] = []string{
			shortID(run.ID),
			run.Command,
			string(run.Status),
			run.StartedAt.Format(time.RFC3339),
			runDuration(run),
			run.Error,
		}
	}
	cc.Renderer.Table([]string{"ID", "COMMAND", "STATUS", "STARTED", "DURATION", "ERROR"}, rows)
	return nil
}

func renderSteps(cc *CommandContext, runID string) error {
	steps, err := cc.Engine.StepsFor(runID)
	if err != nil {
		return err
	}

	if cc.Renderer.EffectiveMode() == output.ModeJSON {
		return cc.Renderer.JSON(steps)
	}

	if len(steps) == 0 {
		cc.Renderer.Muted("no steps recorded for run " + runID)
		return nil
	}

	rows := make([][]string, len(steps))
	for i, step := range steps {
		rows[i] = []string{
			step.Step,
			step.Detail,
			step.CompletedAt.Format(time.RFC3339),
		}
	}
	cc.Renderer.Table([]string{"STEP", "DETAIL", "COMPLETED"}, rows)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func runDuration(run *state.Run) string {
	if run.CompletedAt == nil {
		return "-"
	}
	return run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
}
