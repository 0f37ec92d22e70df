// Package commands implements the pantry subcommands.
package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pantrylab/pantry/internal/acquire"
	"github.com/pantrylab/pantry/internal/cli/config"
	"github.com/pantrylab/pantry/internal/cli/output"
	"github.com/pantrylab/pantry/internal/pipeline"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *pipeline.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with an engine and renderer.
// The returned cleanup function must be called, typically via defer.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	eng, err := createEngine(cfg, logger, r)
	if err != nil {
		return nil, nil, err
	}

	// External tool output follows the command's streams.
	eng.Runner().Stdout = cmd.OutOrStdout()
	eng.Runner().Stderr = cmd.ErrOrStderr()

	cleanup := func() { _ = eng.Close() }

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Engine:   eng,
		Renderer: r,
	}, cleanup, nil
}

// getConfig returns the loaded configuration, or defaults when no load has
// happened (direct command construction in tests).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return &config.Config{
		Dataset: config.DatasetConfig{
			URL:      config.DefaultDatasetURL,
			Archive:  config.DefaultArchive,
			InnerDir: config.DefaultInnerDir,
		},
		Paths: config.PathsConfig{
			DataDir:      config.DefaultDataDir,
			RawDir:       config.DefaultRawDir,
			ProcessedDir: config.DefaultProcessedDir,
			StatePath:    config.DefaultStateFile,
		},
		Setup:        config.SetupConfig{Marker: config.DefaultEnvMarker},
		OutputFormat: config.DefaultOutput,
		LogFormat:    config.DefaultLogFormat,
		ProjectRoot:  ".",
	}
}

func createEngine(cfg *config.Config, logger *slog.Logger, r *output.Renderer) (*pipeline.Engine, error) {
	return pipeline.New(pipeline.Config{
		DatasetURL:      cfg.Dataset.URL,
		ArchiveName:     cfg.Dataset.Archive,
		InnerDir:        cfg.Dataset.InnerDir,
		DownloadTimeout: cfg.Dataset.Timeout,
		DownloadRetries: cfg.Dataset.Retries,
		RawDir:          cfg.Paths.RawDir,
		StatePath:       cfg.Paths.StatePath,
		SetupMarker:     cfg.Setup.Marker,
		SetupCommands:   cfg.Setup.Commands,
		ProcessTool:     cfg.Tools.Process,
		RunTool:         cfg.Tools.Run,
		TestTool:        cfg.Tools.Test,
		CleanPaths:      cfg.Clean.Paths,
		WorkDir:         cfg.ProjectRoot,
		Logger:          logger,
		OnStep: func(step acquire.Step, detail string) {
			r.StatusLine(string(step), "ok", detail)
		},
	})
}
