// Package pipeline orchestrates the dataset pipeline: environment setup,
// dataset acquisition, handoff to the external processor, delegation to the
// application and test runner, and cleanup. Every invocation is recorded in
// the run-history store.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pantrylab/pantry/internal/acquire"
	"github.com/pantrylab/pantry/internal/state"
	"github.com/pantrylab/pantry/internal/toolrunner"
)

// Config holds engine configuration.
type Config struct {
	// DatasetURL is the remote archive location.
	DatasetURL string
	// ArchiveName is the archive's filename inside RawDir.
	ArchiveName string
	// InnerDir is the wrapper directory the archive may extract into.
	InnerDir string
	// DownloadTimeout bounds the archive fetch.
	DownloadTimeout time.Duration
	// DownloadRetries is the number of extra fetch attempts.
	DownloadRetries uint64

	// RawDir is the staging directory for raw dataset files.
	RawDir string
	// StatePath is the run-history SQLite database path.
	StatePath string

	// SetupMarker makes setup idempotent: when this path exists the setup
	// commands are skipped.
	SetupMarker string
	// SetupCommands are run in order by Setup.
	SetupCommands []string

	// ProcessTool, RunTool and TestTool are external collaborator command
	// lines.
	ProcessTool string
	RunTool     string
	TestTool    string

	// CleanPaths are the trees Clean deletes.
	CleanPaths []string

	// WorkDir is the working directory for external tools, normally the
	// project root.
	WorkDir string

	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
	// OnStep observes acquisition step boundaries, e.g. for rendering.
	OnStep acquire.StepFunc
}

// Engine ties the acquirer, the tool runner and the run-history store
// together.
type Engine struct {
	cfg    Config
	store  *state.SQLiteStore
	runner *toolrunner.Runner
	logger *slog.Logger
}

// DataResult describes a completed data command.
type DataResult struct {
	Run     *state.Run
	Acquire *acquire.Result
}

// New creates an engine and opens the run-history store.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if dir := filepath.Dir(cfg.StatePath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore(logger)
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	if err := store.InitSchema(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize state schema: %w", err)
	}

	return &Engine{
		cfg:    cfg,
		store:  store,
		runner: toolrunner.New(cfg.WorkDir, logger),
		logger: logger,
	}, nil
}

// Close releases the engine's resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Runner exposes the external tool runner, mainly so commands can redirect
// its output streams.
func (e *Engine) Runner() *toolrunner.Runner {
	return e.runner
}

// Setup ensures the external tool environment exists. Idempotent: when the
// marker path is present the commands are skipped.
func (e *Engine) Setup(ctx context.Context) (skipped bool, err error) {
	run, err := e.store.CreateRun("setup")
	if err != nil {
		return false, err
	}
	defer func() { e.finishRun(run.ID, err) }()

	if _, statErr := os.Stat(e.cfg.SetupMarker); statErr == nil {
		e.logger.Info("environment marker present, skipping setup", slog.String("marker", e.cfg.SetupMarker))
		e.recordStep(run.ID, "marker", "present")
		return true, nil
	}

	for i, command := range e.cfg.SetupCommands {
		if err = e.runner.Stream(ctx, fmt.Sprintf("setup[%d]", i), command); err != nil {
			return false, fmt.Errorf("setup step failed: %w", err)
		}
		e.recordStep(run.ID, fmt.Sprintf("setup[%d]", i), command)
	}
	return false, nil
}

// Data runs the acquisition procedure and then the external processor.
func (e *Engine) Data(ctx context.Context) (res *DataResult, err error) {
	run, err := e.store.CreateRun("data")
	if err != nil {
		return nil, err
	}
	defer func() { e.finishRun(run.ID, err) }()

	acq := acquire.New(acquire.Config{
		URL:         e.cfg.DatasetURL,
		StagingDir:  e.cfg.RawDir,
		ArchiveName: e.cfg.ArchiveName,
		InnerDir:    e.cfg.InnerDir,
		Timeout:     e.cfg.DownloadTimeout,
		Retries:     e.cfg.DownloadRetries,
		Logger:      e.logger,
		OnStep: func(step acquire.Step, detail string) {
			e.recordStep(run.ID, string(step), detail)
			if e.cfg.OnStep != nil {
				e.cfg.OnStep(step, detail)
			}
		},
	})

	acqRes, err := acq.Run(ctx)
	if err != nil {
		return nil, err
	}

	if e.cfg.ProcessTool != "" {
		if err = e.runner.Stream(ctx, "process", e.cfg.ProcessTool); err != nil {
			return nil, fmt.Errorf("processing step failed: %w", err)
		}
		e.recordStep(run.ID, "process", e.cfg.ProcessTool)
	}

	return &DataResult{Run: run, Acquire: acqRes}, nil
}

// RunApp delegates to the external application entry point.
func (e *Engine) RunApp(ctx context.Context) error {
	return e.delegate(ctx, "run", e.cfg.RunTool)
}

// Test delegates to the external test runner.
func (e *Engine) Test(ctx context.Context) error {
	return e.delegate(ctx, "test", e.cfg.TestTool)
}

func (e *Engine) delegate(ctx context.Context, name, tool string) (err error) {
	if tool == "" {
		return fmt.Errorf("no %s tool configured (set tools.%s)", name, name)
	}

	run, err := e.store.CreateRun(name)
	if err != nil {
		return err
	}
	defer func() { e.finishRun(run.ID, err) }()

	err = e.runner.Stream(ctx, name, tool)
	return err
}

// Clean recursively deletes the configured paths. Irreversible; no
// confirmation is asked for.
func (e *Engine) Clean(ctx context.Context) (removed []string, err error) {
	run, err := e.store.CreateRun("clean")
	if err != nil {
		return nil, err
	}
	defer func() { e.finishRun(run.ID, err) }()

	for _, path := range e.cfg.CleanPaths {
		if err = ctx.Err(); err != nil {
			return removed, err
		}
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			continue
		}
		if err = os.RemoveAll(path); err != nil {
			return removed, fmt.Errorf("remove %s: %w", path, err)
		}
		removed = append(removed, path)
		e.recordStep(run.ID, "remove", path)
	}
	return removed, nil
}

// History returns the most recent recorded runs, newest first.
func (e *Engine) History(limit int) ([]*state.Run, error) {
	return e.store.ListRuns(limit)
}

// StepsFor returns a run's recorded steps.
func (e *Engine) StepsFor(runID string) ([]*state.StepRecord, error) {
	return e.store.StepsForRun(runID)
}

// finishRun closes out a run record. A store failure here must not mask the
// pipeline outcome, so it is only logged.
func (e *Engine) finishRun(runID string, runErr error) {
	status := state.RunStatusCompleted
	msg := ""
	if runErr != nil {
		status = state.RunStatusFailed
		msg = runErr.Error()
	}
	if err := e.store.CompleteRun(runID, status, msg); err != nil {
		e.logger.Warn("failed to record run completion", slog.String("run_id", runID), slog.Any("error", err))
	}
}

func (e *Engine) recordStep(runID, step, detail string) {
	if err := e.store.AddStep(runID, step, detail); err != nil {
		e.logger.Warn("failed to record step", slog.String("step", step), slog.Any("error", err))
	}
}
