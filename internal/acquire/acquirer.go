// Package acquire implements the idempotent dataset acquisition procedure:
// ensure the staging directory, download the archive unless a valid local
// copy exists, extract it, flatten the wrapper directory the archive may
// introduce, and delete the archive.
//
// The procedure is a small state machine; every step checks its
// precondition, so a re-run after success or partial failure resumes from
// the first unsatisfied state instead of redoing finished work.
package acquire

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofrs/flock"
)

// State identifies how far the acquisition has progressed.
type State string

const (
	StateAbsent     State = "absent"
	StateDownloaded State = "downloaded"
	StateExtracted  State = "extracted"
	StateNormalized State = "normalized"
	StateCleaned    State = "cleaned"
)

// Step names a single phase of the procedure, used for progress reporting
// and run-history records.
type Step string

const (
	StepEnsureDir Step = "ensure-dir"
	StepDownload  Step = "download"
	StepExtract   Step = "extract"
	StepNormalize Step = "normalize"
	StepCleanup   Step = "cleanup"
)

// Steps lists the procedure's phases in execution order.
var Steps = []Step{StepEnsureDir, StepDownload, StepExtract, StepNormalize, StepCleanup}

// StepFunc observes step boundaries. detail is a short human-readable note
// ("cached", "3 files", ...). Informational only.
type StepFunc func(step Step, detail string)

// Config configures an Acquirer.
type Config struct {
	// URL of the remote archive.
	URL string
	// StagingDir receives the archive and, after extraction, the dataset
	// files.
	StagingDir string
	// ArchiveName is the archive's local filename inside StagingDir.
	ArchiveName string
	// InnerDir is the wrapper directory name the archive is expected to
	// extract into; empty disables flattening.
	InnerDir string
	// Timeout bounds the whole download request. Defaults to 15 minutes.
	Timeout time.Duration
	// Retries is the number of additional download attempts after a
	// retryable failure.
	Retries uint64
	// Client overrides the HTTP client, mainly for tests.
	Client *http.Client
	// Logger receives step-level diagnostics. Defaults to a discard logger.
	Logger *slog.Logger
	// OnStep, when set, is invoked after each completed step.
	OnStep StepFunc
}

// Result describes a finished acquisition.
type Result struct {
	// State the procedure reached. Always StateCleaned on success.
	State State
	// ArchivePath is where the archive was (or would have been) stored.
	ArchivePath string
	// Downloaded is false when a cache-valid local archive was reused.
	Downloaded bool
	// FilesExtracted counts files written during extraction.
	FilesExtracted int
	// Flattened reports whether a wrapper directory was removed.
	Flattened bool
	// CleanupWarning carries a non-fatal archive deletion failure.
	CleanupWarning error
}

// Acquirer runs the acquisition procedure. At most one Acquirer may hold a
// staging directory at a time; Run enforces this with a lock file placed
// next to (not inside) the staging directory.
type Acquirer struct {
	url        string
	stagingDir string
	archive    string
	innerDir   string
	retries    uint64
	client     *http.Client
	logger     *slog.Logger
	onStep     StepFunc
}

// New creates an Acquirer from cfg.
func New(cfg Config) *Acquirer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}
	client := cfg.Client
	if client == nil {
		client = newHTTPClient(timeout)
	}

	return &Acquirer{
		url:        cfg.URL,
		stagingDir: filepath.Clean(cfg.StagingDir),
		archive:    cfg.ArchiveName,
		innerDir:   cfg.InnerDir,
		retries:    cfg.Retries,
		client:     client,
		logger:     logger,
		onStep:     cfg.OnStep,
	}
}

// ArchivePath returns the archive's local path.
func (a *Acquirer) ArchivePath() string {
	return filepath.Join(a.stagingDir, a.archive)
}

// Run executes the full procedure. Every error except a cleanup failure
// aborts immediately; a cleanup failure is reported on the Result instead,
// since the dataset is already usable at that point.
func (a *Acquirer) Run(ctx context.Context) (*Result, error) {
	res := &Result{State: StateAbsent, ArchivePath: a.ArchivePath()}

	if err := a.ensureStagingDir(); err != nil {
		return res, err
	}
	a.report(StepEnsureDir, a.stagingDir)

	lock := flock.New(a.stagingDir + ".lock")
	locked, err := lock.TryLock()
	if err == nil && !locked {
		err = os.ErrExist
	}
	if err != nil {
		return res, &LockError{Path: lock.Path()}
	}
	defer func() { _ = lock.Unlock() }()

	downloaded, err := a.downloadStep(ctx)
	if err != nil {
		return res, err
	}
	res.Downloaded = downloaded
	res.State = StateDownloaded
	if downloaded {
		a.report(StepDownload, "fetched "+a.url)
	} else {
		a.report(StepDownload, "cached")
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}

	n, err := extractZip(res.ArchivePath, a.stagingDir)
	if err != nil {
		return res, &ExtractionError{Archive: res.ArchivePath, Err: err}
	}
	res.FilesExtracted = n
	res.State = StateExtracted
	a.report(StepExtract, pluralFiles(n))

	if err := ctx.Err(); err != nil {
		return res, err
	}

	flattened, err := flatten(a.stagingDir, a.innerDir)
	if err != nil {
		return res, err
	}
	res.Flattened = flattened
	res.State = StateNormalized
	if flattened {
		a.report(StepNormalize, "flattened "+a.innerDir)
	} else {
		a.report(StepNormalize, "already flat")
	}

	if err := a.cleanupStep(res); err != nil {
		// Non-fatal: the dataset is in place, the compressed copy just
		// could not be removed.
		res.CleanupWarning = err
		a.logger.Warn("archive cleanup failed", slog.Any("error", err))
	}
	res.State = StateCleaned
	a.report(StepCleanup, "")

	return res, nil
}

// ensureStagingDir creates the staging directory and any missing ancestors.
// Idempotent.
func (a *Acquirer) ensureStagingDir() error {
	if err := os.MkdirAll(a.stagingDir, 0o755); err != nil {
		return &DirectoryCreationError{Path: a.stagingDir, Err: err}
	}
	return nil
}

// downloadStep fetches the archive unless a cache-valid copy already exists
// at the expected path. Returns whether a network fetch happened.
func (a *Acquirer) downloadStep(ctx context.Context) (bool, error) {
	dest := a.ArchivePath()
	removePartials(a.stagingDir)

	if _, err := os.Stat(dest); err == nil {
		ok, err := verifySidecar(dest)
		if err != nil {
			return false, &NetworkError{URL: a.url, Err: err}
		}
		if ok {
			a.logger.Debug("archive already present, skipping download", slog.String("path", dest))
			return false, nil
		}
		a.logger.Warn("cached archive failed checksum, re-downloading", slog.String("path", dest))
		if err := os.Remove(dest); err != nil {
			return false, &NetworkError{URL: a.url, Err: err}
		}
	}

	a.logger.Info("downloading archive", slog.String("url", a.url), slog.String("dest", dest))
	if err := a.download(ctx, dest); err != nil {
		return false, err
	}
	if err := writeSidecar(dest); err != nil {
		return true, &NetworkError{URL: a.url, Err: err}
	}
	return true, nil
}

// cleanupStep deletes the archive and its checksum sidecar.
func (a *Acquirer) cleanupStep(res *Result) error {
	if err := os.Remove(res.ArchivePath); err != nil && !os.IsNotExist(err) {
		return &CleanupError{Path: res.ArchivePath, Err: err}
	}
	if err := os.Remove(res.ArchivePath + sidecarSuffix); err != nil && !os.IsNotExist(err) {
		return &CleanupError{Path: res.ArchivePath + sidecarSuffix, Err: err}
	}
	return nil
}

func (a *Acquirer) report(step Step, detail string) {
	a.logger.Debug("step complete", slog.String("step", string(step)), slog.String("detail", detail))
	if a.onStep != nil {
		a.onStep(step, detail)
	}
}

func pluralFiles(n int) string {
	if n == 1 {
		return "1 file"
	}
	return strconv.Itoa(n) + " files"
}
