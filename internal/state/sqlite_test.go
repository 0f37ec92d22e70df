package state

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pantrylab/pantry/internal/testutil"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s := NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, s.Open(":memory:"))
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.InitSchema())
	return s
}

func TestCreateAndCompleteRun(t *testing.T) {
	s := newTestStore(t)

	run, err := s.CreateRun("data")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)

	require.NoError(t, s.CompleteRun(run.ID, RunStatusCompleted, ""))

	runs, err := s.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, RunStatusCompleted, runs[0].Status)
	assert.NotNil(t, runs[0].CompletedAt)
	assert.Empty(t, runs[0].Error)
}

func TestCompleteRun_RecordsError(t *testing.T) {
	s := newTestStore(t)

	run, err := s.CreateRun("data")
	require.NoError(t, err)
	require.NoError(t, s.CompleteRun(run.ID, RunStatusFailed, "download failed"))

	runs, err := s.ListRuns(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, RunStatusFailed, runs[0].Status)
	assert.Equal(t, "download failed", runs[0].Error)
}

func TestCompleteRun_UnknownID(t *testing.T) {
	s := newTestStore(t)
	err := s.CompleteRun("nope", RunStatusCompleted, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestSteps(t *testing.T) {
	s := newTestStore(t)

	run, err := s.CreateRun("data")
	require.NoError(t, err)

	require.NoError(t, s.AddStep(run.ID, "download", "cached"))
	require.NoError(t, s.AddStep(run.ID, "extract", "2 files"))

	steps, err := s.StepsForRun(run.ID)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, "download", steps[0].Step)
	assert.Equal(t, "cached", steps[0].Detail)
	assert.Equal(t, "extract", steps[1].Step)
}

func TestOpen_FileBacked(t *testing.T) {
	s := NewSQLiteStore(testutil.NewTestLogger(t))
	path := filepath.Join(t.TempDir(), "state.db")
	require.NoError(t, s.Open(path))
	defer func() { _ = s.Close() }()
	require.NoError(t, s.InitSchema())

	_, err := s.CreateRun("setup")
	require.NoError(t, err)

	assert.FileExists(t, path)
}
