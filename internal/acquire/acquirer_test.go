package acquire

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pantrylab/pantry/internal/testutil"
)

const innerName = "food-com-recipes-and-user-interactions"

// zipBytes builds an in-memory zip archive from name -> content.
func zipBytes(t *testing.T, entries map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(entries[name]))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// archiveServer serves payload and counts hits.
func archiveServer(t *testing.T, payload []byte, hits *atomic.Int64) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write(payload)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestAcquirer(t *testing.T, url, staging string) *Acquirer {
	t.Helper()

	return New(Config{
		URL:         url,
		StagingDir:  staging,
		ArchiveName: innerName + ".zip",
		InnerDir:    innerName,
		Logger:      testutil.NewTestLogger(t),
	})
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestRun_HappyPath(t *testing.T) {
	payload := zipBytes(t, map[string]string{
		innerName + "/a.csv": "id,name\n1,pancakes\n",
		innerName + "/b.csv": "id,rating\n1,5\n",
	})
	var hits atomic.Int64
	srv := archiveServer(t, payload, &hits)

	staging := filepath.Join(t.TempDir(), "data", "raw")
	a := newTestAcquirer(t, srv.URL, staging)

	res, err := a.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateCleaned, res.State)
	assert.True(t, res.Downloaded)
	assert.True(t, res.Flattened)
	assert.Equal(t, 2, res.FilesExtracted)
	assert.NoError(t, res.CleanupWarning)
	assert.Equal(t, int64(1), hits.Load())

	// Final state: exactly the dataset files, flat, no archive, no sidecar.
	assert.Equal(t, []string{"a.csv", "b.csv"}, listDir(t, staging))
}

func TestRun_CachedArchiveSkipsDownload(t *testing.T) {
	payload := zipBytes(t, map[string]string{
		innerName + "/a.csv": "cached\n",
	})
	var hits atomic.Int64
	srv := archiveServer(t, payload, &hits)

	staging := filepath.Join(t.TempDir(), "raw")
	require.NoError(t, os.MkdirAll(staging, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(staging, innerName+".zip"), payload, 0o644))

	a := newTestAcquirer(t, srv.URL, staging)
	res, err := a.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, res.Downloaded, "pre-existing archive must be treated as cache-valid")
	assert.Equal(t, int64(0), hits.Load(), "no network request may be issued")
	assert.Equal(t, []string{"a.csv"}, listDir(t, staging))
}

func TestRun_AlreadyFlatArchive(t *testing.T) {
	payload := zipBytes(t, map[string]string{
		"a.csv": "flat\n",
		"b.csv": "flat\n",
	})
	var hits atomic.Int64
	srv := archiveServer(t, payload, &hits)

	staging := filepath.Join(t.TempDir(), "raw")
	a := newTestAcquirer(t, srv.URL, staging)

	res, err := a.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, res.Flattened, "normalization must be a no-op without a wrapper directory")
	assert.Equal(t, []string{"a.csv", "b.csv"}, listDir(t, staging))
}

func TestRun_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	staging := filepath.Join(t.TempDir(), "raw")
	a := newTestAcquirer(t, srv.URL, staging)

	_, err := a.Run(context.Background())
	require.Error(t, err)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, srv.URL, netErr.URL)

	// Staging dir exists but holds nothing: no archive, no extracted files.
	assert.Empty(t, listDir(t, staging))
}

func TestRun_RetriesServerErrors(t *testing.T) {
	payload := zipBytes(t, map[string]string{"a.csv": "x\n"})

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) <= 2 {
			http.Error(w, "flaky", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(payload)
	}))
	t.Cleanup(srv.Close)

	a := New(Config{
		URL:         srv.URL,
		StagingDir:  filepath.Join(t.TempDir(), "raw"),
		ArchiveName: "a.zip",
		Retries:     2,
		Logger:      testutil.NewTestLogger(t),
	})

	res, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Downloaded)
	assert.Equal(t, int64(3), hits.Load())
}

func TestRun_ChecksumMismatchForcesRedownload(t *testing.T) {
	payload := zipBytes(t, map[string]string{"a.csv": "fresh\n"})
	var hits atomic.Int64
	srv := archiveServer(t, payload, &hits)

	staging := filepath.Join(t.TempDir(), "raw")
	require.NoError(t, os.MkdirAll(staging, 0o755))
	archive := filepath.Join(staging, "a.zip")
	require.NoError(t, os.WriteFile(archive, []byte("truncated junk"), 0o644))
	require.NoError(t, os.WriteFile(archive+sidecarSuffix, []byte("deadbeef\n"), 0o644))

	a := New(Config{
		URL:         srv.URL,
		StagingDir:  staging,
		ArchiveName: "a.zip",
		Logger:      testutil.NewTestLogger(t),
	})

	res, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Downloaded, "sidecar mismatch must force a re-download")
	assert.Equal(t, int64(1), hits.Load())
	assert.Equal(t, []string{"a.csv"}, listDir(t, staging))
}

func TestRun_SecondRunLeavesSameState(t *testing.T) {
	payload := zipBytes(t, map[string]string{
		innerName + "/a.csv": "id\n1\n",
	})
	var hits atomic.Int64
	srv := archiveServer(t, payload, &hits)

	staging := filepath.Join(t.TempDir(), "raw")
	a := newTestAcquirer(t, srv.URL, staging)

	_, err := a.Run(context.Background())
	require.NoError(t, err)
	first := listDir(t, staging)

	_, err = a.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, listDir(t, staging))
}

func TestRun_LockedStagingFailsFast(t *testing.T) {
	staging := filepath.Join(t.TempDir(), "raw")
	require.NoError(t, os.MkdirAll(staging, 0o755))

	other := flock.New(staging + ".lock")
	locked, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer func() { _ = other.Unlock() }()

	a := newTestAcquirer(t, "http://127.0.0.1:0", staging)
	_, err = a.Run(context.Background())

	var lockErr *LockError
	require.ErrorAs(t, err, &lockErr)
}

func TestRun_CancelledContext(t *testing.T) {
	payload := zipBytes(t, map[string]string{"a.csv": "x\n"})
	var hits atomic.Int64
	srv := archiveServer(t, payload, &hits)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := newTestAcquirer(t, srv.URL, filepath.Join(t.TempDir(), "raw"))
	_, err := a.Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}
