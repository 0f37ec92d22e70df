package acquire

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sethvargo/go-retry"
)

// partialSuffix marks an in-flight download. A crashed run leaves only a
// .partial file behind, never a truncated archive at the final path.
const partialSuffix = ".partial"

// download fetches the archive to dest, following redirects. The response
// body is written to a temporary file next to dest and renamed into place
// only after the full body has been read, so the archive path is either
// absent or complete.
//
// Transport errors and 5xx responses are retried with exponential backoff up
// to a.retries times; 4xx responses fail immediately.
func (a *Acquirer) download(ctx context.Context, dest string) error {
	backoff := retry.WithMaxRetries(a.retries, retry.NewExponential(500*time.Millisecond))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			a.logger.Debug("retrying download", slog.Int("attempt", attempt), slog.String("url", a.url))
		}
		return a.fetchOnce(ctx, dest)
	})
	if err != nil {
		return &NetworkError{URL: a.url, Err: err}
	}
	return nil
}

func (a *Acquirer) fetchOnce(ctx context.Context, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url, nil)
	if err != nil {
		return err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return retry.RetryableError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("bad response status %s", resp.Status)
		if resp.StatusCode >= 500 {
			return retry.RetryableError(err)
		}
		return err
	}

	return writeAtomically(dest, resp.Body)
}

// writeAtomically streams r to path via a .partial sibling and a rename.
func writeAtomically(path string, r io.Reader) error {
	tmp := path + partialSuffix
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// newHTTPClient builds the download client. Redirects are followed by
// default; the timeout bounds the whole request including body transfer.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 2,
		},
	}
}

// removePartials drops any .partial leftovers from an interrupted run so a
// later download starts clean.
func removePartials(dir string) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+partialSuffix))
	if err != nil {
		return
	}
	for _, m := range matches {
		_ = os.Remove(m)
	}
}
