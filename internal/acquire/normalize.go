package acquire

import (
	"os"
	"path/filepath"
)

// flatten moves every entry of <dir>/<inner> up into dir and removes the
// then-empty wrapper. It is a no-op when the wrapper is absent or empty;
// extraction layouts vary by provider and a flat archive is assumed in that
// case.
//
// Collision policy: an existing destination entry is removed before the
// move, so the freshly extracted file always wins.
//
// Returns true when a wrapper was flattened.
func flatten(dir, inner string) (bool, error) {
	if inner == "" {
		return false, nil
	}
	wrapper := filepath.Join(dir, inner)

	entries, err := os.ReadDir(wrapper)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, &NormalizationError{Path: wrapper, Err: err}
	}
	if len(entries) == 0 {
		return false, nil
	}

	for _, entry := range entries {
		src := filepath.Join(wrapper, entry.Name())
		dest := filepath.Join(dir, entry.Name())

		if _, err := os.Lstat(dest); err == nil {
			if err := os.RemoveAll(dest); err != nil {
				return false, &NormalizationError{Path: dest, Err: err}
			}
		}
		if err := os.Rename(src, dest); err != nil {
			return false, &NormalizationError{Path: src, Err: err}
		}
	}

	if err := os.Remove(wrapper); err != nil {
		return false, &NormalizationError{Path: wrapper, Err: err}
	}
	return true, nil
}
