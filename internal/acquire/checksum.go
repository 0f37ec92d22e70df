package acquire

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// sidecarSuffix is appended to the archive path to form the checksum
// sidecar written after a successful download.
const sidecarSuffix = ".sha256"

// hashFile returns the hex-encoded SHA-256 of the file at path.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// writeSidecar records the archive's checksum next to it.
func writeSidecar(archive string) error {
	sum, err := hashFile(archive)
	if err != nil {
		return err
	}
	return os.WriteFile(archive+sidecarSuffix, []byte(sum+"\n"), 0o644)
}

// verifySidecar checks a cached archive against its sidecar, if one exists.
// Returns true when the cached copy may be reused. An archive without a
// sidecar is treated as cache-valid: presence alone was the original
// contract, the sidecar only hardens it.
func verifySidecar(archive string) (bool, error) {
	raw, err := os.ReadFile(archive + sidecarSuffix)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("read checksum sidecar: %w", err)
	}

	want := strings.TrimSpace(string(raw))
	got, err := hashFile(archive)
	if err != nil {
		return false, err
	}
	return got == want, nil
}
