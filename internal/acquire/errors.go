package acquire

import "fmt"

// DirectoryCreationError reports a staging directory that could not be
// created.
type DirectoryCreationError struct {
	Path string
	Err  error
}

func (e *DirectoryCreationError) Error() string {
	return fmt.Sprintf("create staging directory %s: %v", e.Path, e.Err)
}

func (e *DirectoryCreationError) Unwrap() error { return e.Err }

// NetworkError reports a failed archive download: transport failure,
// timeout, or a non-2xx terminal status after redirects.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ExtractionError reports an archive that is missing, unreadable, or corrupt
// at extraction time.
type ExtractionError struct {
	Archive string
	Err     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Archive, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// NormalizationError reports a failure while flattening the extracted tree
// into the staging directory.
type NormalizationError struct {
	Path string
	Err  error
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize %s: %v", e.Path, e.Err)
}

func (e *NormalizationError) Unwrap() error { return e.Err }

// CleanupError reports a failure deleting the archive after a successful
// extraction. It does not affect data usability; callers downgrade it to a
// warning.
type CleanupError struct {
	Path string
	Err  error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("remove archive %s: %v", e.Path, e.Err)
}

func (e *CleanupError) Unwrap() error { return e.Err }

// LockError reports that the staging directory is held by another
// acquisition.
type LockError struct {
	Path string
}

func (e *LockError) Error() string {
	return fmt.Sprintf("staging directory is locked by another acquisition (lock file %s)", e.Path)
}
