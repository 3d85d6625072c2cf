package resolver

import (
	"fmt"

	"typstkit/pkg/fileid"
)

// NotFoundError reports that no resolver produced content for a virtual path.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s", e.Path)
}

// NotFound returns the canonical not-found error for an id.
func NotFound(id fileid.FileID) error {
	return &NotFoundError{Path: id.VPath()}
}

// InvalidEncodingError reports content that exists but is not valid UTF-8.
type InvalidEncodingError struct {
	Path string
}

func (e *InvalidEncodingError) Error() string {
	return fmt.Sprintf("file is not valid utf-8: %s", e.Path)
}

// NetworkError reports that a registry fetch exhausted its retry budget. It
// carries the diagnostic from the last attempt.
type NetworkError struct {
	Message string
}

func (e *NetworkError) Error() string {
	if e.Message == "" {
		return "network failed"
	}
	return fmt.Sprintf("network failed: %s", e.Message)
}

// MalformedArchiveError reports a package archive that could not be
// decompressed or unpacked. Retrying a corrupt download is pointless, so this
// is surfaced immediately.
type MalformedArchiveError struct {
	Err error
}

func (e *MalformedArchiveError) Error() string {
	return fmt.Sprintf("malformed package archive: %v", e.Err)
}

func (e *MalformedArchiveError) Unwrap() error { return e.Err }

// IOError wraps a local disk failure with the offending path.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("i/o error on %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
