package hasher

import (
	"errors"
	"fmt"
	"io/fs"
)

// Error classes for per-file hashing failures. The batch runner matches on
// these with errors.Is; only ErrInvalidConfig ever reaches a caller of the
// pipeline.
var (
	ErrNotFound      = errors.New("file not found")
	ErrAccessDenied  = errors.New("permission denied")
	ErrIOFailure     = errors.New("i/o failure")
	ErrInvalidConfig = errors.New("invalid hashing configuration")
)

// classifyIOError maps an OS-level error onto the hashing error taxonomy,
// keeping the original error text for diagnostics.
func classifyIOError(op, path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s", ErrAccessDenied, path)
	default:
		return fmt.Errorf("%w: %s %s: %v", ErrIOFailure, op, path, err)
	}
}
