package atomfeed

import (
	"errors"
	"fmt"
	"strings"
)

// Error types
var (
	// ErrUnknownFileType indicates a filename extension has no known media type
	ErrUnknownFileType = errors.New("unknown file type")

	// ErrAmbiguousArchiveContents indicates a zip holds zero or several checklist extensions
	ErrAmbiguousArchiveContents = errors.New("ambiguous archive contents")

	// ErrArchiveUnavailable indicates a remote archive could not be opened or listed
	ErrArchiveUnavailable = errors.New("archive unavailable")

	// ErrObjectNotFound indicates the store has no statistics for a key
	ErrObjectNotFound = errors.New("object not found")

	// ErrNotAFile indicates a key resolves to a directory marker
	ErrNotAFile = errors.New("object points to a directory, should point to a file")

	// ErrEmptyFilename indicates a blank filename was passed to an object lookup
	ErrEmptyFilename = errors.New("filename can not be empty")

	// ErrTemplateMismatch indicates template placeholders and model fields differ
	ErrTemplateMismatch = errors.New("difference between model and template parameters")

	// ErrValidation indicates the assembled feed data is structurally invalid
	ErrValidation = errors.New("feed validation failed")

	// ErrNoDestination indicates a destination operation without a configured destination bucket
	ErrNoDestination = errors.New("destination unknown")

	// ErrDestinationExists indicates the destination already holds a feed and force is off
	ErrDestinationExists = errors.New("destination already exists")

	// ErrInvalidConfig indicates an invalid run configuration
	ErrInvalidConfig = errors.New("invalid configuration")
)

// StorageError represents an error related to object store operations
type StorageError struct {
	Bucket string
	Key    string
	Op     string
	Err    error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s in bucket %s: %v", e.Op, e.Key, e.Bucket, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ValidationError lists every structural problem found in a feed, each
// prefixed with the path of the offending field.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v:\n  %s", ErrValidation, strings.Join(e.Problems, "\n  "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
