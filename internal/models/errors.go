package models

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType int

const (
	// ErrMalformedPath is a path or URL that does not match any artifact
	// family's naming convention.
	ErrMalformedPath ErrorType = iota
	// ErrInvalidRetention is a non-positive keep count, caught before any
	// deletion takes place.
	ErrInvalidRetention
	// ErrFileRemoval is an unlink failure other than "already absent".
	ErrFileRemoval
	// ErrPersistence means the on-disk index could not be written back;
	// always fatal for the run.
	ErrPersistence
	// ErrSigning covers key loading and detached-signature failures.
	ErrSigning
	// ErrDownload is a failed source retrieval after all retries.
	ErrDownload
	// ErrInvalidConfig covers malformed config files and option overrides.
	ErrInvalidConfig
)

// String returns the string representation of ErrorType
func (e ErrorType) String() string {
	switch e {
	case ErrMalformedPath:
		return "MalformedPath"
	case ErrInvalidRetention:
		return "InvalidRetention"
	case ErrFileRemoval:
		return "FileRemoval"
	case ErrPersistence:
		return "Persistence"
	case ErrSigning:
		return "Signing"
	case ErrDownload:
		return "Download"
	case ErrInvalidConfig:
		return "InvalidConfig"
	default:
		return "Unknown"
	}
}

// RepoError represents an error during repository maintenance
type RepoError struct {
	Type     ErrorType
	Artifact string
	Err      error
}

// Error implements the error interface
func (e *RepoError) Error() string {
	if e.Artifact != "" {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Artifact, e.Err)
	}
	return fmt.Sprintf("[%s] %v", e.Type, e.Err)
}

// Unwrap returns the wrapped error
func (e *RepoError) Unwrap() error {
	return e.Err
}

// IsType reports whether err is, or wraps, a RepoError of the given type.
func IsType(err error, t ErrorType) bool {
	var re *RepoError
	return errors.As(err, &re) && re.Type == t
}
