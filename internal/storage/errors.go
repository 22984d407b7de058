package storage

import (
	"fmt"

	"github.com/rohmanhakim/sync-cache/internal/metadata"
	"github.com/rohmanhakim/sync-cache/pkg/failure"
)

type StorageErrorCause string

const (
	ErrCauseRootUnavailable = "cache root unavailable"
	ErrCauseWalkFailure     = "entry walk failed"
	ErrCauseRemoveFailure   = "entry removal failed"
	ErrCausePathError       = "path error"
	ErrCauseDigestFailure   = "content digest failed"
)

type StorageError struct {
	Message   string
	Retryable bool
	Cause     StorageErrorCause
	Path      string
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s", e.Cause)
}

func (e *StorageError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *StorageError) IsRetryable() bool {
	return e.Retryable
}

// mapStorageErrorToMetadataCause maps storage-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapStorageErrorToMetadataCause(err *StorageError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseRootUnavailable:
		return metadata.CauseRootUnavailable
	case ErrCauseWalkFailure:
		return metadata.CauseEntryIO
	case ErrCauseRemoveFailure:
		return metadata.CauseEntryIO
	case ErrCauseDigestFailure:
		return metadata.CauseEntryIO
	case ErrCausePathError:
		return metadata.CauseStorageFailure
	default:
		return metadata.CauseUnknown
	}
}
