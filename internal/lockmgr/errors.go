package lockmgr

import (
	"fmt"

	"github.com/rohmanhakim/sync-cache/internal/metadata"
	"github.com/rohmanhakim/sync-cache/pkg/failure"
)

type LockErrorCause string

const (
	ErrCauseLockHeld       = "lock held"
	ErrCauseWriteFailure   = "lock write failed"
	ErrCauseReleaseFailure = "lock release failed"
)

type LockError struct {
	Message   string
	Retryable bool
	Cause     LockErrorCause
	HolderID  string
}

func (e *LockError) Error() string {
	return fmt.Sprintf("lock error: %s", e.Cause)
}

func (e *LockError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *LockError) IsRetryable() bool {
	return e.Retryable
}

// IsContention reports whether the error is the expected race signal:
// another sync holds a valid lock on this slot.
func (e *LockError) IsContention() bool {
	return e.Cause == ErrCauseLockHeld
}

// mapLockErrorToMetadataCause maps lock-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapLockErrorToMetadataCause(err *LockError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseLockHeld:
		return metadata.CauseLockContention
	case ErrCauseWriteFailure:
		return metadata.CauseStorageFailure
	case ErrCauseReleaseFailure:
		return metadata.CauseEntryIO
	default:
		return metadata.CauseUnknown
	}
}
