package syncer

import (
	"fmt"

	"github.com/rohmanhakim/sync-cache/pkg/failure"
)

type ServiceErrorCause string

const (
	ErrCauseInvalidRequest = "invalid sync request"
	ErrCauseEntryLocked    = "entry locked"
	ErrCauseSessionClosed  = "session already closed"
)

type ServiceError struct {
	Message   string
	Retryable bool
	Cause     ServiceErrorCause
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("sync service error: %s", e.Cause)
}

func (e *ServiceError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *ServiceError) IsRetryable() bool {
	return e.Retryable
}
