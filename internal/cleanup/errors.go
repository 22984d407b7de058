package cleanup

import (
	"fmt"

	"github.com/rohmanhakim/sync-cache/pkg/failure"
)

type CleanupErrorCause string

const (
	ErrCauseRootEnumeration = "root enumeration failed"
)

// CleanupError is the structural failure of a pass: the cache root itself
// could not be enumerated. Per-entry failures never become a CleanupError;
// they are captured into the report.
type CleanupError struct {
	Message string
	Cause   CleanupErrorCause
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("cleanup error: %s, %s", e.Cause, e.Message)
}

func (e *CleanupError) Severity() failure.Severity {
	return failure.SeverityFatal
}

func (e *CleanupError) IsRetryable() bool {
	return false
}
