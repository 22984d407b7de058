package metadata

import (
	"time"

	"go.uber.org/zap"
)

/*
Metadata Collected
- Lookup outcomes (hit / miss, entry age)
- Lock contention and self-healed stale locks
- Cleanup removals and reclaimed totals
- Per-entry failures

Logging Goals
- Debuggable cache behavior across processes
- Post-run auditability of cleanup passes
- Failure diagnostics

Structured logging is preferred.

Allowed:
- Primitive values
- Timestamps
- Fingerprints
- Paths (as values, not objects with behavior)
- Sync identifiers
- Durations

Determinism guarantees:
 - Metadata does not affect control flow
 - Errors do not reorder cleanup candidates
 - Output is stable given identical inputs

Metadata is write-only.
No component may read metadata to influence cache decisions.
*/

/*
Recorder captures structured cache events onto a zap logger.
It must not:
- perform I/O decisions
- affect control flow
Ordering guarantees:
- Events are recorded synchronously in the order the calling
  operation emits them.
- No ordering across processes sharing the cache root is guaranteed.
- Ordering is provided for debuggability, not causality.
*/
type Recorder struct {
	logger *zap.Logger
}

func NewRecorder(logger *zap.Logger) Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Recorder{
		logger: logger,
	}
}

func (r *Recorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	errorString string,
	attrs []Attribute,
) {
	fields := []zap.Field{
		zap.Time("observed_at", observedAt),
		zap.String("package", packageName),
		zap.String("action", action),
		zap.String("cause", cause.String()),
		zap.String("error", errorString),
	}
	fields = append(fields, attrFields(attrs)...)
	r.logger.Warn("cache error", fields...)
}

func (r *Recorder) RecordLookup(fingerprint string, hit bool, ageHours float64) {
	r.logger.Info("lookup",
		zap.String("fingerprint", fingerprint),
		zap.Bool("hit", hit),
		zap.Float64("age_hours", ageHours),
	)
}

func (r *Recorder) RecordLockContention(fingerprint string, syncID string, holderSyncID string) {
	r.logger.Info("lock contention",
		zap.String("fingerprint", fingerprint),
		zap.String("sync_id", syncID),
		zap.String("holder_sync_id", holderSyncID),
	)
}

func (r *Recorder) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {
	fields := []zap.Field{
		zap.String("kind", string(kind)),
		zap.String("path", path),
	}
	fields = append(fields, attrFields(attrs)...)
	r.logger.Info("artifact", fields...)
}

/*
RecordFinalCleanupStats records a terminal, derived summary of a completed
cleanup pass.

Contract:
  - MUST be called exactly once per cleanup pass.
  - MUST be called only after the pass has visited every candidate.
  - The provided totals MUST be derived from the pass's report,
    not accumulated incrementally via the recorder.
  - Recorded stats MUST NOT influence control flow.
*/
func (r *Recorder) RecordFinalCleanupStats(
	removedEntries int,
	failedEntries int,
	bytesReclaimed int64,
	filesReclaimed int,
	duration time.Duration,
) {
	stats := cleanupStats{
		removedEntries: removedEntries,
		failedEntries:  failedEntries,
		bytesReclaimed: bytesReclaimed,
		filesReclaimed: filesReclaimed,
		durationMs:     duration.Milliseconds(),
	}

	r.logger.Info("cleanup pass",
		zap.Int("removed_entries", stats.removedEntries),
		zap.Int("failed_entries", stats.failedEntries),
		zap.Int64("bytes_reclaimed", stats.bytesReclaimed),
		zap.Int("files_reclaimed", stats.filesReclaimed),
		zap.Int64("duration_ms", stats.durationMs),
	)
}

func attrFields(attrs []Attribute) []zap.Field {
	fields := make([]zap.Field, 0, len(attrs))
	for _, a := range attrs {
		fields = append(fields, zap.String(string(a.Key), a.Value))
	}
	return fields
}

type MetadataSink interface {
	RecordError(
		observedAt time.Time,
		packageName string,
		action string,
		cause ErrorCause,
		details string,
		attrs []Attribute,
	)

	RecordLookup(fingerprint string, hit bool, ageHours float64)
	RecordLockContention(fingerprint string, syncID string, holderSyncID string)
	RecordArtifact(kind ArtifactKind, path string, attrs []Attribute)
}

type CleanupFinalizer interface {
	RecordFinalCleanupStats(
		removedEntries int,
		failedEntries int,
		bytesReclaimed int64,
		filesReclaimed int,
		duration time.Duration,
	)
}

// NoopSink, struct that implements metadata.MetadataSink but does nothing
// Callers (or tests) can decide whether to inject Recorder or NoopSink
// Purpose is to make metadata orthogonal

type NoopSink struct{}

func (n *NoopSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	errorString string,
	attrs []Attribute,
) {
}

func (n *NoopSink) RecordLookup(fingerprint string, hit bool, ageHours float64) {}

func (n *NoopSink) RecordLockContention(fingerprint string, syncID string, holderSyncID string) {}

func (n *NoopSink) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {}

func (n *NoopSink) RecordFinalCleanupStats(
	removedEntries int,
	failedEntries int,
	bytesReclaimed int64,
	filesReclaimed int,
	duration time.Duration,
) {
}
