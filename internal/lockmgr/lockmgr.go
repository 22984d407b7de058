package lockmgr

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rohmanhakim/sync-cache/internal/metadata"
	"github.com/rohmanhakim/sync-cache/pkg/failure"
	"github.com/rohmanhakim/sync-cache/pkg/timeutil"
)

/*
Responsibilities
- Cooperative mutual exclusion over one fingerprint's slot
- Lock records are advisory file markers, not kernel primitives: the cache
  stays hand-inspectable and crash-recoverable without a live holder
- Age-based staleness substitutes for liveness detection

Output Characteristics
- At most one valid lock record per fingerprint
- Corrupt or abandoned records self-heal by deletion
- Contention is a typed, recoverable outcome, never corruption
*/

// LockSuffix is appended to the entry path to derive the lock side-file.
const LockSuffix = ".lock"

// DefaultMaxLockAge is the staleness threshold: a lock record older than
// this is abandoned and treated as absent.
const DefaultMaxLockAge = 30 * time.Minute

// PathMapper is the storage capability the lock manager is built on.
type PathMapper interface {
	PathForKey(fingerprint string) string
}

type Manager struct {
	paths        PathMapper
	maxLockAge   time.Duration
	metadataSink metadata.MetadataSink
}

func NewManager(
	paths PathMapper,
	maxLockAge time.Duration,
	metadataSink metadata.MetadataSink,
) Manager {
	if maxLockAge <= 0 {
		maxLockAge = DefaultMaxLockAge
	}
	if metadataSink == nil {
		metadataSink = &metadata.NoopSink{}
	}
	return Manager{
		paths:        paths,
		maxLockAge:   maxLockAge,
		metadataSink: metadataSink,
	}
}

// Acquire claims the slot for syncID. It fails with a contention error when
// a valid (non-stale) lock already exists; staleness checking happens as a
// side effect of the probe, so an abandoned lock never blocks acquisition.
func (m *Manager) Acquire(fingerprint string, syncID string) failure.ClassifiedError {
	state, holder := m.probe(fingerprint)
	if state == LockStateHeld {
		m.recordContention(fingerprint, syncID, holder.SyncID())
		return &LockError{
			Message:   "slot is being populated by sync " + holder.SyncID(),
			Retryable: true,
			Cause:     ErrCauseLockHeld,
			HolderID:  holder.SyncID(),
		}
	}

	record := lockRecordDTO{
		SyncID:    syncID,
		Timestamp: timeutil.EpochMillis(time.Now()),
		PID:       os.Getpid(),
		CacheKey:  fingerprint,
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return m.writeFailure(fingerprint, err)
	}

	lockPath := m.lockPath(fingerprint)
	// The cache root may not exist yet: a lock can precede the first write
	// to its slot.
	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return m.writeFailure(fingerprint, err)
	}
	if err := os.WriteFile(lockPath, payload, 0644); err != nil {
		return m.writeFailure(fingerprint, err)
	}

	m.metadataSink.RecordArtifact(
		metadata.ArtifactLockRecord,
		lockPath,
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrFingerprint, fingerprint),
			metadata.NewAttr(metadata.AttrSyncID, syncID),
		},
	)
	return nil
}

// Release removes the lock record. Releasing an absent lock is not an
// error: release must stay idempotent so crash-recovery paths can call it
// unconditionally.
func (m *Manager) Release(fingerprint string) failure.ClassifiedError {
	err := os.Remove(m.lockPath(fingerprint))
	if err == nil || os.IsNotExist(err) {
		return nil
	}
	lockErr := &LockError{
		Message:   err.Error(),
		Retryable: true,
		Cause:     ErrCauseReleaseFailure,
	}
	m.recordError("Manager.Release", fingerprint, lockErr)
	return lockErr
}

// Probe reports the slot's lock state. A record past the staleness
// threshold, or one that cannot be parsed, is treated as absent, deleted
// as a side effect, and reported as StaleCleared. Corrupt lock data is
// never propagated as an error.
func (m *Manager) Probe(fingerprint string) LockState {
	state, _ := m.probe(fingerprint)
	return state
}

// IsLocked is the boolean convenience over Probe: only a valid, current
// record counts as locked.
func (m *Manager) IsLocked(fingerprint string) bool {
	return m.Probe(fingerprint) == LockStateHeld
}

// Holder returns the current valid lock record, if any.
func (m *Manager) Holder(fingerprint string) (LockRecord, bool) {
	state, record := m.probe(fingerprint)
	if state != LockStateHeld {
		return LockRecord{}, false
	}
	return record, true
}

// ForceRelease unconditionally deletes the lock record regardless of
// validity and reports whether one existed.
func (m *Manager) ForceRelease(fingerprint string) bool {
	lockPath := m.lockPath(fingerprint)
	err := os.Remove(lockPath)
	if os.IsNotExist(err) {
		return false
	}
	if err != nil {
		m.recordError("Manager.ForceRelease", fingerprint, &LockError{
			Message:   err.Error(),
			Retryable: true,
			Cause:     ErrCauseReleaseFailure,
		})
		return true
	}
	m.metadataSink.RecordArtifact(
		metadata.ArtifactLockRecord,
		lockPath,
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrFingerprint, fingerprint),
			metadata.NewAttr(metadata.AttrField, "force_released"),
		},
	)
	return true
}

func (m *Manager) probe(fingerprint string) (LockState, LockRecord) {
	lockPath := m.lockPath(fingerprint)

	payload, err := os.ReadFile(lockPath)
	if err != nil {
		// Missing record means free; any other read failure is treated as
		// corrupt and self-healed below
		if os.IsNotExist(err) {
			return LockStateFree, LockRecord{}
		}
		m.clearRecord(fingerprint, lockPath, "unreadable lock record: "+err.Error())
		return LockStateStaleCleared, LockRecord{}
	}

	var dto lockRecordDTO
	if err := json.Unmarshal(payload, &dto); err != nil {
		m.clearRecord(fingerprint, lockPath, "corrupt lock record: "+err.Error())
		return LockStateStaleCleared, LockRecord{}
	}
	if dto.Timestamp <= 0 {
		m.clearRecord(fingerprint, lockPath, "corrupt lock record: missing timestamp")
		return LockStateStaleCleared, LockRecord{}
	}

	record := NewLockRecord(dto.SyncID, dto.Timestamp, dto.PID, dto.CacheKey)
	if record.Age(time.Now()) > m.maxLockAge {
		m.clearRecord(fingerprint, lockPath, "abandoned lock record from sync "+dto.SyncID)
		return LockStateStaleCleared, LockRecord{}
	}

	return LockStateHeld, record
}

// clearRecord self-heals a stale or corrupt lock record. Removal failures
// are recorded but swallowed: probing must never surface an error.
func (m *Manager) clearRecord(fingerprint string, lockPath string, reason string) {
	removeErr := os.Remove(lockPath)
	if removeErr != nil && !os.IsNotExist(removeErr) {
		m.metadataSink.RecordError(
			time.Now(),
			"lockmgr",
			"Manager.clearRecord",
			metadata.CauseLockCorrupt,
			removeErr.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrFingerprint, fingerprint),
				metadata.NewAttr(metadata.AttrPath, lockPath),
			},
		)
		return
	}
	m.metadataSink.RecordArtifact(
		metadata.ArtifactLockRecord,
		lockPath,
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrFingerprint, fingerprint),
			metadata.NewAttr(metadata.AttrField, reason),
			metadata.NewAttr(metadata.AttrLockState, LockStateStaleCleared.String()),
		},
	)
}

func (m *Manager) lockPath(fingerprint string) string {
	return m.paths.PathForKey(fingerprint) + LockSuffix
}

func (m *Manager) writeFailure(fingerprint string, err error) failure.ClassifiedError {
	lockErr := &LockError{
		Message:   err.Error(),
		Retryable: false,
		Cause:     ErrCauseWriteFailure,
	}
	m.recordError("Manager.Acquire", fingerprint, lockErr)
	return lockErr
}

func (m *Manager) recordError(action string, fingerprint string, lockErr *LockError) {
	m.metadataSink.RecordError(
		time.Now(),
		"lockmgr",
		action,
		mapLockErrorToMetadataCause(lockErr),
		lockErr.Message,
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrFingerprint, fingerprint),
		},
	)
}

func (m *Manager) recordContention(fingerprint string, syncID string, holderSyncID string) {
	m.metadataSink.RecordLockContention(fingerprint, syncID, holderSyncID)
}
