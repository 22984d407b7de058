package lockmgr

import (
	"time"

	"github.com/rohmanhakim/sync-cache/pkg/timeutil"
)

/*
LockRecord
  - Advisory marker for one fingerprint's slot
  - Exists whether or not the slot holds data yet
  - At most one valid record per fingerprint
  - A record older than the maximum lock age is abandoned and treated
    as absent by every reader
*/
type LockRecord struct {
	syncID      string
	timestampMs int64 // epoch millis
	pid         int
	cacheKey    string
}

func NewLockRecord(
	syncID string,
	timestampMs int64,
	pid int,
	cacheKey string,
) LockRecord {
	return LockRecord{
		syncID:      syncID,
		timestampMs: timestampMs,
		pid:         pid,
		cacheKey:    cacheKey,
	}
}

func (r *LockRecord) SyncID() string {
	return r.syncID
}

func (r *LockRecord) TimestampMs() int64 {
	return r.timestampMs
}

func (r *LockRecord) Timestamp() time.Time {
	return timeutil.FromEpochMillis(r.timestampMs)
}

func (r *LockRecord) PID() int {
	return r.pid
}

func (r *LockRecord) CacheKey() string {
	return r.cacheKey
}

// Age returns how long ago the record was written.
func (r *LockRecord) Age(now time.Time) time.Duration {
	return now.Sub(r.Timestamp())
}

// lockRecordDTO is the wire form of the lock side-file. The encoding is
// part of the on-disk contract: a self-describing structured text record
// that stays hand-inspectable without a live holder.
type lockRecordDTO struct {
	SyncID    string `json:"syncId"`
	Timestamp int64  `json:"timestamp"`
	PID       int    `json:"pid"`
	CacheKey  string `json:"cacheKey"`
}

/*
LockState is the tri-state result of probing a slot.

Free and StaleCleared both mean "you may proceed", but tests and callers
can distinguish "never locked" from "recovered from an abandoned or
corrupt record".
*/
type LockState int

const (
	LockStateFree LockState = iota
	LockStateHeld
	LockStateStaleCleared
)

func (s LockState) String() string {
	switch s {
	case LockStateHeld:
		return "held"
	case LockStateStaleCleared:
		return "stale_cleared"
	default:
		return "free"
	}
}
