package metadata

import (
	"time"
)

type LookupEvent struct {
	fingerprint string
	hit         bool
	ageHours    float64
}

/*
cleanupStats
  - Represents a terminal, derived summary of a completed cleanup pass
  - Contains only aggregate counts and reclaimed totals
  - Is computed by the cleanup manager after the pass terminates
  - Is recorded exactly once per pass
  - Must not influence candidate selection, deletion, or retries
  - Must be constructed without reading metadata
*/
type cleanupStats struct {
	removedEntries int
	failedEntries  int
	bytesReclaimed int64
	filesReclaimed int
	durationMs     int64
}

type ErrorRecord struct {
	packageName string
	action      string
	cause       ErrorCause
	errorString string
	observedAt  time.Time
	attrs       []Attribute
}

type Attribute struct {
	Key   AttributeKey
	Value string
}

func NewAttr(key AttributeKey, val string) Attribute {
	return Attribute{
		Key:   key,
		Value: val,
	}
}

type AttributeKey string

const (
	AttrTime        AttributeKey = "time"
	AttrFingerprint AttributeKey = "fingerprint"
	AttrPath        AttributeKey = "path"
	AttrSyncID      AttributeKey = "sync_id"
	AttrHost        AttributeKey = "host"
	AttrField       AttributeKey = "field"
	AttrLockState   AttributeKey = "lock_state"
	AttrAgeHours    AttributeKey = "age_hours"
)

/*
	ErrorCause is a closed, canonical classification used exclusively for
	observability (logging, metrics, reporting).

	Rules:
	 - ErrorCause is for observability only.
	 - It must never be used to derive retry, continuation, or abort decisions.
	 - ErrorCause MUST NOT influence control flow.
	 - ErrorCause values MUST have stable, package-agnostic semantics.
	 - Cache packages MAY map their local errors to ErrorCause,
	   but MUST NOT invent new meanings.
	Non-goals:
	 - ErrorCause does not encode severity.
	 - ErrorCause does not imply retryability.

If a failure does not clearly match a defined cause, CauseUnknown MUST be used.
*/
type ErrorCause int

/*
Canonical ErrorCause Table

# CauseUnknown

Meaning:
  - The failure does not map cleanly to any known category.
  - Used as a safe fallback.

# CauseLockContention

Meaning:
  - A lock acquisition found a valid lock held by another sync.
  - This is the expected race signal, not corruption.

# CauseLockCorrupt

Meaning:
  - A lock record was unreadable or failed to parse.
  - Always self-healed by deletion; recorded for diagnosis only.

# CauseEntryIO

Meaning:
  - A per-entry filesystem operation failed (stat walk, delete, digest).

# CauseRootUnavailable

Meaning:
  - The cache root itself could not be enumerated
    (permissions, disk fault).

# CauseStorageFailure

Meaning:
  - Failure while writing cache artifacts (entry dirs, lock records).
*/
const (
	CauseUnknown ErrorCause = iota
	CauseLockContention
	CauseLockCorrupt
	CauseEntryIO
	CauseRootUnavailable
	CauseStorageFailure
)

func (c ErrorCause) String() string {
	switch c {
	case CauseLockContention:
		return "lock_contention"
	case CauseLockCorrupt:
		return "lock_corrupt"
	case CauseEntryIO:
		return "entry_io"
	case CauseRootUnavailable:
		return "root_unavailable"
	case CauseStorageFailure:
		return "storage_failure"
	default:
		return "unknown"
	}
}

type ArtifactKind string

const (
	ArtifactEntry      ArtifactKind = "entry"
	ArtifactLockRecord ArtifactKind = "lock_record"
	ArtifactRemoval    ArtifactKind = "removal"
)
