package cleanup

import (
	"time"

	"github.com/rohmanhakim/sync-cache/internal/metadata"
	"github.com/rohmanhakim/sync-cache/internal/storage"
	"github.com/rohmanhakim/sync-cache/pkg/failure"
	"github.com/rohmanhakim/sync-cache/pkg/timeutil"
)

/*
Responsibilities
- Age-based garbage collection over all cache slots
- Delegates enumeration, statistics, and deletion to storage
- Delegates lock checks to the lock manager; never touches lock files itself

Output Characteristics
- Locked entries are never reclaimed regardless of age
- One entry's failure never aborts the pass
- Only a structural root failure propagates
*/

// EntryStore is the storage capability the cleanup manager is built on.
type EntryStore interface {
	DefaultTTLHours() float64
	PathForKey(fingerprint string) string
	StatsFor(path string) (storage.EntryStats, failure.ClassifiedError)
	RemoveEntry(fingerprint string) failure.ClassifiedError
	ListEntries() ([]storage.EntryInfo, failure.ClassifiedError)
}

// LockChecker reports whether a slot currently holds a valid lock.
type LockChecker interface {
	IsLocked(fingerprint string) bool
}

type Manager struct {
	store        EntryStore
	locks        LockChecker
	metadataSink metadata.MetadataSink
	finalizer    metadata.CleanupFinalizer
}

func NewManager(
	store EntryStore,
	locks LockChecker,
	metadataSink metadata.MetadataSink,
	finalizer metadata.CleanupFinalizer,
) Manager {
	if metadataSink == nil {
		metadataSink = &metadata.NoopSink{}
	}
	if finalizer == nil {
		finalizer = &metadata.NoopSink{}
	}
	return Manager{
		store:        store,
		locks:        locks,
		metadataSink: metadataSink,
		finalizer:    finalizer,
	}
}

// CleanupExpired reclaims every unlocked entry older than maxAgeHours.
// A negative threshold selects the store's default TTL. The returned report
// reflects best-effort progress even under partial failure; only a failure
// to enumerate the root propagates as an error.
func (m *Manager) CleanupExpired(maxAgeHours float64) (CleanupReport, failure.ClassifiedError) {
	started := time.Now()
	if maxAgeHours < 0 {
		maxAgeHours = m.store.DefaultTTLHours()
	}

	entries, listErr := m.store.ListEntries()
	if listErr != nil {
		return CleanupReport{}, &CleanupError{
			Message: listErr.Error(),
			Cause:   ErrCauseRootEnumeration,
		}
	}

	report := CleanupReport{}
	now := time.Now()

	for _, entry := range entries {
		ageHours := timeutil.AgeHours(entry.ModTime(), now)
		if ageHours <= maxAgeHours {
			continue
		}

		// Checked fresh per candidate, never cached: lock state can change
		// between enumeration and deletion
		if m.locks.IsLocked(entry.Fingerprint()) {
			continue
		}

		// Capture statistics before the subtree disappears. A stat failure
		// does not spare the entry; the removal is recorded with zero
		// stats and the failure lands in the error list.
		var sizeBytes int64
		var fileCount int
		stats, statErr := m.store.StatsFor(m.store.PathForKey(entry.Fingerprint()))
		if statErr != nil {
			report.addError(entry.Fingerprint(), statErr.Error())
		} else {
			sizeBytes = stats.SizeBytes()
			fileCount = stats.FileCount()
		}

		if removeErr := m.store.RemoveEntry(entry.Fingerprint()); removeErr != nil {
			report.addError(entry.Fingerprint(), removeErr.Error())
			m.recordEntryError(entry.Fingerprint(), removeErr)
			continue
		}

		removal := NewRemovedEntry(entry.Fingerprint(), ageHours, sizeBytes, fileCount)
		report.addRemoval(removal)
		m.metadataSink.RecordArtifact(
			metadata.ArtifactRemoval,
			m.store.PathForKey(entry.Fingerprint()),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrFingerprint, entry.Fingerprint()),
			},
		)
	}

	m.finalizer.RecordFinalCleanupStats(
		len(report.removedEntries),
		len(report.errors),
		report.totalBytesReclaimed,
		report.totalFilesReclaimed,
		time.Since(started),
	)

	return report, nil
}

func (m *Manager) recordEntryError(fingerprint string, err failure.ClassifiedError) {
	m.metadataSink.RecordError(
		time.Now(),
		"cleanup",
		"Manager.CleanupExpired",
		metadata.CauseEntryIO,
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrFingerprint, fingerprint),
		},
	)
}
