package cleanup_test

import (
	"path/filepath"

	"github.com/rohmanhakim/sync-cache/internal/storage"
	"github.com/rohmanhakim/sync-cache/pkg/failure"
)

// entryStoreMock is a mock for cleanup.EntryStore
type entryStoreMock struct {
	defaultTTLHours float64
	entries         []storage.EntryInfo
	listErr         failure.ClassifiedError
	statsByPath     map[string]storage.EntryStats
	statsErrByPath  map[string]failure.ClassifiedError
	removeErrByKey  map[string]failure.ClassifiedError
	removedKeys     []string
}

func (m *entryStoreMock) DefaultTTLHours() float64 {
	return m.defaultTTLHours
}

func (m *entryStoreMock) PathForKey(fingerprint string) string {
	return filepath.Join("/cache", fingerprint)
}

func (m *entryStoreMock) StatsFor(path string) (storage.EntryStats, failure.ClassifiedError) {
	if err, exists := m.statsErrByPath[path]; exists {
		return storage.EntryStats{}, err
	}
	return m.statsByPath[path], nil
}

func (m *entryStoreMock) RemoveEntry(fingerprint string) failure.ClassifiedError {
	if err, exists := m.removeErrByKey[fingerprint]; exists {
		return err
	}
	m.removedKeys = append(m.removedKeys, fingerprint)
	return nil
}

func (m *entryStoreMock) ListEntries() ([]storage.EntryInfo, failure.ClassifiedError) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.entries, nil
}

// lockCheckerMock is a mock for cleanup.LockChecker
type lockCheckerMock struct {
	lockedKeys map[string]bool
	probes     []string
}

func (m *lockCheckerMock) IsLocked(fingerprint string) bool {
	m.probes = append(m.probes, fingerprint)
	return m.lockedKeys[fingerprint]
}

// classifiedErrorStub is a minimal failure.ClassifiedError for mock wiring
type classifiedErrorStub struct {
	msg      string
	severity failure.Severity
}

func (e *classifiedErrorStub) Error() string {
	return e.msg
}

func (e *classifiedErrorStub) Severity() failure.Severity {
	return e.severity
}
