package cleanup_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rohmanhakim/sync-cache/internal/cleanup"
	"github.com/rohmanhakim/sync-cache/internal/lockmgr"
	"github.com/rohmanhakim/sync-cache/internal/metadata"
	"github.com/rohmanhakim/sync-cache/internal/storage"
	"github.com/rohmanhakim/sync-cache/pkg/failure"
)

// newCacheFixture wires a real store and lock manager over a temp root
func newCacheFixture(t *testing.T) (cleanup.Manager, storage.Store, lockmgr.Manager, string) {
	t.Helper()
	root, err := os.MkdirTemp("", "cleanup-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(root) })

	store := storage.NewStore(root, 24, &metadata.NoopSink{})
	locks := lockmgr.NewManager(&store, lockmgr.DefaultMaxLockAge, &metadata.NoopSink{})
	mgr := cleanup.NewManager(&store, &locks, &metadata.NoopSink{}, &metadata.NoopSink{})
	return mgr, store, locks, root
}

// agedEntry materializes an entry whose mtime lies ageHours in the past
func agedEntry(t *testing.T, root string, fingerprint string, ageHours float64, files map[string]string) {
	t.Helper()
	entryPath := filepath.Join(root, fingerprint)
	for name, content := range files {
		fullPath := filepath.Join(entryPath, name)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			t.Fatalf("failed to create entry dirs: %v", err)
		}
		if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write entry file: %v", err)
		}
	}
	if len(files) == 0 {
		if err := os.MkdirAll(entryPath, 0755); err != nil {
			t.Fatalf("failed to create empty entry: %v", err)
		}
	}
	at := time.Now().Add(-time.Duration(ageHours * float64(time.Hour)))
	if err := os.Chtimes(entryPath, at, at); err != nil {
		t.Fatalf("failed to age entry: %v", err)
	}
}

func TestCleanupExpired_EmptyRoot(t *testing.T) {
	mgr, _, _, _ := newCacheFixture(t)

	report, err := mgr.CleanupExpired(0)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(report.RemovedEntries()) != 0 {
		t.Errorf("expected no removals, got %d", len(report.RemovedEntries()))
	}
	if len(report.Errors()) != 0 {
		t.Errorf("expected no errors, got %d", len(report.Errors()))
	}
	if report.TotalBytesReclaimed() != 0 || report.TotalFilesReclaimed() != 0 {
		t.Error("expected zero totals on empty root")
	}
}

func TestCleanupExpired_MissingRoot(t *testing.T) {
	store := storage.NewStore(filepath.Join(os.TempDir(), "no-such-sync-cache-root"), 24, &metadata.NoopSink{})
	locks := lockmgr.NewManager(&store, lockmgr.DefaultMaxLockAge, &metadata.NoopSink{})
	mgr := cleanup.NewManager(&store, &locks, &metadata.NoopSink{}, &metadata.NoopSink{})

	report, err := mgr.CleanupExpired(24)
	if err != nil {
		t.Fatalf("missing root must yield an empty report, got: %v", err)
	}
	if len(report.RemovedEntries()) != 0 || len(report.Errors()) != 0 {
		t.Error("expected empty report for missing root")
	}
}

func TestCleanupExpired_RemovesOnlyExpired(t *testing.T) {
	mgr, store, _, root := newCacheFixture(t)

	agedEntry(t, root, "aaaa111111111111", 40, map[string]string{"data.bin": "0123456789"})
	agedEntry(t, root, "bbbb222222222222", 20, map[string]string{"data.bin": "x"})
	agedEntry(t, root, "cccc333333333333", 5, map[string]string{"data.bin": "y"})

	report, err := mgr.CleanupExpired(24)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	removed := report.RemovedEntries()
	if len(removed) != 1 {
		t.Fatalf("expected 1 removal, got %d", len(removed))
	}
	if removed[0].Fingerprint() != "aaaa111111111111" {
		t.Errorf("expected the 40h entry removed, got %s", removed[0].Fingerprint())
	}
	if removed[0].AgeHours() < 39 || removed[0].AgeHours() > 41 {
		t.Errorf("expected age near 40h, got %f", removed[0].AgeHours())
	}
	if removed[0].SizeBytes() != 10 {
		t.Errorf("expected 10 bytes reclaimed, got %d", removed[0].SizeBytes())
	}
	if removed[0].FileCount() != 1 {
		t.Errorf("expected 1 file reclaimed, got %d", removed[0].FileCount())
	}
	if report.TotalBytesReclaimed() != 10 {
		t.Errorf("expected total 10 bytes, got %d", report.TotalBytesReclaimed())
	}
	if report.TotalFilesReclaimed() != 1 {
		t.Errorf("expected total 1 file, got %d", report.TotalFilesReclaimed())
	}

	// The expired entry is gone; the fresh ones survive
	if _, statErr := os.Stat(store.PathForKey("aaaa111111111111")); !os.IsNotExist(statErr) {
		t.Error("expected expired entry to be deleted")
	}
	for _, keep := range []string{"bbbb222222222222", "cccc333333333333"} {
		if _, statErr := os.Stat(store.PathForKey(keep)); statErr != nil {
			t.Errorf("expected entry %s to survive: %v", keep, statErr)
		}
	}
}

func TestCleanupExpired_SkipsLockedEntries(t *testing.T) {
	mgr, store, locks, root := newCacheFixture(t)

	agedEntry(t, root, "aaaa111111111111", 40, map[string]string{"data.bin": "0123456789"})

	if err := locks.Acquire("aaaa111111111111", "sync-active"); err != nil {
		t.Fatalf("failed to lock entry: %v", err)
	}

	report, err := mgr.CleanupExpired(24)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(report.RemovedEntries()) != 0 {
		t.Errorf("expected no removals while locked, got %d", len(report.RemovedEntries()))
	}
	if _, statErr := os.Stat(store.PathForKey("aaaa111111111111")); statErr != nil {
		t.Error("expected locked entry to survive regardless of age")
	}

	// Once released, the same pass threshold reclaims it
	if err := locks.Release("aaaa111111111111"); err != nil {
		t.Fatalf("failed to release lock: %v", err)
	}
	report, err = mgr.CleanupExpired(24)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(report.RemovedEntries()) != 1 {
		t.Fatalf("expected 1 removal after release, got %d", len(report.RemovedEntries()))
	}
}

func TestCleanupExpired_SecondPassIsEmpty(t *testing.T) {
	mgr, _, _, root := newCacheFixture(t)

	agedEntry(t, root, "aaaa111111111111", 40, map[string]string{"data.bin": "x"})
	agedEntry(t, root, "bbbb222222222222", 30, map[string]string{"data.bin": "y"})

	first, err := mgr.CleanupExpired(24)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(first.RemovedEntries()) != 2 {
		t.Fatalf("expected 2 removals, got %d", len(first.RemovedEntries()))
	}

	second, err := mgr.CleanupExpired(24)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(second.RemovedEntries()) != 0 {
		t.Errorf("expected idempotent second pass, got %d removals", len(second.RemovedEntries()))
	}
	if len(second.Errors()) != 0 {
		t.Errorf("expected no errors on second pass, got %d", len(second.Errors()))
	}
}

func TestCleanupExpired_NegativeThresholdUsesDefaultTTL(t *testing.T) {
	mgr, _, _, root := newCacheFixture(t) // store default TTL is 24h

	agedEntry(t, root, "aaaa111111111111", 40, map[string]string{"data.bin": "x"})
	agedEntry(t, root, "cccc333333333333", 5, map[string]string{"data.bin": "y"})

	report, err := mgr.CleanupExpired(-1)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(report.RemovedEntries()) != 1 {
		t.Fatalf("expected 1 removal at default TTL, got %d", len(report.RemovedEntries()))
	}
	if report.RemovedEntries()[0].Fingerprint() != "aaaa111111111111" {
		t.Errorf("expected the 40h entry removed, got %s", report.RemovedEntries()[0].Fingerprint())
	}
}

func TestCleanupExpired_PerEntryFailureDoesNotAbort(t *testing.T) {
	old := time.Now().Add(-40 * time.Hour)
	store := &entryStoreMock{
		defaultTTLHours: 24,
		entries: []storage.EntryInfo{
			storage.NewEntryInfo("aaaa111111111111", old),
			storage.NewEntryInfo("bbbb222222222222", old),
		},
		statsByPath: map[string]storage.EntryStats{
			"/cache/bbbb222222222222": storage.NewEntryStats(64, 2),
		},
		removeErrByKey: map[string]failure.ClassifiedError{
			"aaaa111111111111": &classifiedErrorStub{
				msg:      "storage error: entry removal failed",
				severity: failure.SeverityRecoverable,
			},
		},
	}
	locks := &lockCheckerMock{lockedKeys: map[string]bool{}}
	mgr := cleanup.NewManager(store, locks, &metadata.NoopSink{}, &metadata.NoopSink{})

	report, err := mgr.CleanupExpired(24)
	if err != nil {
		t.Fatalf("per-entry failure must not abort the pass, got: %v", err)
	}

	if len(report.Errors()) != 1 {
		t.Fatalf("expected 1 captured error, got %d", len(report.Errors()))
	}
	captured := report.Errors()[0]
	if captured.Fingerprint() != "aaaa111111111111" {
		t.Errorf("expected error on aaaa111111111111, got %s", captured.Fingerprint())
	}
	if captured.Message() == "" {
		t.Error("expected a failure message in the report")
	}

	// The healthy entry was still reclaimed
	if len(report.RemovedEntries()) != 1 {
		t.Fatalf("expected 1 removal, got %d", len(report.RemovedEntries()))
	}
	if report.RemovedEntries()[0].Fingerprint() != "bbbb222222222222" {
		t.Errorf("expected bbbb222222222222 removed, got %s", report.RemovedEntries()[0].Fingerprint())
	}
	if report.TotalBytesReclaimed() != 64 || report.TotalFilesReclaimed() != 2 {
		t.Errorf("unexpected totals: %d bytes, %d files",
			report.TotalBytesReclaimed(), report.TotalFilesReclaimed())
	}
}

func TestCleanupExpired_StatFailureStillDeletes(t *testing.T) {
	old := time.Now().Add(-40 * time.Hour)
	store := &entryStoreMock{
		defaultTTLHours: 24,
		entries: []storage.EntryInfo{
			storage.NewEntryInfo("aaaa111111111111", old),
		},
		statsErrByPath: map[string]failure.ClassifiedError{
			"/cache/aaaa111111111111": &classifiedErrorStub{
				msg:      "storage error: entry walk failed",
				severity: failure.SeverityRecoverable,
			},
		},
	}
	locks := &lockCheckerMock{lockedKeys: map[string]bool{}}
	mgr := cleanup.NewManager(store, locks, &metadata.NoopSink{}, &metadata.NoopSink{})

	report, err := mgr.CleanupExpired(24)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	// Removal happens despite the stat failure; totals carry zero stats
	if len(report.RemovedEntries()) != 1 {
		t.Fatalf("expected 1 removal, got %d", len(report.RemovedEntries()))
	}
	if report.RemovedEntries()[0].SizeBytes() != 0 {
		t.Errorf("expected zero size on stat failure, got %d", report.RemovedEntries()[0].SizeBytes())
	}
	if len(report.Errors()) != 1 {
		t.Fatalf("expected the stat failure captured, got %d errors", len(report.Errors()))
	}
	if len(store.removedKeys) != 1 || store.removedKeys[0] != "aaaa111111111111" {
		t.Errorf("expected entry deleted, removals: %v", store.removedKeys)
	}
}

func TestCleanupExpired_RootFailurePropagates(t *testing.T) {
	store := &entryStoreMock{
		defaultTTLHours: 24,
		listErr: &classifiedErrorStub{
			msg:      "storage error: cache root unavailable",
			severity: failure.SeverityFatal,
		},
	}
	locks := &lockCheckerMock{lockedKeys: map[string]bool{}}
	mgr := cleanup.NewManager(store, locks, &metadata.NoopSink{}, &metadata.NoopSink{})

	_, err := mgr.CleanupExpired(24)
	if err == nil {
		t.Fatal("expected root failure to propagate")
	}
	if err.Severity() != failure.SeverityFatal {
		t.Errorf("expected fatal severity, got %v", err.Severity())
	}
}

func TestCleanupExpired_LockCheckedPerCandidate(t *testing.T) {
	old := time.Now().Add(-40 * time.Hour)
	store := &entryStoreMock{
		defaultTTLHours: 24,
		entries: []storage.EntryInfo{
			storage.NewEntryInfo("aaaa111111111111", old),
			storage.NewEntryInfo("bbbb222222222222", old),
			// fresh entry must not even be lock-checked
			storage.NewEntryInfo("cccc333333333333", time.Now()),
		},
		statsByPath: map[string]storage.EntryStats{},
	}
	locks := &lockCheckerMock{lockedKeys: map[string]bool{"bbbb222222222222": true}}
	mgr := cleanup.NewManager(store, locks, &metadata.NoopSink{}, &metadata.NoopSink{})

	report, err := mgr.CleanupExpired(24)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if len(locks.probes) != 2 {
		t.Errorf("expected a fresh lock probe per expired candidate, got %v", locks.probes)
	}
	if len(report.RemovedEntries()) != 1 {
		t.Fatalf("expected 1 removal, got %d", len(report.RemovedEntries()))
	}
	if report.RemovedEntries()[0].Fingerprint() != "aaaa111111111111" {
		t.Errorf("expected the unlocked entry removed, got %s", report.RemovedEntries()[0].Fingerprint())
	}
}
