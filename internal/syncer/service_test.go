package syncer_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rohmanhakim/sync-cache/internal/config"
	"github.com/rohmanhakim/sync-cache/internal/keygen"
	"github.com/rohmanhakim/sync-cache/internal/lockmgr"
	"github.com/rohmanhakim/sync-cache/internal/syncer"
	"github.com/rohmanhakim/sync-cache/pkg/failure"
	"github.com/rohmanhakim/sync-cache/pkg/hashutil"
	"github.com/rohmanhakim/sync-cache/pkg/retry"
)

func newTestService(t *testing.T) (syncer.Service, string) {
	t.Helper()
	root := t.TempDir()
	cfg, err := config.WithDefault(root).
		WithRandomSeed(1).
		WithMaxAttempt(5).
		WithBackoffInitialDuration(5 * time.Millisecond).
		WithBackoffMaxDuration(20 * time.Millisecond).
		WithJitter(time.Millisecond).
		Build()
	require.NoError(t, err)
	return syncer.NewService(cfg, zap.NewNop()), root
}

func legacyRequest() keygen.SyncRequest {
	return keygen.NewLegacyRequest("example.com", 22, "deploy", "/var/www", true, nil, nil, nil)
}

func TestService_MissThenSyncThenHit(t *testing.T) {
	svc, _ := newTestService(t)
	request := legacyRequest()

	result, err := svc.Lookup(request)
	require.Nil(t, err)
	assert.False(t, result.Hit())
	assert.Equal(t, svc.Fingerprint(request), result.Fingerprint())

	session, err := svc.Begin(request, "sync-1")
	require.Nil(t, err)
	require.Equal(t, result.Path(), session.Path())

	// Populate the entry the way a finished remote sync would
	writeErr := os.WriteFile(filepath.Join(session.Path(), "app.conf"), []byte("payload"), 0644)
	require.NoError(t, writeErr)
	require.Nil(t, session.Complete())

	result, err = svc.Lookup(request)
	require.Nil(t, err)
	assert.True(t, result.Hit())
	assert.Equal(t, session.Fingerprint(), result.Fingerprint())

	stats, err := svc.EntryStats(request)
	require.Nil(t, err)
	assert.Equal(t, int64(7), stats.SizeBytes())
	assert.Equal(t, 1, stats.FileCount())
}

func TestService_LookupStaleEntryMisses(t *testing.T) {
	svc, root := newTestService(t)
	request := legacyRequest()

	session, err := svc.Begin(request, "sync-1")
	require.Nil(t, err)
	require.Nil(t, session.Complete())

	// Default freshness window is 24 hours
	old := time.Now().Add(-48 * time.Hour)
	entryPath := filepath.Join(root, session.Fingerprint())
	require.NoError(t, os.Chtimes(entryPath, old, old))

	result, lookupErr := svc.Lookup(request)
	require.Nil(t, lookupErr)
	assert.False(t, result.Hit())
	assert.InDelta(t, 48.0, result.AgeHours(), 0.1)
}

func TestService_LookupMissesWhileLocked(t *testing.T) {
	svc, _ := newTestService(t)
	request := legacyRequest()

	session, err := svc.Begin(request, "sync-1")
	require.Nil(t, err)

	// Entry exists and is fresh, but a sync is rewriting it
	result, lookupErr := svc.Lookup(request)
	require.Nil(t, lookupErr)
	assert.False(t, result.Hit())

	require.Nil(t, session.Complete())

	result, lookupErr = svc.Lookup(request)
	require.Nil(t, lookupErr)
	assert.True(t, result.Hit())
}

func TestService_BeginContention(t *testing.T) {
	svc, _ := newTestService(t)
	request := legacyRequest()

	first, err := svc.Begin(request, "sync-1")
	require.Nil(t, err)

	_, err = svc.Begin(request, "sync-2")
	require.NotNil(t, err)
	assert.Equal(t, failure.SeverityRecoverable, err.Severity())

	lockErr, ok := err.(*lockmgr.LockError)
	require.True(t, ok)
	assert.True(t, lockErr.IsContention())
	assert.Equal(t, "sync-1", lockErr.HolderID)

	require.Nil(t, first.Complete())

	// Slot is free again once the holder completes
	second, err := svc.Begin(request, "sync-2")
	require.Nil(t, err)
	require.Nil(t, second.Complete())
}

func TestService_BeginWaitOutlastsHolder(t *testing.T) {
	svc, _ := newTestService(t)
	request := legacyRequest()

	holder, err := svc.Begin(request, "sync-1")
	require.Nil(t, err)

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = holder.Complete()
	}()

	session, err := svc.BeginWait(request, "sync-2")
	require.Nil(t, err)
	assert.Equal(t, "sync-2", session.SyncID())
	require.Nil(t, session.Complete())
}

func TestService_BeginWaitExhaustsAttempts(t *testing.T) {
	svc, _ := newTestService(t)
	request := legacyRequest()

	holder, err := svc.Begin(request, "sync-1")
	require.Nil(t, err)
	defer func() { _ = holder.Complete() }()

	_, err = svc.BeginWait(request, "sync-2")
	require.NotNil(t, err)

	retryErr, ok := err.(*retry.RetryError)
	require.True(t, ok)
	assert.Equal(t, retry.RetryErrorCause(retry.ErrExhaustedAttempts), retryErr.Cause)
}

func TestSession_AbandonDiscardsEntry(t *testing.T) {
	svc, root := newTestService(t)
	request := legacyRequest()

	session, err := svc.Begin(request, "sync-1")
	require.Nil(t, err)

	writeErr := os.WriteFile(filepath.Join(session.Path(), "partial.dat"), []byte("half-written"), 0644)
	require.NoError(t, writeErr)

	require.Nil(t, session.Abandon())

	_, statErr := os.Stat(filepath.Join(root, session.Fingerprint()))
	assert.True(t, os.IsNotExist(statErr))

	result, lookupErr := svc.Lookup(request)
	require.Nil(t, lookupErr)
	assert.False(t, result.Hit())

	// Abandon released the lock, so a fresh session can start
	retrySession, err := svc.Begin(request, "sync-2")
	require.Nil(t, err)
	require.Nil(t, retrySession.Complete())
}

func TestSession_CloseTwice(t *testing.T) {
	svc, _ := newTestService(t)

	session, err := svc.Begin(legacyRequest(), "sync-1")
	require.Nil(t, err)
	require.Nil(t, session.Complete())

	err = session.Complete()
	require.NotNil(t, err)
	serviceErr, ok := err.(*syncer.ServiceError)
	require.True(t, ok)
	assert.Equal(t, syncer.ServiceErrorCause(syncer.ErrCauseSessionClosed), serviceErr.Cause)

	err = session.Abandon()
	require.NotNil(t, err)
}

func TestService_Invalidate(t *testing.T) {
	svc, root := newTestService(t)
	request := legacyRequest()

	session, err := svc.Begin(request, "sync-1")
	require.Nil(t, err)
	require.Nil(t, session.Complete())

	require.Nil(t, svc.Invalidate(request))

	_, statErr := os.Stat(filepath.Join(root, session.Fingerprint()))
	assert.True(t, os.IsNotExist(statErr))

	// Removing an entry that is already gone is not an error
	require.Nil(t, svc.Invalidate(request))
}

func TestService_InvalidateRefusedWhileLocked(t *testing.T) {
	svc, _ := newTestService(t)
	request := legacyRequest()

	session, err := svc.Begin(request, "sync-1")
	require.Nil(t, err)

	err = svc.Invalidate(request)
	require.NotNil(t, err)
	serviceErr, ok := err.(*syncer.ServiceError)
	require.True(t, ok)
	assert.Equal(t, syncer.ServiceErrorCause(syncer.ErrCauseEntryLocked), serviceErr.Cause)
	assert.True(t, serviceErr.IsRetryable())

	require.Nil(t, session.Complete())
	require.Nil(t, svc.Invalidate(request))
}

func TestService_RejectsInvalidRequests(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name    string
		request keygen.SyncRequest
	}{
		{
			name:    "empty host",
			request: keygen.NewLegacyRequest("", 22, "deploy", "/var/www", true, nil, nil, nil),
		},
		{
			name:    "no paths",
			request: keygen.NewMultiPathRequest("example.com", 22, "deploy", nil, nil, true, nil, nil, nil),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Lookup(tt.request)
			require.NotNil(t, err)
			assert.Equal(t, failure.SeverityFatal, err.Severity())

			_, err = svc.Begin(tt.request, "sync-1")
			require.NotNil(t, err)

			err = svc.Invalidate(tt.request)
			require.NotNil(t, err)
		})
	}
}

func TestService_LockStateAndForceRelease(t *testing.T) {
	svc, _ := newTestService(t)
	request := legacyRequest()

	assert.Equal(t, lockmgr.LockStateFree, svc.LockState(request))
	assert.False(t, svc.ForceRelease(request))

	_, err := svc.Begin(request, "sync-1")
	require.Nil(t, err)
	assert.Equal(t, lockmgr.LockStateHeld, svc.LockState(request))

	assert.True(t, svc.ForceRelease(request))
	assert.Equal(t, lockmgr.LockStateFree, svc.LockState(request))

	// Slot is claimable again without the original session completing
	session, err := svc.Begin(request, "sync-2")
	require.Nil(t, err)
	require.Nil(t, session.Complete())
}

func TestService_CleanupExpiredPassthrough(t *testing.T) {
	svc, root := newTestService(t)
	request := legacyRequest()

	session, err := svc.Begin(request, "sync-1")
	require.Nil(t, err)
	writeErr := os.WriteFile(filepath.Join(session.Path(), "data.bin"), []byte("0123456789"), 0644)
	require.NoError(t, writeErr)
	require.Nil(t, session.Complete())

	old := time.Now().Add(-40 * time.Hour)
	entryPath := filepath.Join(root, session.Fingerprint())
	require.NoError(t, os.Chtimes(entryPath, old, old))

	report, cleanupErr := svc.CleanupExpired(24)
	require.Nil(t, cleanupErr)
	require.Len(t, report.RemovedEntries(), 1)
	assert.Equal(t, session.Fingerprint(), report.RemovedEntries()[0].Fingerprint())
	assert.Equal(t, int64(10), report.TotalBytesReclaimed())

	result, lookupErr := svc.Lookup(request)
	require.Nil(t, lookupErr)
	assert.False(t, result.Hit())
}

func TestService_EntryDigestTracksContent(t *testing.T) {
	svc, _ := newTestService(t)
	request := legacyRequest()

	session, err := svc.Begin(request, "sync-1")
	require.Nil(t, err)
	writeErr := os.WriteFile(filepath.Join(session.Path(), "index.html"), []byte("<html></html>"), 0644)
	require.NoError(t, writeErr)
	require.Nil(t, session.Complete())

	first, digestErr := svc.EntryDigest(request, hashutil.HashAlgoSHA256)
	require.Nil(t, digestErr)
	require.NotEmpty(t, first)

	again, digestErr := svc.EntryDigest(request, hashutil.HashAlgoSHA256)
	require.Nil(t, digestErr)
	assert.Equal(t, first, again)

	result, lookupErr := svc.Lookup(request)
	require.Nil(t, lookupErr)
	writeErr = os.WriteFile(filepath.Join(result.Path(), "index.html"), []byte("changed"), 0644)
	require.NoError(t, writeErr)

	changed, digestErr := svc.EntryDigest(request, hashutil.HashAlgoSHA256)
	require.Nil(t, digestErr)
	assert.NotEqual(t, first, changed)
}
