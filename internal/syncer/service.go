package syncer

import (
	"time"

	"go.uber.org/zap"

	"github.com/rohmanhakim/sync-cache/internal/cleanup"
	"github.com/rohmanhakim/sync-cache/internal/config"
	"github.com/rohmanhakim/sync-cache/internal/keygen"
	"github.com/rohmanhakim/sync-cache/internal/lockmgr"
	"github.com/rohmanhakim/sync-cache/internal/metadata"
	"github.com/rohmanhakim/sync-cache/internal/storage"
	"github.com/rohmanhakim/sync-cache/pkg/failure"
	"github.com/rohmanhakim/sync-cache/pkg/hashutil"
	"github.com/rohmanhakim/sync-cache/pkg/retry"
	"github.com/rohmanhakim/sync-cache/pkg/timeutil"
)

/*
 Service is the sole entry point for cache decisions.

 Consistency guarantees:
 - Service is the ONLY component allowed to decide whether a sync
   request is served from the cache or must run remotely.
 - A request maps to exactly one fingerprint; all coordination
   (locking, population, removal) happens under that fingerprint.
 - Callers never touch lock files or entry directories directly;
   they populate the path handed out by a Session and close it.
 - A Session holds the entry's lock from Begin until Complete or
   Abandon. No other sync for the same fingerprint may start in
   between.

 Metadata emission is observational only and MUST NOT influence
 lookup, locking, or cleanup decisions.

 Service Responsibilities:
 - Map requests to fingerprints
 - Answer hit / miss lookups against the freshness window
 - Coordinate sync sessions over the lock manager
 - Expose invalidation and age-based cleanup
 - The sole authority on:
	- serve from cache
	- sync remotely
	- wait on a held lock
*/

type Service struct {
	store        *storage.Store
	locks        *lockmgr.Manager
	cleaner      *cleanup.Manager
	retryParam   retry.RetryParam
	metadataSink metadata.MetadataSink
}

func NewService(cfg config.Config, logger *zap.Logger) Service {
	recorder := metadata.NewRecorder(logger)
	store := storage.NewStore(cfg.CacheDir(), cfg.TTLHours(), &recorder)
	locks := lockmgr.NewManager(&store, cfg.LockMaxAge(), &recorder)
	cleaner := cleanup.NewManager(&store, &locks, &recorder, &recorder)
	backoffParam := timeutil.NewBackoffParam(
		cfg.BackoffInitialDuration(),
		cfg.BackoffMultiplier(),
		cfg.BackoffMaxDuration(),
	)
	retryParam := retry.NewRetryParam(
		cfg.Jitter(),
		cfg.RandomSeed(),
		cfg.MaxAttempt(),
		backoffParam,
	)
	return Service{
		store:        &store,
		locks:        &locks,
		cleaner:      &cleaner,
		retryParam:   retryParam,
		metadataSink: &recorder,
	}
}

// NewServiceWithDeps creates a Service with injected dependencies for testing.
// This constructor allows tests to provide mock implementations of metadata
// interfaces to verify behavior without relying on real infrastructure.
func NewServiceWithDeps(
	store *storage.Store,
	locks *lockmgr.Manager,
	cleaner *cleanup.Manager,
	retryParam retry.RetryParam,
	metadataSink metadata.MetadataSink,
) Service {
	if metadataSink == nil {
		metadataSink = &metadata.NoopSink{}
	}
	return Service{
		store:        store,
		locks:        locks,
		cleaner:      cleaner,
		retryParam:   retryParam,
		metadataSink: metadataSink,
	}
}

// Fingerprint maps a request to its cache slot identity.
func (s *Service) Fingerprint(request keygen.SyncRequest) string {
	return keygen.Fingerprint(request)
}

// Lookup answers whether a request can be served from the cache. A hit
// requires the entry to exist, to be younger than the store's default
// freshness window, and its slot to be unlocked: a locked slot means a
// sync is rewriting the entry right now.
func (s *Service) Lookup(request keygen.SyncRequest) (LookupResult, failure.ClassifiedError) {
	if err := validateRequest(request); err != nil {
		return LookupResult{}, err
	}

	fingerprint := keygen.Fingerprint(request)
	path := s.store.PathForKey(fingerprint)

	ageHours := float64(0)
	hit := false
	if modTime, ok := s.store.EntryModTime(fingerprint); ok {
		ageHours = timeutil.AgeHours(modTime, time.Now())
		hit = ageHours <= s.store.DefaultTTLHours() && !s.locks.IsLocked(fingerprint)
	}

	s.metadataSink.RecordLookup(fingerprint, hit, ageHours)
	return NewLookupResult(fingerprint, hit, path, ageHours), nil
}

// Begin starts a sync session for the request: it claims the entry's lock
// under syncID and ensures the entry directory exists for population.
// On contention the returned error is retryable and nothing is held.
func (s *Service) Begin(request keygen.SyncRequest, syncID string) (*Session, failure.ClassifiedError) {
	if err := validateRequest(request); err != nil {
		return nil, err
	}

	fingerprint := keygen.Fingerprint(request)
	if err := s.locks.Acquire(fingerprint, syncID); err != nil {
		return nil, err
	}

	if err := s.store.EnsureEntryDir(fingerprint); err != nil {
		// Entry dir could not be created, so the session cannot proceed.
		// Best effort on the release; the entry dir failure is the primary error.
		_ = s.locks.Release(fingerprint)
		return nil, err
	}

	return &Session{
		service:     s,
		fingerprint: fingerprint,
		path:        s.store.PathForKey(fingerprint),
		syncID:      syncID,
	}, nil
}

// BeginWait behaves like Begin but waits out a held lock, retrying
// acquisition with exponential backoff until it succeeds or attempts
// are exhausted. Non-retryable failures abort immediately.
func (s *Service) BeginWait(request keygen.SyncRequest, syncID string) (*Session, failure.ClassifiedError) {
	return retry.Retry(s.retryParam, func() (*Session, failure.ClassifiedError) {
		return s.Begin(request, syncID)
	})
}

// Invalidate removes the request's entry from the cache. Removing is
// refused while a sync holds the entry's lock.
func (s *Service) Invalidate(request keygen.SyncRequest) failure.ClassifiedError {
	if err := validateRequest(request); err != nil {
		return err
	}

	fingerprint := keygen.Fingerprint(request)
	if s.locks.IsLocked(fingerprint) {
		return &ServiceError{
			Message:   "entry is locked by an in-progress sync",
			Retryable: true,
			Cause:     ErrCauseEntryLocked,
		}
	}
	return s.store.RemoveEntry(fingerprint)
}

// CleanupExpired reclaims unlocked entries older than maxAgeHours.
// A negative threshold selects the configured default freshness window.
func (s *Service) CleanupExpired(maxAgeHours float64) (cleanup.CleanupReport, failure.ClassifiedError) {
	return s.cleaner.CleanupExpired(maxAgeHours)
}

// LockState reports the current lock state of the request's slot.
func (s *Service) LockState(request keygen.SyncRequest) lockmgr.LockState {
	return s.LockStateForKey(keygen.Fingerprint(request))
}

// LockStateForKey is LockState addressed by fingerprint, for operator
// tooling acting on a fingerprint reported elsewhere.
func (s *Service) LockStateForKey(fingerprint string) lockmgr.LockState {
	return s.locks.Probe(fingerprint)
}

// ForceRelease removes the request's lock regardless of holder or age.
// It reports whether a lock file was actually removed.
func (s *Service) ForceRelease(request keygen.SyncRequest) bool {
	return s.ForceReleaseKey(keygen.Fingerprint(request))
}

// ForceReleaseKey is ForceRelease addressed by fingerprint.
func (s *Service) ForceReleaseKey(fingerprint string) bool {
	return s.locks.ForceRelease(fingerprint)
}

// EntryStats computes the size and file count of the request's entry.
func (s *Service) EntryStats(request keygen.SyncRequest) (storage.EntryStats, failure.ClassifiedError) {
	return s.EntryStatsForKey(keygen.Fingerprint(request))
}

// EntryStatsForKey is EntryStats addressed by fingerprint.
func (s *Service) EntryStatsForKey(fingerprint string) (storage.EntryStats, failure.ClassifiedError) {
	return s.store.StatsFor(s.store.PathForKey(fingerprint))
}

// EntryDigest computes a content digest over the request's entry tree.
func (s *Service) EntryDigest(request keygen.SyncRequest, algo hashutil.HashAlgo) (string, failure.ClassifiedError) {
	return s.EntryDigestForKey(keygen.Fingerprint(request), algo)
}

// EntryDigestForKey is EntryDigest addressed by fingerprint.
func (s *Service) EntryDigestForKey(fingerprint string, algo hashutil.HashAlgo) (string, failure.ClassifiedError) {
	return s.store.ContentDigest(fingerprint, algo)
}

// Complete ends the session after a successful sync, releasing the lock
// and leaving the populated entry in place.
func (sn *Session) Complete() failure.ClassifiedError {
	if sn.closed {
		return &ServiceError{
			Message:   "session was already completed or abandoned",
			Retryable: false,
			Cause:     ErrCauseSessionClosed,
		}
	}
	sn.closed = true
	return sn.service.locks.Release(sn.fingerprint)
}

// Abandon ends the session after a failed sync. The partially populated
// entry is discarded before the lock is released so no other sync can
// observe it half-written.
func (sn *Session) Abandon() failure.ClassifiedError {
	if sn.closed {
		return &ServiceError{
			Message:   "session was already completed or abandoned",
			Retryable: false,
			Cause:     ErrCauseSessionClosed,
		}
	}
	sn.closed = true

	removeErr := sn.service.store.RemoveEntry(sn.fingerprint)
	releaseErr := sn.service.locks.Release(sn.fingerprint)
	if removeErr != nil {
		return removeErr
	}
	return releaseErr
}

func validateRequest(request keygen.SyncRequest) failure.ClassifiedError {
	if request.RemoteHost() == "" {
		return &ServiceError{
			Message:   "remote host must not be empty",
			Retryable: false,
			Cause:     ErrCauseInvalidRequest,
		}
	}
	if !request.HasPaths() {
		return &ServiceError{
			Message:   "request selects no directories or files",
			Retryable: false,
			Cause:     ErrCauseInvalidRequest,
		}
	}
	return nil
}
