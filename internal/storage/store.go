package storage

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rohmanhakim/sync-cache/internal/metadata"
	"github.com/rohmanhakim/sync-cache/pkg/failure"
	"github.com/rohmanhakim/sync-cache/pkg/hashutil"
)

/*
Responsibilities
- Own the on-disk layout: one subdirectory per fingerprint under the root
- Map fingerprints to entry paths, stable across restarts
- Compute entry statistics on demand, uncached
- Delete entries recursively, idempotent when already absent

Output Characteristics
- Stable directory layout
- Lock side-files are siblings of entry directories, never inside them
- Entry metadata (not the cache key) is authoritative for contents
*/

type Store struct {
	basePath        string
	defaultTTLHours float64
	metadataSink    metadata.MetadataSink
}

func NewStore(
	basePath string,
	defaultTTLHours float64,
	metadataSink metadata.MetadataSink,
) Store {
	if metadataSink == nil {
		metadataSink = &metadata.NoopSink{}
	}
	return Store{
		basePath:        basePath,
		defaultTTLHours: defaultTTLHours,
		metadataSink:    metadataSink,
	}
}

func (s *Store) BasePath() string {
	return s.basePath
}

func (s *Store) DefaultTTLHours() float64 {
	return s.defaultTTLHours
}

// PathForKey maps a fingerprint to its entry location under the cache root.
func (s *Store) PathForKey(fingerprint string) string {
	return filepath.Join(s.basePath, fingerprint)
}

// EnsureEntryDir creates the entry directory (and the cache root if needed)
// so a sync has a target to populate.
func (s *Store) EnsureEntryDir(fingerprint string) failure.ClassifiedError {
	entryPath := s.PathForKey(fingerprint)
	if err := os.MkdirAll(entryPath, 0755); err != nil {
		storageErr := &StorageError{
			Message:   err.Error(),
			Retryable: true,
			Cause:     ErrCausePathError,
			Path:      entryPath,
		}
		s.recordError("Store.EnsureEntryDir", storageErr)
		return storageErr
	}
	return nil
}

// EntryModTime returns the entry's modification time, or false when no
// entry directory exists for the fingerprint.
func (s *Store) EntryModTime(fingerprint string) (time.Time, bool) {
	info, err := os.Stat(s.PathForKey(fingerprint))
	if err != nil || !info.IsDir() {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

// EntryFresh reports whether the entry exists and its modification time is
// within maxAge of now.
func (s *Store) EntryFresh(fingerprint string, maxAge time.Duration) bool {
	modTime, ok := s.EntryModTime(fingerprint)
	if !ok {
		return false
	}
	return time.Since(modTime) <= maxAge
}

// StatsFor computes the total size and file count of an entry subtree.
// Computed on demand and never cached: lock state and entry contents can
// change between calls.
func (s *Store) StatsFor(path string) (EntryStats, failure.ClassifiedError) {
	var sizeBytes int64
	var fileCount int

	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return infoErr
		}
		sizeBytes += info.Size()
		fileCount++
		return nil
	})
	if err != nil {
		storageErr := &StorageError{
			Message:   err.Error(),
			Retryable: true,
			Cause:     ErrCauseWalkFailure,
			Path:      path,
		}
		s.recordError("Store.StatsFor", storageErr)
		return EntryStats{}, storageErr
	}

	return NewEntryStats(sizeBytes, fileCount), nil
}

// RemoveEntry recursively deletes an entry. Removing an absent entry is not
// an error.
func (s *Store) RemoveEntry(fingerprint string) failure.ClassifiedError {
	entryPath := s.PathForKey(fingerprint)
	if err := os.RemoveAll(entryPath); err != nil {
		storageErr := &StorageError{
			Message:   err.Error(),
			Retryable: true,
			Cause:     ErrCauseRemoveFailure,
			Path:      entryPath,
		}
		s.recordError("Store.RemoveEntry", storageErr)
		return storageErr
	}
	return nil
}

// ListEntries enumerates the top-level entries under the cache root.
// Only directories are entries; lock side-files live as sibling plain files
// and are excluded. A missing root is an empty cache, not an error; any
// other enumeration failure is structural and fatal.
func (s *Store) ListEntries() ([]EntryInfo, failure.ClassifiedError) {
	dirEntries, err := os.ReadDir(s.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []EntryInfo{}, nil
		}
		storageErr := &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseRootUnavailable,
			Path:      s.basePath,
		}
		s.recordError("Store.ListEntries", storageErr)
		return nil, storageErr
	}

	entries := make([]EntryInfo, 0, len(dirEntries))
	for _, dirEntry := range dirEntries {
		if !dirEntry.IsDir() {
			continue
		}
		info, infoErr := dirEntry.Info()
		if infoErr != nil {
			// The entry vanished between ReadDir and Info; not structural
			continue
		}
		entries = append(entries, NewEntryInfo(dirEntry.Name(), info.ModTime()))
	}
	sortEntriesByAge(entries)
	return entries, nil
}

// ContentDigest hashes an entry's file tree (relative paths and contents,
// in walk order) into one hex digest. The walk order of filepath.WalkDir is
// lexical, so the digest is deterministic for identical trees.
func (s *Store) ContentDigest(fingerprint string, algo hashutil.HashAlgo) (string, failure.ClassifiedError) {
	entryPath := s.PathForKey(fingerprint)

	hasher, err := hashutil.NewHasher(algo)
	if err != nil {
		return "", &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseDigestFailure,
			Path:      entryPath,
		}
	}

	walkErr := filepath.WalkDir(entryPath, func(p string, d fs.DirEntry, inErr error) error {
		if inErr != nil {
			return inErr
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(entryPath, p)
		if relErr != nil {
			return relErr
		}
		if _, writeErr := io.WriteString(hasher, rel); writeErr != nil {
			return writeErr
		}
		f, openErr := os.Open(p)
		if openErr != nil {
			return openErr
		}
		_, copyErr := io.Copy(hasher, f)
		f.Close()
		return copyErr
	})
	if walkErr != nil {
		storageErr := &StorageError{
			Message:   walkErr.Error(),
			Retryable: true,
			Cause:     ErrCauseDigestFailure,
			Path:      entryPath,
		}
		s.recordError("Store.ContentDigest", storageErr)
		return "", storageErr
	}

	return hashutil.HexSum(hasher), nil
}

func (s *Store) recordError(action string, storageErr *StorageError) {
	s.metadataSink.RecordError(
		time.Now(),
		"storage",
		action,
		mapStorageErrorToMetadataCause(storageErr),
		storageErr.Message,
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrPath, storageErr.Path),
		},
	)
}

// sortEntriesByAge orders entries oldest first; cleanup reports read better
// when removals appear in age order.
func sortEntriesByAge(entries []EntryInfo) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].modTime.Before(entries[j].modTime)
	})
}
