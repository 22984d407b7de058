package storage

import "time"

// Entry metadata

type EntryStats struct {
	sizeBytes int64
	fileCount int
}

func NewEntryStats(
	sizeBytes int64,
	fileCount int,
) EntryStats {
	return EntryStats{
		sizeBytes: sizeBytes,
		fileCount: fileCount,
	}
}

func (s *EntryStats) SizeBytes() int64 {
	return s.sizeBytes
}

func (s *EntryStats) FileCount() int {
	return s.fileCount
}

type EntryInfo struct {
	fingerprint string // identity (top-level directory name under the cache root)
	modTime     time.Time
}

func NewEntryInfo(
	fingerprint string,
	modTime time.Time,
) EntryInfo {
	return EntryInfo{
		fingerprint: fingerprint,
		modTime:     modTime,
	}
}

func (e *EntryInfo) Fingerprint() string {
	return e.fingerprint
}

func (e *EntryInfo) ModTime() time.Time {
	return e.modTime
}
