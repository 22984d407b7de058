package cleanup

/*
CleanupReport
  - Immutable result of one cleanup pass
  - Always reflects best-effort progress: per-entry failures land in the
    error list without aborting the pass
  - A second consecutive pass with no intervening activity yields an
    empty removal list
*/
type CleanupReport struct {
	removedEntries      []RemovedEntry
	errors              []EntryError
	totalBytesReclaimed int64
	totalFilesReclaimed int
}

func (r *CleanupReport) RemovedEntries() []RemovedEntry {
	out := make([]RemovedEntry, len(r.removedEntries))
	copy(out, r.removedEntries)
	return out
}

func (r *CleanupReport) Errors() []EntryError {
	out := make([]EntryError, len(r.errors))
	copy(out, r.errors)
	return out
}

func (r *CleanupReport) TotalBytesReclaimed() int64 {
	return r.totalBytesReclaimed
}

func (r *CleanupReport) TotalFilesReclaimed() int {
	return r.totalFilesReclaimed
}

func (r *CleanupReport) addRemoval(removal RemovedEntry) {
	r.removedEntries = append(r.removedEntries, removal)
	r.totalBytesReclaimed += removal.sizeBytes
	r.totalFilesReclaimed += removal.fileCount
}

func (r *CleanupReport) addError(fingerprint string, message string) {
	r.errors = append(r.errors, EntryError{
		fingerprint: fingerprint,
		message:     message,
	})
}

type RemovedEntry struct {
	fingerprint string
	ageHours    float64
	sizeBytes   int64
	fileCount   int
}

func NewRemovedEntry(
	fingerprint string,
	ageHours float64,
	sizeBytes int64,
	fileCount int,
) RemovedEntry {
	return RemovedEntry{
		fingerprint: fingerprint,
		ageHours:    ageHours,
		sizeBytes:   sizeBytes,
		fileCount:   fileCount,
	}
}

func (e *RemovedEntry) Fingerprint() string {
	return e.fingerprint
}

func (e *RemovedEntry) AgeHours() float64 {
	return e.ageHours
}

func (e *RemovedEntry) SizeBytes() int64 {
	return e.sizeBytes
}

func (e *RemovedEntry) FileCount() int {
	return e.fileCount
}

type EntryError struct {
	fingerprint string
	message     string
}

func (e *EntryError) Fingerprint() string {
	return e.fingerprint
}

func (e *EntryError) Message() string {
	return e.message
}
