package keygen

import "sort"

/*
SyncRequest
  - Immutable description of one remote directory-synchronization request
  - Identifies the remote endpoint, the paths to sync, and the exclusion sets
  - Set-valued fields are normalized (sorted, deduplicated) at construction
    so that two requests differing only in input order are the same value
  - Two non-overlapping shapes exist: the legacy single-path shape and the
    multi-path shape. Their canonical records carry disjoint field sets, so
    fingerprints never collide across shapes.
*/
type SyncRequest struct {
	remoteHost string
	remotePort int
	remoteUser string

	// legacy single-path shape
	legacy    bool
	directory string

	// multi-path shape
	directories []string
	files       []string

	recursive          bool
	excludePatterns    []string
	excludeExtensions  []string
	excludeDirectories []string
}

// NewLegacyRequest builds a request in the legacy single-path shape.
func NewLegacyRequest(
	remoteHost string,
	remotePort int,
	remoteUser string,
	directory string,
	recursive bool,
	excludePatterns []string,
	excludeExtensions []string,
	excludeDirectories []string,
) SyncRequest {
	return SyncRequest{
		remoteHost:         remoteHost,
		remotePort:         remotePort,
		remoteUser:         remoteUser,
		legacy:             true,
		directory:          directory,
		recursive:          recursive,
		excludePatterns:    normalizeSet(excludePatterns),
		excludeExtensions:  normalizeSet(excludeExtensions),
		excludeDirectories: normalizeSet(excludeDirectories),
	}
}

// NewMultiPathRequest builds a request in the multi-path shape with explicit
// directory and file sets.
func NewMultiPathRequest(
	remoteHost string,
	remotePort int,
	remoteUser string,
	directories []string,
	files []string,
	recursive bool,
	excludePatterns []string,
	excludeExtensions []string,
	excludeDirectories []string,
) SyncRequest {
	return SyncRequest{
		remoteHost:         remoteHost,
		remotePort:         remotePort,
		remoteUser:         remoteUser,
		legacy:             false,
		directories:        normalizeSet(directories),
		files:              normalizeSet(files),
		recursive:          recursive,
		excludePatterns:    normalizeSet(excludePatterns),
		excludeExtensions:  normalizeSet(excludeExtensions),
		excludeDirectories: normalizeSet(excludeDirectories),
	}
}

func (r SyncRequest) RemoteHost() string {
	return r.remoteHost
}

func (r SyncRequest) RemotePort() int {
	return r.remotePort
}

func (r SyncRequest) RemoteUser() string {
	return r.remoteUser
}

func (r SyncRequest) IsLegacy() bool {
	return r.legacy
}

func (r SyncRequest) Directory() string {
	return r.directory
}

func (r SyncRequest) Directories() []string {
	return copyStrings(r.directories)
}

func (r SyncRequest) Files() []string {
	return copyStrings(r.files)
}

func (r SyncRequest) Recursive() bool {
	return r.recursive
}

func (r SyncRequest) ExcludePatterns() []string {
	return copyStrings(r.excludePatterns)
}

func (r SyncRequest) ExcludeExtensions() []string {
	return copyStrings(r.excludeExtensions)
}

func (r SyncRequest) ExcludeDirectories() []string {
	return copyStrings(r.excludeDirectories)
}

// HasPaths reports whether the request names anything to sync.
func (r SyncRequest) HasPaths() bool {
	if r.legacy {
		return r.directory != ""
	}
	return len(r.directories) > 0 || len(r.files) > 0
}

// normalizeSet sorts and deduplicates a set-valued field.
// The result is never nil: an omitted field and an empty set must
// serialize identically in the canonical record.
func normalizeSet(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, exists := seen[v]; exists {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func copyStrings(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	return out
}
