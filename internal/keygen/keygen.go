package keygen

import (
	"encoding/json"

	"github.com/rohmanhakim/sync-cache/pkg/hashutil"
)

/*
Responsibilities
- Map a sync request to its cache slot fingerprint
- Deterministic: reordering any set-valued field never changes the result
- Pure: no I/O, no clock, no error path

Output Characteristics
- 16 lowercase hex characters (truncated SHA-256)
- Stable across processes and restarts
- Legacy and multi-path shapes can never produce the same fingerprint
*/

// FingerprintLength is the number of hex characters retained from the digest.
// Truncation risk is accepted: a collision only forces an unnecessary
// re-sync, never corrupts data, since entry metadata is authoritative
// for contents.
const FingerprintLength = 16

// Fingerprint returns the cache key for a sync request: SHA-256 over the
// canonical key-sorted JSON record, hex-encoded, first 16 characters.
func Fingerprint(request SyncRequest) string {
	// Maps of strings, ints, bools and string slices cannot fail to marshal,
	// and encoding/json emits map keys in sorted order, which is the
	// canonical encoding the fingerprint is pinned to.
	payload, _ := json.Marshal(canonicalRecord(request))
	return hashutil.SumSHA256(payload)[:FingerprintLength]
}

// canonicalRecord builds the key-sorted serialization input. Every field is
// present even when empty: an omitted exclusion set and an empty one are
// both "nothing excluded" and must hash identically. The two request shapes
// contribute disjoint path fields ("directory" vs "directories"/"files"),
// which keeps a legacy cache from being misread as a multi-path one.
func canonicalRecord(r SyncRequest) map[string]any {
	record := map[string]any{
		"remoteHost":         r.remoteHost,
		"remotePort":         r.remotePort,
		"remoteUser":         r.remoteUser,
		"recursive":          r.recursive,
		"excludePatterns":    r.excludePatterns,
		"excludeExtensions":  r.excludeExtensions,
		"excludeDirectories": r.excludeDirectories,
	}
	if r.legacy {
		record["directory"] = r.directory
	} else {
		record["directories"] = r.directories
		record["files"] = r.files
	}
	return record
}
