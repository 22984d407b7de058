package syncer

type LookupResult struct {
	fingerprint string
	hit         bool
	path        string
	ageHours    float64
}

func NewLookupResult(fingerprint string, hit bool, path string, ageHours float64) LookupResult {
	return LookupResult{
		fingerprint: fingerprint,
		hit:         hit,
		path:        path,
		ageHours:    ageHours,
	}
}

func (r LookupResult) Fingerprint() string {
	return r.fingerprint
}

// Hit reports whether a usable entry already exists, meaning the caller can
// skip the remote operation entirely.
func (r LookupResult) Hit() bool {
	return r.hit
}

// Path is where the entry lives (or would live) under the cache root.
func (r LookupResult) Path() string {
	return r.path
}

// AgeHours is the entry age at lookup time. Zero when no entry exists.
func (r LookupResult) AgeHours() float64 {
	return r.ageHours
}

// Session represents an in-progress sync holding the entry's lock.
// Exactly one of Complete or Abandon must be called; both release the lock,
// Abandon additionally discards the partially populated entry.
type Session struct {
	service     *Service
	fingerprint string
	path        string
	syncID      string
	closed      bool
}

func (s *Session) Fingerprint() string {
	return s.fingerprint
}

func (s *Session) Path() string {
	return s.path
}

func (s *Session) SyncID() string {
	return s.syncID
}
