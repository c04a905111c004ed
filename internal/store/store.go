package store

import (
	"sync"

	"github.com/edirooss/vredis/internal/errs"
)

// EventSink receives mutation notifications from the store. The blocking
// manager and transaction manager each implement this (or subscribe to an
// event.Bus that does) — the store never imports either, breaking the cycle
// noted in spec.md §9 ("Blocked-client + event-publisher cycle").
type EventSink interface {
	DataAdded(key string)
	DataRemoved(key string)
}

type noopSink struct{}

func (noopSink) DataAdded(string)   {}
func (noopSink) DataRemoved(string) {}

// Clock abstracts "now" so tests can control expiry deterministically.
type Clock func() int64

// Store is the concurrent key→Entry mapping described in §4.B. A single
// RWMutex guards the map; Compute holds it for the duration of the mutator
// so multi-step transitions stay indivisible, matching the single-mutex
// style the teacher uses throughout processmgr (ProcessManager, PIDAllocator,
// slotPool all guard their maps with one mutex rather than striping).
type Store struct {
	mu       sync.RWMutex
	data     map[string]*Entry
	versions map[string]uint64
	sink     EventSink
	now      Clock
}

func New(sink EventSink, now Clock) *Store {
	if sink == nil {
		sink = noopSink{}
	}
	return &Store{
		data:     make(map[string]*Entry),
		versions: make(map[string]uint64),
		sink:     sink,
		now:      now,
	}
}

// Put replaces key unconditionally.
func (s *Store) Put(key string, e *Entry) {
	s.mu.Lock()
	s.data[key] = e
	s.versions[key]++
	s.mu.Unlock()
	s.sink.DataAdded(key)
}

// GetValid returns the value if present and not expired; a present-but-
// expired entry is lazily reaped and reported as absent.
func (s *Store) GetValid(key string) (*Entry, bool) {
	s.mu.RLock()
	e, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if e.Expiry.Expired(s.now()) {
		s.reap(key)
		return nil, false
	}
	return e, true
}

func (s *Store) reap(key string) {
	s.mu.Lock()
	_, existed := s.data[key]
	if existed {
		delete(s.data, key)
		s.versions[key]++
	}
	s.mu.Unlock()
	if existed {
		s.sink.DataRemoved(key)
	}
}

// Exists reports whether key is present and not expired.
func (s *Store) Exists(key string) bool {
	_, ok := s.GetValid(key)
	return ok
}

// Delete removes key unconditionally if present. Returns true iff it was
// removed.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	e, ok := s.data[key]
	if ok {
		delete(s.data, key)
		s.versions[key]++
	}
	s.mu.Unlock()
	if ok && e != nil {
		s.sink.DataRemoved(key)
	}
	return ok
}

// Flush removes every key.
func (s *Store) Flush() {
	s.mu.Lock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	s.data = make(map[string]*Entry)
	for _, k := range keys {
		s.versions[k]++
	}
	s.mu.Unlock()
	for _, k := range keys {
		s.sink.DataRemoved(k)
	}
}

// Version returns the current modification counter for key; every mutation
// bumps it. WATCH/EXEC do not read it: the txn package detects intervening
// writes through the event bus instead.
func (s *Store) Version(key string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.versions[key]
}

// Type returns the human-readable type name for KEYS/TYPE/debugging, or ""
// if absent/expired.
func (s *Store) Type(key string) string {
	e, ok := s.GetValid(key)
	if !ok {
		return ""
	}
	return e.Kind.String()
}

// Keys returns all non-expired keys matching a glob pattern ('*' any run,
// '?' one character). The scan is a best-effort snapshot: concurrent
// mutations may or may not be reflected, per §4.B.
func (s *Store) Keys(pattern string) []string {
	s.mu.RLock()
	all := make([]string, 0, len(s.data))
	for k := range s.data {
		all = append(all, k)
	}
	s.mu.RUnlock()

	now := s.now()
	out := make([]string, 0, len(all))
	for _, k := range all {
		s.mu.RLock()
		e, ok := s.data[k]
		s.mu.RUnlock()
		if !ok || e.Expiry.Expired(now) {
			continue
		}
		if globMatch(pattern, k) {
			out = append(out, k)
		}
	}
	return out
}

// Compute atomically mutates key's entry: fn observes the current (possibly
// absent) entry and returns the new entry (nil to delete) plus whether a
// mutation actually occurred. fn and the version bump run under the store's
// write lock, so create-if-absent-then-push sequences are indivisible; the
// data_added/data_removed event is published after the lock is released.
func (s *Store) Compute(key string, fn func(cur *Entry, exists bool) (next *Entry, mutated bool, err error)) (*Entry, bool, error) {
	now := s.now()

	s.mu.Lock()
	cur, exists := s.data[key]
	if exists && cur.Expiry.Expired(now) {
		delete(s.data, key)
		exists = false
		cur = nil
	}

	next, mutated, err := fn(cur, exists)
	if err != nil {
		s.mu.Unlock()
		return nil, false, err
	}

	removed := false
	if next == nil || next.Empty() {
		if exists || next != nil {
			delete(s.data, key)
			removed = exists || next != nil
		}
		next = nil
	} else {
		s.data[key] = next
	}
	if mutated {
		s.versions[key]++
	}
	s.mu.Unlock()

	if mutated {
		if next == nil && removed {
			s.sink.DataRemoved(key)
		} else if next != nil {
			s.sink.DataAdded(key)
		}
	}
	return next, mutated, nil
}

// --- typed accessors -------------------------------------------------------
//
// Wrong-type access on a write fails with errs.Wrong(); on a read it returns
// the neutral zero value (ok=false, no error), per §4.B.

func (s *Store) GetString(key string, forWrite bool) ([]byte, bool, error) {
	e, ok := s.GetValid(key)
	if !ok {
		return nil, false, nil
	}
	if e.Kind != KindString {
		if forWrite {
			return nil, false, errs.Wrong()
		}
		return nil, false, nil
	}
	return e.Str, true, nil
}

func (s *Store) GetList(key string, forWrite bool) (*Entry, bool, error) {
	e, ok := s.GetValid(key)
	if !ok {
		return nil, false, nil
	}
	if e.Kind != KindList {
		if forWrite {
			return nil, false, errs.Wrong()
		}
		return nil, false, nil
	}
	return e, true, nil
}

func (s *Store) GetStream(key string, forWrite bool) (*Entry, bool, error) {
	e, ok := s.GetValid(key)
	if !ok {
		return nil, false, nil
	}
	if e.Kind != KindStream {
		if forWrite {
			return nil, false, errs.Wrong()
		}
		return nil, false, nil
	}
	return e, true, nil
}

func (s *Store) GetZSet(key string, forWrite bool) (*Entry, bool, error) {
	e, ok := s.GetValid(key)
	if !ok {
		return nil, false, nil
	}
	if e.Kind != KindZSet {
		if forWrite {
			return nil, false, errs.Wrong()
		}
		return nil, false, nil
	}
	return e, true, nil
}

// SweepExpired walks up to sampleSize keys (an arbitrary slice of the
// current map — Go's map iteration order is already randomized per call,
// giving the "small sample" behavior §4.L asks for without extra
// bookkeeping) and reaps any that have expired. Publishes data_removed for
// each reaped key after releasing the store lock, and returns the reaped
// keys.
func (s *Store) SweepExpired(sampleSize int) []string {
	now := s.now()
	s.mu.Lock()
	reaped := make([]string, 0)
	i := 0
	for k, e := range s.data {
		if i >= sampleSize {
			break
		}
		i++
		if e.Expiry.Expired(now) {
			delete(s.data, k)
			s.versions[k]++
			reaped = append(reaped, k)
		}
	}
	s.mu.Unlock()

	for _, k := range reaped {
		s.sink.DataRemoved(k)
	}
	return reaped
}

func globMatch(pattern, s string) bool {
	return globMatchBytes([]byte(pattern), []byte(s))
}

// globMatchBytes implements '*' (any run) and '?' (one char) glob matching.
func globMatchBytes(pat, s []byte) bool {
	var pi, si int
	var starIdx = -1
	var match int
	for si < len(s) {
		switch {
		case pi < len(pat) && (pat[pi] == '?' || pat[pi] == s[si]):
			pi++
			si++
		case pi < len(pat) && pat[pi] == '*':
			starIdx = pi
			match = si
			pi++
		case starIdx != -1:
			pi = starIdx + 1
			match++
			si = match
		default:
			return false
		}
	}
	for pi < len(pat) && pat[pi] == '*' {
		pi++
	}
	return pi == len(pat)
}
