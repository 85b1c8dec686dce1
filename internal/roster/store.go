// Package roster holds the in-memory employee table: an ordered header list
// paired with an ordered sequence of records, swapped atomically.
package roster

import (
	"errors"
	"sync"
)

// ErrRecordNotFound is returned when no record matches an identity key.
var ErrRecordNotFound = errors.New("record not found")

// Snapshot is the paired header list and record sequence at one point in time.
type Snapshot struct {
	Headers []string `json:"headers"`
	Records []Record `json:"records"`
	Version uint64   `json:"version"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	c := Snapshot{
		Headers: make([]string, len(s.Headers)),
		Records: make([]Record, len(s.Records)),
		Version: s.Version,
	}
	copy(c.Headers, s.Headers)
	for i, r := range s.Records {
		c.Records[i] = r.Clone()
	}
	return c
}

// Len returns the number of records.
func (s Snapshot) Len() int { return len(s.Records) }

// Store owns the current roster snapshot. All writes go through one mutex so
// headers and records always change together.
type Store struct {
	mu      sync.RWMutex
	current Snapshot
	seed    Snapshot

	subMu       sync.Mutex
	subscribers map[int]chan uint64
	nextSubID   int
}

// NewStore creates a store initialised with seed. Reset restores seed.
func NewStore(seed Snapshot) *Store {
	seed = seed.Clone()
	seed.Version = 0
	current := seed.Clone()
	current.Version = 1
	return &Store{
		current:     current,
		seed:        seed,
		subscribers: make(map[int]chan uint64),
	}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Headers returns a copy of the current header list.
func (s *Store) Headers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.current.Headers))
	copy(out, s.current.Headers)
	return out
}

// Version returns the current snapshot version.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Version
}

// Replace installs records and headers as the new snapshot. A nil headers
// slice is derived from the key order of records[0]; no records means no
// headers. Nothing is validated.
func (s *Store) Replace(records []Record, headers []string) uint64 {
	s.mu.Lock()
	version := s.replaceLocked(records, headers)
	s.mu.Unlock()

	s.broadcast(version)
	return version
}

// Reset restores the seed snapshot.
func (s *Store) Reset() uint64 {
	s.mu.Lock()
	seed := s.seed.Clone()
	version := s.replaceLocked(seed.Records, seed.Headers)
	s.mu.Unlock()

	s.broadcast(version)
	return version
}

// Mutate runs fn against the current snapshot and installs the records it
// returns under the current headers. fn sees a private copy; if it returns
// an error nothing changes.
func (s *Store) Mutate(fn func(Snapshot) ([]Record, error)) error {
	s.mu.Lock()
	records, err := fn(s.current.Clone())
	if err != nil {
		s.mu.Unlock()
		return err
	}
	headers := s.current.Headers
	if len(headers) == 0 {
		headers = nil
	}
	version := s.replaceLocked(records, headers)
	s.mu.Unlock()

	s.broadcast(version)
	return nil
}

func (s *Store) replaceLocked(records []Record, headers []string) uint64 {
	next := Snapshot{
		Records: make([]Record, len(records)),
		Version: s.current.Version + 1,
	}
	for i, r := range records {
		next.Records[i] = r.Clone()
	}

	switch {
	case headers != nil:
		next.Headers = make([]string, len(headers))
		copy(next.Headers, headers)
	case len(records) > 0:
		next.Headers = records[0].Keys()
	default:
		next.Headers = []string{}
	}

	s.current = next
	return next.Version
}

// Find returns a copy of the first record whose identity value equals key.
func (s *Store) Find(key string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.current.IndexOf(key)
	if idx < 0 {
		return Record{}, false
	}
	return s.current.Records[idx].Clone(), true
}

// Add prepends the record build returns. build runs under the store lock and
// sees the snapshot the record will be added to.
func (s *Store) Add(build func(Snapshot) (Record, error)) (Record, error) {
	var added Record
	err := s.Mutate(func(snap Snapshot) ([]Record, error) {
		rec, err := build(snap)
		if err != nil {
			return nil, err
		}
		added = rec
		return append([]Record{rec}, snap.Records...), nil
	})
	return added, err
}

// Update replaces the first record whose identity equals key with the result
// of edit. Later records sharing the key are left alone.
func (s *Store) Update(key string, edit func(snap Snapshot, current Record) (Record, error)) (Record, error) {
	var updated Record
	err := s.Mutate(func(snap Snapshot) ([]Record, error) {
		idx := snap.IndexOf(key)
		if idx < 0 {
			return nil, ErrRecordNotFound
		}
		rec, err := edit(snap, snap.Records[idx])
		if err != nil {
			return nil, err
		}
		snap.Records[idx] = rec
		updated = rec
		return snap.Records, nil
	})
	return updated, err
}

// Upsert edits the first match for key, or prepends the record create
// returns when none exists. The lookup and the write happen under one lock.
func (s *Store) Upsert(key string, edit func(snap Snapshot, current Record) (Record, error), create func(Snapshot) (Record, error)) (rec Record, created bool, err error) {
	err = s.Mutate(func(snap Snapshot) ([]Record, error) {
		if idx := snap.IndexOf(key); idx >= 0 {
			r, err := edit(snap, snap.Records[idx])
			if err != nil {
				return nil, err
			}
			snap.Records[idx] = r
			rec, created = r, false
			return snap.Records, nil
		}
		r, err := create(snap)
		if err != nil {
			return nil, err
		}
		rec, created = r, true
		return append([]Record{r}, snap.Records...), nil
	})
	if err != nil {
		return Record{}, false, err
	}
	return rec, created, nil
}

// Delete removes every record whose identity equals key and returns the
// removed records.
func (s *Store) Delete(key string) ([]Record, error) {
	var removed []Record
	err := s.Mutate(func(snap Snapshot) ([]Record, error) {
		idCol := IdentityColumn(snap.Headers)
		kept := make([]Record, 0, len(snap.Records))
		for _, r := range snap.Records {
			if idCol != "" && r.Value(idCol).String() == key {
				removed = append(removed, r)
				continue
			}
			kept = append(kept, r)
		}
		if len(removed) == 0 {
			return nil, ErrRecordNotFound
		}
		return kept, nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// IndexOf returns the position of the first record whose identity value
// equals key, or -1.
func (s Snapshot) IndexOf(key string) int {
	idCol := IdentityColumn(s.Headers)
	if idCol == "" {
		return -1
	}
	for i, r := range s.Records {
		if r.Value(idCol).String() == key {
			return i
		}
	}
	return -1
}

// Subscribe returns a channel that receives the latest version after every
// change. Slow readers only see the most recent version. Call the returned
// func to unsubscribe.
func (s *Store) Subscribe() (<-chan uint64, func()) {
	ch := make(chan uint64, 1)

	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subscribers, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

func (s *Store) broadcast(version uint64) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subscribers {
		// Drop a stale pending version so the newest one fits.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- version:
		default:
		}
	}
}
