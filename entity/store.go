package entity

import "sync"

// Store owns the entity summaries for one extraction run, keyed by the
// raw textual form of the entity (IRI or blank node label). Map access is
// serialized so concurrent scan shards can share a Store for lookups, but
// the summaries themselves are single-writer; parallel aggregation builds
// per-shard Stores and merges them instead of contending on one map.
type Store struct {
	mu       sync.RWMutex
	entities map[string]*Data
}

// NewStore returns a Store presized for the expected number of distinct
// entities. The estimate affects allocation only, never correctness.
func NewStore(expected int) *Store {
	if expected < 0 {
		expected = 0
	}
	return &Store{entities: make(map[string]*Data, expected)}
}

// Get returns the summary for key if one exists.
func (s *Store) Get(key string) (*Data, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.entities[key]
	return d, ok
}

// FetchOrCreate returns the summary for key, creating an empty one on
// first sight. Creation is a single atomic insertion point per key, so
// two callers racing on a new key observe the same summary.
func (s *Store) FetchOrCreate(key string) *Data {
	s.mu.RLock()
	d, ok := s.entities[key]
	s.mu.RUnlock()
	if ok {
		return d
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.entities[key]; ok {
		return d
	}
	d = NewData()
	s.entities[key] = d
	return d
}

// Len returns the number of distinct entities tracked.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// Range calls fn for every summary until fn returns false. The iteration
// order is unspecified. Range holds the read lock for its duration, so fn
// must not call back into the Store's write paths.
func (s *Store) Range(fn func(key string, d *Data) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for key, d := range s.entities {
		if !fn(key, d) {
			return
		}
	}
}

// Merge folds every summary of other into s. Summaries present in both
// stores merge field-wise; merge order across shards does not affect the
// result. The other store must be quiescent.
func (s *Store) Merge(other *Store) {
	other.mu.RLock()
	defer other.mu.RUnlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, od := range other.entities {
		if d, ok := s.entities[key]; ok {
			d.merge(od)
			continue
		}
		s.entities[key] = od
	}
}
