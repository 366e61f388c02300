// Package memcoord provides an in-memory implementation of coordstore.Client.
// Suitable for dev/testing; expiry follows an injectable clock so window
// behavior can be tested deterministically.
package memcoord

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type entry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// Store holds coordination keys in memory. Expired keys are purged lazily.
type Store struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]*entry
}

// New initializes a Store using the wall clock.
func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock initializes a Store with a custom clock.
func NewWithClock(now func() time.Time) *Store {
	return &Store{
		now:     now,
		entries: make(map[string]*entry),
	}
}

// Exists reports whether a live (non-expired) key is present.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live(key) != nil, nil
}

// SetWithExpiry stores the value, replacing any existing entry.
func (s *Store) SetWithExpiry(_ context.Context, key string, ttl time.Duration, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = &entry{value: value, expiresAt: s.now().Add(ttl)}
	return nil
}

// SetIfNotExists stores the value only when no live entry is present,
// reporting whether this call created the key.
func (s *Store) SetIfNotExists(_ context.Context, key string, ttl time.Duration, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live(key) != nil {
		return false, nil
	}
	s.entries[key] = &entry{value: value, expiresAt: s.now().Add(ttl)}
	return true, nil
}

// Increment atomically increments the integer value of key. A missing key is
// created with no expiry, matching Redis INCR; an existing key keeps its TTL.
func (s *Store) Increment(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key)
	if e == nil {
		s.entries[key] = &entry{value: "1"}
		return 1, nil
	}

	n, err := strconv.ParseInt(e.value, 10, 64)
	if err != nil {
		return 0, err
	}
	n++
	e.value = strconv.FormatInt(n, 10)
	return n, nil
}

// SetExpiry sets the TTL on an existing live key. Missing keys are a no-op,
// matching Redis EXPIRE.
func (s *Store) SetExpiry(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.live(key); e != nil {
		e.expiresAt = s.now().Add(ttl)
	}
	return nil
}

// live returns the entry for key if present and unexpired, deleting it
// otherwise. Caller must hold s.mu.
func (s *Store) live(key string) *entry {
	e, ok := s.entries[key]
	if !ok {
		return nil
	}
	if !e.expiresAt.IsZero() && !e.expiresAt.After(s.now()) {
		delete(s.entries, key)
		return nil
	}
	return e
}
