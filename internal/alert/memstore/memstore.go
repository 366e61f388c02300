// Package memstore provides an in-memory implementation of alert.Store.
// Suitable for dev/testing.
package memstore

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/linnemanlabs/stormgate/internal/alert"
)

// Store holds alerts in memory.
type Store struct {
	mu     sync.RWMutex
	alerts map[string]*alert.Alert // alert ID -> record
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		alerts: make(map[string]*alert.Alert),
	}
}

// Insert stores a copy of the alert.
func (s *Store) Insert(_ context.Context, a *alert.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts[a.ID] = clone(a)
	return nil
}

// Acknowledge sets the acknowledgment triple on the alert with the given id,
// reporting whether it was found. A later call overwrites the triple.
func (s *Store) Acknowledge(_ context.Context, id, userID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.alerts[id]
	if !ok {
		return false, nil
	}
	a.Acknowledged = true
	a.AcknowledgedBy = userID
	a.AcknowledgedAt = at
	return true, nil
}

// List returns copies of the alerts matching the filter, ordered by CreatedAt
// descending with ID as tiebreaker.
func (s *Store) List(_ context.Context, f alert.ListFilter) ([]*alert.Alert, error) {
	s.mu.RLock()
	matched := make([]*alert.Alert, 0)
	for _, a := range s.alerts {
		if matches(a, f) {
			matched = append(matched, clone(a))
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	if f.Offset > 0 {
		if f.Offset >= len(matched) {
			return []*alert.Alert{}, nil
		}
		matched = matched[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(matched) {
		matched = matched[:f.Limit]
	}
	return matched, nil
}

func matches(a *alert.Alert, f alert.ListFilter) bool {
	if a.TenantID != f.TenantID {
		return false
	}
	if f.DeviceID != "" && a.DeviceID != f.DeviceID {
		return false
	}
	if len(f.Severities) > 0 {
		found := false
		for _, sev := range f.Severities {
			if a.Severity == sev {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Acknowledged != nil && a.Acknowledged != *f.Acknowledged {
		return false
	}
	if !f.Start.IsZero() && a.CreatedAt.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && a.CreatedAt.After(f.End) {
		return false
	}
	return true
}

func clone(a *alert.Alert) *alert.Alert {
	cp := *a
	if a.Metadata != nil {
		cp.Metadata = maps.Clone(a.Metadata)
	}
	return &cp
}
