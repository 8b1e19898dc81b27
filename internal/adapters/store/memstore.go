package store

import (
	"sync"
	"time"

	"github.com/zoneflow/zonebridge/internal/domain"
	"github.com/zoneflow/zonebridge/internal/ports"
)

// MemStore holds the latest reading per routing key behind a single RWMutex.
// Write frequency is seconds-scale, so one global lock is intentional;
// readers only contend for the brief critical section of a map access.
type MemStore struct {
	mu      sync.RWMutex
	entries map[domain.RoutingKey]ports.Entry
}

func NewMemStore() *MemStore {
	return &MemStore{
		entries: make(map[domain.RoutingKey]ports.Entry),
	}
}

func (s *MemStore) Put(key domain.RoutingKey, r domain.Reading, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = ports.Entry{Reading: r, ReceivedAt: now}
}

func (s *MemStore) Merge(key domain.RoutingKey, p domain.Patch, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		entry.Reading.NodeID = key.NodeID
		entry.Reading.ZoneID = key.ZoneID
	}

	switch p.Field {
	case domain.FieldCurrentMA:
		entry.Reading.CurrentMA = p.Value
	case domain.FieldVoltageV:
		entry.Reading.VoltageV = p.Value
	case domain.FieldPowerMW:
		entry.Reading.PowerMW = p.Value
	case domain.FieldStatus:
		entry.Reading.Status = p.Status
	default:
		return
	}

	entry.ReceivedAt = now
	s.entries[key] = entry
}

func (s *MemStore) Get(key domain.RoutingKey) (ports.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	return entry, ok
}

func (s *MemStore) Snapshot() map[domain.RoutingKey]ports.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.RoutingKey]ports.Entry, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var _ ports.ReadingStore = (*MemStore)(nil)
