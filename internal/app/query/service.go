// Package query is the synchronous read path over the state store. It
// never mutates the store and never blocks on transport activity; its only
// failure mode is ErrNotFound.
package query

import (
	"errors"
	"sort"
	"time"

	"github.com/zoneflow/zonebridge/internal/domain"
	"github.com/zoneflow/zonebridge/internal/ports"
)

// ErrNotFound means the routing key has never been observed. Distinct from
// "observed but stale", which is a successful return with an old
// ReceivedAt.
var ErrNotFound = errors.New("query: no reading for key")

// KeyStatus summarizes one observed routing key.
type KeyStatus struct {
	NodeID         string
	ZoneID         string
	LastReceivedAt time.Time
	Age            time.Duration
}

// Service answers reads against the store.
type Service struct {
	store ports.ReadingStore
	now   func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the clock used to compute ages.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(store ports.ReadingStore, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// GetLatest returns the most recent reading for (nodeID, zoneID), or
// ErrNotFound if the key has never been observed. Staleness is the
// caller's call, computed from the entry's ReceivedAt.
func (s *Service) GetLatest(nodeID, zoneID string) (ports.Entry, error) {
	entry, ok := s.store.Get(domain.RoutingKey{NodeID: nodeID, ZoneID: zoneID})
	if !ok {
		return ports.Entry{}, ErrNotFound
	}
	return entry, nil
}

// GetStatus returns a summary of every observed key, sorted by key for
// deterministic output.
func (s *Service) GetStatus() []KeyStatus {
	snap := s.store.Snapshot()
	now := s.now()

	out := make([]KeyStatus, 0, len(snap))
	for key, entry := range snap {
		out = append(out, KeyStatus{
			NodeID:         key.NodeID,
			ZoneID:         key.ZoneID,
			LastReceivedAt: entry.ReceivedAt,
			Age:            now.Sub(entry.ReceivedAt),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NodeID != out[j].NodeID {
			return out[i].NodeID < out[j].NodeID
		}
		return out[i].ZoneID < out[j].ZoneID
	})
	return out
}
