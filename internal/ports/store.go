package ports

import (
	"time"

	"github.com/zoneflow/zonebridge/internal/domain"
)

// Entry is a stored reading plus the time the store observed it.
// ReceivedAt is always assigned by the ingestion side, never by the
// publisher; staleness is computed by readers from now - ReceivedAt.
type Entry struct {
	Reading    domain.Reading
	ReceivedAt time.Time
}

// ReadingStore is the single synchronization point between the ingestion
// side and the query side. It holds at most one reading per routing key,
// the most recently received one.
type ReadingStore interface {
	// Put replaces the entry for key atomically. A new reading for a key
	// overwrites the previous one in full, never field-by-field.
	Put(key domain.RoutingKey, r domain.Reading, now time.Time)

	// Merge applies a single-field scalar-mode patch to the entry for key,
	// creating it if absent. This is the one deliberate exception to Put's
	// overwrite-in-full semantics.
	Merge(key domain.RoutingKey, p domain.Patch, now time.Time)

	// Get returns the most recently stored entry, or false if the key has
	// never been observed.
	Get(key domain.RoutingKey) (Entry, bool)

	// Snapshot returns a copy of all known entries. Per-key atomicity is
	// guaranteed; cross-key consistency is not required.
	Snapshot() map[domain.RoutingKey]Entry

	// Len reports the number of known keys.
	Len() int
}
