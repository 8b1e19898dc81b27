package query

import (
	"errors"
	"testing"
	"time"

	"github.com/zoneflow/zonebridge/internal/adapters/store"
	"github.com/zoneflow/zonebridge/internal/domain"
)

func TestGetLatestNotFound(t *testing.T) {
	svc := NewService(store.NewMemStore())

	if _, err := svc.GetLatest("node1", "zone1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetLatestReturnsStoredReading(t *testing.T) {
	st := store.NewMemStore()
	received := time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC)
	reading := domain.Reading{NodeID: "node1", ZoneID: "zone1", CurrentMA: 1200.5, VoltageV: 15.02, PowerMW: 18030.0}
	st.Put(reading.Key(), reading, received)

	svc := NewService(st)

	entry, err := svc.GetLatest("node1", "zone1")
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if entry.Reading != reading {
		t.Fatalf("unexpected reading: %+v", entry.Reading)
	}
	if !entry.ReceivedAt.Equal(received) {
		t.Fatalf("unexpected received_at: %v", entry.ReceivedAt)
	}
}

func TestGetStatusNoExpiry(t *testing.T) {
	st := store.NewMemStore()
	received := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	st.Put(domain.RoutingKey{NodeID: "node1", ZoneID: "zone1"},
		domain.Reading{NodeID: "node1", ZoneID: "zone1"}, received)

	// A minute of silence: the entry must survive untouched, with staleness
	// computable from the returned timestamp.
	now := received.Add(60 * time.Second)
	svc := NewService(st, WithClock(func() time.Time { return now }))

	status := svc.GetStatus()
	if len(status) != 1 {
		t.Fatalf("expected 1 key, got %d", len(status))
	}
	if !status[0].LastReceivedAt.Equal(received) {
		t.Fatalf("received_at must not be rewritten, got %v", status[0].LastReceivedAt)
	}
	if status[0].Age != 60*time.Second {
		t.Fatalf("expected age 60s, got %s", status[0].Age)
	}
}

func TestGetStatusSorted(t *testing.T) {
	st := store.NewMemStore()
	now := time.Now()
	for _, k := range []domain.RoutingKey{
		{NodeID: "node2", ZoneID: "zone1"},
		{NodeID: "node1", ZoneID: "zone3"},
		{NodeID: "node1", ZoneID: "zone1"},
	} {
		st.Put(k, domain.Reading{NodeID: k.NodeID, ZoneID: k.ZoneID}, now)
	}

	status := NewService(st).GetStatus()
	if len(status) != 3 {
		t.Fatalf("expected 3 keys, got %d", len(status))
	}
	got := []string{
		status[0].NodeID + "/" + status[0].ZoneID,
		status[1].NodeID + "/" + status[1].ZoneID,
		status[2].NodeID + "/" + status[2].ZoneID,
	}
	want := []string{"node1/zone1", "node1/zone3", "node2/zone1"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}
