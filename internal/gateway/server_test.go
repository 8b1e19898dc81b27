package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/zoneflow/zonebridge/internal/adapters/store"
	"github.com/zoneflow/zonebridge/internal/app/query"
	"github.com/zoneflow/zonebridge/internal/domain"
)

func testServer(t *testing.T) (*Server, *store.MemStore) {
	t.Helper()
	st := store.NewMemStore()
	svc := query.NewService(st)
	srv := NewServer(":0", svc, Info{
		Broker:    "tcp://localhost:1883",
		Topics:    []string{"/node1/zone1"},
		Connected: func() bool { return true },
	})
	return srv, st
}

func TestGetLatestReturnsReading(t *testing.T) {
	srv, st := testServer(t)

	received := time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC)
	st.Put(domain.RoutingKey{NodeID: "node1", ZoneID: "zone1"}, domain.Reading{
		NodeID:          "node1",
		ZoneID:          "zone1",
		CurrentMA:       1200.5,
		VoltageV:        15.02,
		PowerMW:         18030.0,
		SourceTimestamp: "2024-01-01T00:00:00Z",
	}, received)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/node1/zone1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body["node_id"] != "node1" || body["zone_id"] != "zone1" {
		t.Fatalf("unexpected identity: %v", body)
	}
	if body["current_mA"] != 1200.5 || body["voltage_V"] != 15.02 || body["power_mW"] != 18030.0 {
		t.Fatalf("unexpected measurements: %v", body)
	}
	if body["timestamp"] != "2024-01-01T00:00:00Z" {
		t.Fatalf("unexpected timestamp: %v", body["timestamp"])
	}
	gotReceived, err := time.Parse(time.RFC3339Nano, body["received_at"].(string))
	if err != nil || !gotReceived.Equal(received) {
		t.Fatalf("unexpected received_at: %v (%v)", body["received_at"], err)
	}
}

func TestGetLatestNotFound(t *testing.T) {
	srv, _ := testServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/node9/zone9", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body["error"] == "" {
		t.Fatalf("expected an explicit error body, got %v", body)
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv, st := testServer(t)

	received := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	st.Put(domain.RoutingKey{NodeID: "node1", ZoneID: "zone1"},
		domain.Reading{NodeID: "node1", ZoneID: "zone1"}, received)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Status != "running" || body.Broker != "tcp://localhost:1883" {
		t.Fatalf("unexpected status body: %+v", body)
	}
	if !body.Connected {
		t.Fatalf("expected connected true")
	}
	if !body.DataAvailable["node1/zone1"] {
		t.Fatalf("expected node1/zone1 available: %+v", body.DataAvailable)
	}
	if body.LastUpdates["node1/zone1"] == "" {
		t.Fatalf("expected last update recorded")
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := testServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
