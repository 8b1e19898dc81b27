// Package gateway exposes the query interface over HTTP for polling
// dashboards. Handlers only read; all errors surface as JSON bodies so a
// caller sees either the latest reading or an explicit "no data yet".
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/zoneflow/zonebridge/internal/app/query"
)

// Info is static deployment detail reported by the status endpoint.
type Info struct {
	Broker    string
	Topics    []string
	Connected func() bool
}

type Server struct {
	svc  *query.Service
	info Info
	srv  *http.Server
}

func NewServer(addr string, svc *query.Service, info Info) *Server {
	s := &Server{svc: svc, info: info}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler builds the route table; exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/{node}/{zone}", s.handleLatest)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// ListenAndServe blocks serving the API until Shutdown or a listener error.
func (s *Server) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type readingResponse struct {
	NodeID     string  `json:"node_id"`
	ZoneID     string  `json:"zone_id"`
	CurrentMA  float64 `json:"current_mA"`
	VoltageV   float64 `json:"voltage_V"`
	PowerMW    float64 `json:"power_mW"`
	Status     string  `json:"status,omitempty"`
	Timestamp  string  `json:"timestamp,omitempty"`
	ReceivedAt string  `json:"received_at"`
}

type statusResponse struct {
	Status           string            `json:"status"`
	Broker           string            `json:"mqtt_broker"`
	SubscribedTopics []string          `json:"subscribed_topics"`
	Connected        bool              `json:"connected"`
	DataAvailable    map[string]bool   `json:"data_available"`
	LastUpdates      map[string]string `json:"last_updates"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	node := r.PathValue("node")
	zone := r.PathValue("zone")

	entry, err := s.svc.GetLatest(node, zone)
	if err != nil {
		if errors.Is(err, query.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{
				Error: "no data available for " + node + "/" + zone,
			})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, readingResponse{
		NodeID:     entry.Reading.NodeID,
		ZoneID:     entry.Reading.ZoneID,
		CurrentMA:  entry.Reading.CurrentMA,
		VoltageV:   entry.Reading.VoltageV,
		PowerMW:    entry.Reading.PowerMW,
		Status:     entry.Reading.Status,
		Timestamp:  entry.Reading.SourceTimestamp,
		ReceivedAt: entry.ReceivedAt.Format(time.RFC3339Nano),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	keys := s.svc.GetStatus()

	available := make(map[string]bool, len(keys))
	updates := make(map[string]string, len(keys))
	for _, k := range keys {
		id := k.NodeID + "/" + k.ZoneID
		available[id] = true
		updates[id] = k.LastReceivedAt.Format(time.RFC3339Nano)
	}

	connected := false
	if s.info.Connected != nil {
		connected = s.info.Connected()
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Status:           "running",
		Broker:           s.info.Broker,
		SubscribedTopics: s.info.Topics,
		Connected:        connected,
		DataAvailable:    available,
		LastUpdates:      updates,
	})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
