package observability

import (
	"fmt"
	"log"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zoneflow/zonebridge/internal/ports"
)

type PromObs struct {
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

func NewPromObs() *PromObs {
	received := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zonebridge_messages_received_total",
		Help: "Total messages delivered by the transport.",
	})
	stored := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zonebridge_readings_stored_total",
		Help: "Total readings written to the state store.",
	})
	decodeErrs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zonebridge_decode_errors_total",
		Help: "Messages dropped because the payload failed to decode.",
	})
	unknownTopic := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zonebridge_unknown_topic_total",
		Help: "Messages dropped because the topic matched no route.",
	})
	reconnects := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zonebridge_reconnects_total",
		Help: "Reconnect attempts after a broker disconnect.",
	})
	connected := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "zonebridge_connected",
		Help: "1 while the broker connection is up, 0 otherwise.",
	})
	storeKeys := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "zonebridge_store_keys",
		Help: "Number of routing keys with at least one stored reading.",
	})
	handle := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "zonebridge_handle_seconds",
		Help:    "Time spent decoding and storing one inbound message.",
		Buckets: prometheus.ExponentialBuckets(0.00001, 2, 12),
	})

	prometheus.MustRegister(received, stored, decodeErrs, unknownTopic, reconnects, connected, storeKeys, handle)

	return &PromObs{
		counters: map[string]prometheus.Counter{
			"zonebridge_messages_received_total": received,
			"zonebridge_readings_stored_total":   stored,
			"zonebridge_decode_errors_total":     decodeErrs,
			"zonebridge_unknown_topic_total":     unknownTopic,
			"zonebridge_reconnects_total":        reconnects,
		},
		gauges: map[string]prometheus.Gauge{
			"zonebridge_connected":  connected,
			"zonebridge_store_keys": storeKeys,
		},
		histos: map[string]prometheus.Observer{
			"zonebridge_handle_seconds": handle,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	log.Printf("INFO: %s%s", msg, formatFields(fields))
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("ERROR: %s: %v%s", msg, err, formatFields(fields))
	}
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("CRITICAL: %s: %v%s", msg, err, formatFields(fields))
	}
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func formatFields(fields []ports.Field) string {
	if len(fields) == 0 {
		return ""
	}
	var b strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	return b.String()
}

var _ ports.Observability = (*PromObs)(nil)
