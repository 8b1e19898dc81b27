package decode

import (
	"errors"
	"testing"

	"github.com/zoneflow/zonebridge/internal/domain"
)

func testRoutes() []Route {
	return []Route{
		{Topic: "/node1/zone1", Mode: ModeStructured},
		{Topic: "microgrid/sensor/current", Mode: ModeScalar, Field: domain.FieldCurrentMA, NodeID: "node1", ZoneID: "zone1"},
		{Topic: "microgrid/sensor/status", Mode: ModeScalar, Field: domain.FieldStatus, NodeID: "node1", ZoneID: "zone1"},
	}
}

func newTestDecoder(t *testing.T) *Decoder {
	t.Helper()
	d, err := NewDecoder(testRoutes())
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	return d
}

func TestDecodeStructured(t *testing.T) {
	d := newTestDecoder(t)

	payload := []byte(`{"node_id":"node1","zone_id":"zone1","timestamp":"2024-01-01T00:00:00Z","current_mA":1200.5,"voltage_V":15.02,"power_mW":18030.0}`)
	upd, err := d.Decode("/node1/zone1", payload)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if upd.Reading == nil || upd.Patch != nil {
		t.Fatalf("expected a full reading, got %+v", upd)
	}
	r := *upd.Reading
	if r.NodeID != "node1" || r.ZoneID != "zone1" {
		t.Fatalf("unexpected routing identity: %+v", r)
	}
	if upd.Key != (domain.RoutingKey{NodeID: "node1", ZoneID: "zone1"}) {
		t.Fatalf("unexpected key: %v", upd.Key)
	}
	if r.CurrentMA != 1200.5 || r.VoltageV != 15.02 || r.PowerMW != 18030.0 {
		t.Fatalf("unexpected measurements: %+v", r)
	}
	if r.SourceTimestamp != "2024-01-01T00:00:00Z" {
		t.Fatalf("unexpected source timestamp: %q", r.SourceTimestamp)
	}
}

func TestDecodeStructuredNumericTimestamp(t *testing.T) {
	d := newTestDecoder(t)

	payload := []byte(`{"node_id":"n","zone_id":"z","timestamp":1704067200,"current_mA":1,"voltage_V":2,"power_mW":3}`)
	upd, err := d.Decode("/node1/zone1", payload)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if upd.Reading.SourceTimestamp != "1704067200" {
		t.Fatalf("expected numeric timestamp carried as string, got %q", upd.Reading.SourceTimestamp)
	}
}

func TestDecodeStructuredNegativeCurrent(t *testing.T) {
	d := newTestDecoder(t)

	// Sign conventions are a presentation concern; the decoder accepts
	// negative values for every measurement.
	payload := []byte(`{"node_id":"n","zone_id":"z","timestamp":"t","current_mA":-250.0,"voltage_V":-1,"power_mW":-2}`)
	upd, err := d.Decode("/node1/zone1", payload)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if upd.Reading.CurrentMA != -250.0 {
		t.Fatalf("expected negative current preserved, got %f", upd.Reading.CurrentMA)
	}
}

func TestDecodeStructuredMissingFields(t *testing.T) {
	d := newTestDecoder(t)

	payload := []byte(`{"node_id":"node1","zone_id":"zone1","timestamp":"t","current_mA":1,"power_mW":3}`)
	_, err := d.Decode("/node1/zone1", payload)
	if !IsMissingFields(err) {
		t.Fatalf("expected MissingFieldsError, got %v", err)
	}
	var mf *MissingFieldsError
	errors.As(err, &mf)
	if len(mf.Fields) != 1 || mf.Fields[0] != "voltage_V" {
		t.Fatalf("expected voltage_V reported missing, got %v", mf.Fields)
	}
}

func TestDecodeStructuredEmptyIdentifier(t *testing.T) {
	d := newTestDecoder(t)

	payload := []byte(`{"node_id":"","zone_id":"z","timestamp":"t","current_mA":1,"voltage_V":2,"power_mW":3}`)
	if _, err := d.Decode("/node1/zone1", payload); !IsMissingFields(err) {
		t.Fatalf("expected empty node_id treated as missing, got %v", err)
	}
}

func TestDecodeStructuredInvalidJSON(t *testing.T) {
	d := newTestDecoder(t)

	if _, err := d.Decode("/node1/zone1", []byte(`{"node_id": `)); !errors.Is(err, ErrInvalidEncoding) {
		t.Fatalf("expected ErrInvalidEncoding, got %v", err)
	}
}

func TestDecodeStructuredInvalidNumber(t *testing.T) {
	d := newTestDecoder(t)

	payload := []byte(`{"node_id":"n","zone_id":"z","timestamp":"t","current_mA":"fast","voltage_V":2,"power_mW":3}`)
	if _, err := d.Decode("/node1/zone1", payload); !errors.Is(err, ErrInvalidNumber) {
		t.Fatalf("expected ErrInvalidNumber, got %v", err)
	}
}

func TestDecodeScalarNumber(t *testing.T) {
	d := newTestDecoder(t)

	upd, err := d.Decode("microgrid/sensor/current", []byte("1200.5"))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if upd.Patch == nil || upd.Reading != nil {
		t.Fatalf("expected a patch, got %+v", upd)
	}
	if upd.Patch.Field != domain.FieldCurrentMA || upd.Patch.Value != 1200.5 {
		t.Fatalf("unexpected patch: %+v", upd.Patch)
	}
	if upd.Key.NodeID != "node1" || upd.Key.ZoneID != "zone1" {
		t.Fatalf("scalar route must carry its fixed key, got %v", upd.Key)
	}
}

func TestDecodeScalarStatusToken(t *testing.T) {
	d := newTestDecoder(t)

	upd, err := d.Decode("microgrid/sensor/status", []byte("online"))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if upd.Patch.Field != domain.FieldStatus || upd.Patch.Status != "online" {
		t.Fatalf("unexpected status patch: %+v", upd.Patch)
	}
}

func TestDecodeScalarInvalidNumber(t *testing.T) {
	d := newTestDecoder(t)

	if _, err := d.Decode("microgrid/sensor/current", []byte("not-a-number")); !errors.Is(err, ErrInvalidNumber) {
		t.Fatalf("expected ErrInvalidNumber, got %v", err)
	}
}

func TestDecodeUnknownTopic(t *testing.T) {
	d := newTestDecoder(t)

	if _, err := d.Decode("microgrid/sensor/humidity", []byte("42")); !errors.Is(err, ErrUnknownTopic) {
		t.Fatalf("expected ErrUnknownTopic, got %v", err)
	}
}

func TestNewDecoderRejectsBadRoutes(t *testing.T) {
	cases := []struct {
		name   string
		routes []Route
	}{
		{"empty table", nil},
		{"missing topic", []Route{{Mode: ModeStructured}}},
		{"unknown mode", []Route{{Topic: "t", Mode: "csv"}}},
		{"scalar without field", []Route{{Topic: "t", Mode: ModeScalar, NodeID: "n", ZoneID: "z"}}},
		{"scalar without key", []Route{{Topic: "t", Mode: ModeScalar, Field: domain.FieldPowerMW}}},
		{"duplicate topic", []Route{
			{Topic: "t", Mode: ModeStructured},
			{Topic: "t", Mode: ModeStructured},
		}},
	}

	for _, tc := range cases {
		if _, err := NewDecoder(tc.routes); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestDecoderTopicsSorted(t *testing.T) {
	d := newTestDecoder(t)

	topics := d.Topics()
	if len(topics) != 3 {
		t.Fatalf("expected 3 topics, got %v", topics)
	}
	if topics[0] != "/node1/zone1" || topics[1] != "microgrid/sensor/current" || topics[2] != "microgrid/sensor/status" {
		t.Fatalf("topics not sorted: %v", topics)
	}
}
